// Framing for the stream transport: a fixed 1024-byte ASCII control
// header, NUL-padded, followed immediately by exactly <chunk_size>
// bytes of raw payload. Multiple (header, payload) pairs may share one
// connection.
package stream

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// HeaderSize is the fixed control-frame length.
const HeaderSize = 1024

type putHeader struct {
	File       string
	ChunkID    int
	SenderRate int64
	ChunkSize  int64
}

// encode renders "PUT <file> <chunk_id> <sender_rate> <chunk_size>",
// right-padded with NUL bytes to exactly HeaderSize.
func (h putHeader) encode() ([HeaderSize]byte, error) {
	var buf [HeaderSize]byte
	line := fmt.Sprintf("PUT %s %d %d %d", h.File, h.ChunkID, h.SenderRate, h.ChunkSize)
	if len(line) > HeaderSize {
		return buf, fmt.Errorf("control header for %s chunk %d exceeds %d bytes", h.File, h.ChunkID, HeaderSize)
	}
	copy(buf[:], line)
	return buf, nil
}

// decodeHeader parses a HeaderSize-byte control frame after stripping
// its NUL padding.
func decodeHeader(raw []byte) (putHeader, error) {
	line := string(bytes.TrimRight(raw, "\x00"))
	fields := strings.Fields(line)
	if len(fields) != 5 || fields[0] != "PUT" {
		return putHeader{}, fmt.Errorf("malformed control header %q", line)
	}
	chunkID, err := strconv.Atoi(fields[2])
	if err != nil {
		return putHeader{}, fmt.Errorf("bad chunk id in header: %w", err)
	}
	rate, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return putHeader{}, fmt.Errorf("bad sender rate in header: %w", err)
	}
	size, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return putHeader{}, fmt.Errorf("bad chunk size in header: %w", err)
	}
	return putHeader{File: fields[1], ChunkID: chunkID, SenderRate: rate, ChunkSize: size}, nil
}
