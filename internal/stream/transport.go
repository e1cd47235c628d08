// Package stream implements the framed byte-stream transport that
// carries chunk payloads between peers, including the sender-side rate
// pacing that caps each push at the sending peer's advertised rate.
package stream

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/tkavi/p2pflood/internal/logging"
	"github.com/tkavi/p2pflood/internal/metrics"
	"github.com/tkavi/p2pflood/internal/workerpool"
)

// listenBacklog is unused directly (net.Listen has no backlog knob in
// the stdlib); it documents the intended pending-connection bound even
// though the OS-level backlog is left at its default.
const listenBacklog = 10

// connWorkers/connQueue bound the number of concurrently handled
// inbound stream connections.
const (
	connWorkers = 16
	connQueue   = 64
)

// ChunkStore is the subset of internal/store.Store the stream transport
// receiver needs: saving a received chunk. The sender side locates chunk
// files through ChunkPather instead.
type ChunkStore interface {
	SaveChunk(file string, i int, data []byte) (bool, error)
}

// ChunkPather lets the sender locate a chunk file on disk; satisfied by
// internal/store.Store via ChunkPath.
type ChunkPather interface {
	ChunkPath(file string, i int) string
}

// Server is the stream-transport listener: it accepts inbound
// connections and receives framed chunk pushes.
type Server struct {
	listener net.Listener
	store    ChunkStore
	pool     *workerpool.Pool
}

// NewServer binds a TCP listener at addr.
func NewServer(addr string, store ChunkStore) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind stream socket %s: %w", addr, err)
	}
	return &Server{listener: l, store: store, pool: workerpool.New(connWorkers, connQueue)}, nil
}

// Close releases the listening socket.
func (s *Server) Close() error {
	return s.listener.Close()
}

// Serve accepts connections until the listener is closed, handing each
// to the bounded worker pool. Runs until process exit.
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			logging.Sugar.Errorf("[stream] accept error: %v", err)
			return
		}
		s.pool.Go(func() { s.handleConn(conn) })
	}
}

// handleConn reads (header, payload) pairs off conn until the peer
// closes the connection or a frame is short.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	for {
		var header [HeaderSize]byte
		if _, err := io.ReadFull(conn, header[:]); err != nil {
			if err != io.EOF {
				logging.Sugar.Warnf("[stream] short header read from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		put, err := decodeHeader(header[:])
		if err != nil {
			logging.Sugar.Warnf("[stream] %v from %s", err, conn.RemoteAddr())
			return
		}

		payload := make([]byte, put.ChunkSize)
		if err := readChunked(conn, payload, put.SenderRate); err != nil {
			logging.Sugar.Warnf("[stream] short payload read for %s chunk %d from %s: %v", put.File, put.ChunkID, conn.RemoteAddr(), err)
			return
		}

		if _, err := s.store.SaveChunk(put.File, put.ChunkID, payload); err != nil {
			logging.Sugar.Errorf("[stream] save chunk %d of %s failed: %v", put.ChunkID, put.File, err)
			return
		}
	}
}

// Pusher opens outbound connections and pushes requested chunks to the
// requester, reading chunk bytes from disk and pacing both the header
// and payload to the local peer's advertised rate.
type Pusher struct {
	store          ChunkPather
	advertisedRate int64
}

// NewPusher builds a Pusher that reads chunks via store and paces sends
// at advertisedRate bytes/second.
func NewPusher(store ChunkPather, advertisedRate int64) *Pusher {
	return &Pusher{store: store, advertisedRate: advertisedRate}
}

// Push dials addr once and streams every chunk in chunks over that one
// connection, in order, closing when done. A missing chunk file is
// logged and skipped; the connection continues with the next chunk.
func (p *Pusher) Push(addr string, file string, chunks []int) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if p.advertisedRate <= 0 {
		warnZeroRate(fmt.Sprintf("push to %s", addr))
	}

	for _, chunkID := range chunks {
		path := p.store.ChunkPath(file, chunkID)
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Sugar.Warnf("[stream] missing chunk file %s, skipping: %v", path, err)
			continue
		}

		header := putHeader{File: file, ChunkID: chunkID, SenderRate: p.advertisedRate, ChunkSize: int64(len(data))}
		encoded, err := header.encode()
		if err != nil {
			logging.Sugar.Errorf("[stream] %v", err)
			continue
		}

		if err := writePaced(conn, encoded[:], p.advertisedRate); err != nil {
			return fmt.Errorf("send header for %s chunk %d: %w", file, chunkID, err)
		}
		if err := writePaced(conn, data, p.advertisedRate); err != nil {
			return fmt.Errorf("send payload for %s chunk %d: %w", file, chunkID, err)
		}
		metrics.RecordChunkPush(int64(len(data)))
	}
	return nil
}
