// Rate pacing for the stream transport: a coarse, easily auditable
// pacer that caps throughput at approximately the advertised rate by
// sleeping one second between rate-sized blocks.
package stream

import (
	"io"
	"time"

	"github.com/tkavi/p2pflood/internal/logging"
)

// pacingInterval is the fixed sleep between blocks.
var pacingInterval = time.Second

// writePaced writes data to w in blocks of at most rate bytes, sleeping
// pacingInterval between blocks. rate <= 0 means unpaced: a
// misconfigured zero rate is treated as "send as fast as possible"
// rather than a divide-by-zero.
func writePaced(w io.Writer, data []byte, rate int64) error {
	if rate <= 0 {
		_, err := w.Write(data)
		return err
	}

	for len(data) > 0 {
		n := int64(len(data))
		if n > rate {
			n = rate
		}
		if _, err := w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
		if len(data) > 0 {
			time.Sleep(pacingInterval)
		}
	}
	return nil
}

// readChunked reads exactly len(buf) bytes from r, issuing reads of at
// most rate bytes at a time and assembling the result across those
// partial reads. Unlike writePaced, the receiver does not sleep
// between reads: TCP
// backpressure from the sender's own pacing is what actually limits
// throughput; chunking here only bounds how much is requested per
// io.ReadFull call.
func readChunked(r io.Reader, buf []byte, rate int64) error {
	if rate <= 0 {
		_, err := io.ReadFull(r, buf)
		return err
	}

	read := 0
	for read < len(buf) {
		want := int64(len(buf) - read)
		if want > rate {
			want = rate
		}
		n, err := io.ReadFull(r, buf[read:int64(read)+want])
		read += n
		if err != nil {
			return err
		}
	}
	return nil
}

func warnZeroRate(context string) {
	logging.Sugar.Warnf("[stream] %s: advertised rate is 0, sending unpaced", context)
}
