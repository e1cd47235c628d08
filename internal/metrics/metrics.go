// Package metrics tracks simple runtime and transfer counters and logs
// them periodically, tracking the chunk-push throughput this engine
// actually produces.
package metrics

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/tkavi/p2pflood/internal/logging"
)

// Counters holds process-wide transfer counters.
type Counters struct {
	TransferBytes int64
	TransferCount int64
	ServerStart   time.Time
}

// Global is the process-wide counters instance.
var Global = &Counters{ServerStart: time.Now()}

// RecordChunkPush records one completed chunk push of n bytes.
func RecordChunkPush(n int64) {
	atomic.AddInt64(&Global.TransferBytes, n)
	atomic.AddInt64(&Global.TransferCount, 1)
}

// LogPeriodic logs goroutine count, heap stats, and cumulative transfer
// throughput every interval, until stop is closed.
func LogPeriodic(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			elapsed := time.Since(Global.ServerStart).Seconds()
			var throughput float64
			if elapsed > 0 {
				throughput = float64(atomic.LoadInt64(&Global.TransferBytes)) / elapsed / 1024 / 1024
			}

			logging.Sugar.Infof("[metrics] goroutines=%d heap_alloc_mb=%d heap_sys_mb=%d throughput_mb_s=%.2f chunk_pushes=%d",
				runtime.NumGoroutine(),
				m.HeapAlloc/1024/1024,
				m.HeapSys/1024/1024,
				throughput,
				atomic.LoadInt64(&Global.TransferCount),
			)
		}
	}
}
