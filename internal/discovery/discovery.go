// Package discovery tracks, per sought file, the candidate providers for
// each chunk and gates RESPONSE acceptance with a time-bounded window.
package discovery

import (
	"fmt"
	"sync"

	"github.com/tkavi/p2pflood/internal/config"
)

// ProviderRecord is a provider's claim to hold a chunk, tagged with its
// own self-advertised throughput.
type ProviderRecord struct {
	IP   string
	Port int
	Rate int64
}

func (p ProviderRecord) key() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// fileTable is the per-file provider vector plus response-window flag.
// The lock is created once and never destroyed; Clear only wipes the
// contained data, so a file that gets searched again after assembly
// reuses the same mutex instead of racing a fresh one into the map.
type fileTable struct {
	mu          sync.Mutex
	providers   [][]ProviderRecord // index == chunk id
	windowOpen  bool
	initialized bool
}

// Table owns DiscoveryTable(file) and ResponseWindow(file) for every
// file this peer has searched for.
type Table struct {
	mapMu sync.Mutex
	files map[string]*fileTable
}

// New returns an empty discovery table.
func New() *Table {
	return &Table{files: make(map[string]*fileTable)}
}

func (t *Table) entryFor(file string) *fileTable {
	t.mapMu.Lock()
	defer t.mapMu.Unlock()

	ft, ok := t.files[file]
	if !ok {
		ft = &fileTable{}
		t.files[file] = ft
	}
	return ft
}

// Init allocates a vector of totalChunks empty provider lists for file.
func (t *Table) Init(file string, totalChunks int) {
	ft := t.entryFor(file)
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.providers = make([][]ProviderRecord, totalChunks)
	ft.initialized = true
}

// Record appends provider to every chunk list named in chunks, unless
// that (ip, port) is already present in the list. Indices outside
// [0, total) are reported and skipped.
func (t *Table) Record(file string, chunks []int, provider ProviderRecord) []error {
	ft := t.entryFor(file)
	ft.mu.Lock()
	defer ft.mu.Unlock()

	var errs []error
	for _, i := range chunks {
		if i < 0 || i >= len(ft.providers) {
			errs = append(errs, fmt.Errorf("chunk index %d out of range [0,%d)", i, len(ft.providers)))
			continue
		}
		dup := false
		for _, existing := range ft.providers[i] {
			if existing.key() == provider.key() {
				dup = true
				break
			}
		}
		if !dup {
			ft.providers[i] = append(ft.providers[i], provider)
		}
	}
	return errs
}

// OpenWindow flips ResponseWindow(file) to true.
func (t *Table) OpenWindow(file string) {
	ft := t.entryFor(file)
	ft.mu.Lock()
	ft.windowOpen = true
	ft.mu.Unlock()
}

// CloseWindow flips ResponseWindow(file) to false.
func (t *Table) CloseWindow(file string) {
	ft := t.entryFor(file)
	ft.mu.Lock()
	ft.windowOpen = false
	ft.mu.Unlock()
}

// WindowOpen reports whether RESPONSE messages are currently accepted
// for file.
func (t *Table) WindowOpen(file string) bool {
	ft := t.entryFor(file)
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.windowOpen
}

// Snapshot returns a defensive copy of the provider vector for file, for
// the Assignment Planner to consume.
func (t *Table) Snapshot(file string) [][]ProviderRecord {
	ft := t.entryFor(file)
	ft.mu.Lock()
	defer ft.mu.Unlock()

	out := make([][]ProviderRecord, len(ft.providers))
	for i, list := range ft.providers {
		cp := make([]ProviderRecord, len(list))
		copy(cp, list)
		out[i] = cp
	}
	return out
}

// Clear destroys all per-file state for file. Safe to call even if file
// was never searched.
func (t *Table) Clear(file string) {
	ft := t.entryFor(file)
	ft.mu.Lock()
	ft.providers = nil
	ft.windowOpen = false
	ft.initialized = false
	ft.mu.Unlock()
}

// ProviderFromEndpoint builds a ProviderRecord from a config.Endpoint and
// a rate, for callers assembling records from wire-parsed addresses.
func ProviderFromEndpoint(ep config.Endpoint, rate int64) ProviderRecord {
	return ProviderRecord{IP: ep.IP, Port: ep.Port, Rate: rate}
}
