// Package store persists chunk artifacts on disk for a single peer and
// assembles the complete file once every chunk has arrived.
//
// On-disk layout: for peer P under root <root>, chunk files live at
// <root>/<P>/<name>.ch<i>; the assembled file is written to
// <root>/<P>/<name>.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/tkavi/p2pflood/internal/logging"
)

var chunkFileRe = regexp.MustCompile(`^(.+)\.ch(\d+)$`)

// fileState is the per-file lock + local chunk set. The lock itself is
// never destroyed while the process runs; only the contained chunk set
// is ever reset, so a file that is searched for again after assembly
// never races a second lock into existence for the same name.
type fileState struct {
	mu    sync.Mutex
	set   map[int]struct{}
	total int // -1 until known
}

// Store owns LocalChunkSet(file) for every file this peer has touched.
type Store struct {
	dir string

	mapMu sync.Mutex
	files map[string]*fileState

	onAssembled func(file string)
}

// New returns a Store rooted at <root>/<peerID>, creating the directory
// if it does not yet exist.
func New(root string, peerID int) (*Store, error) {
	dir := filepath.Join(root, strconv.Itoa(peerID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create peer directory: %w", err)
	}
	return &Store{
		dir:   dir,
		files: make(map[string]*fileState),
	}, nil
}

// Dir returns the peer-scoped root directory.
func (s *Store) Dir() string { return s.dir }

// OnAssembled registers a callback invoked after a file's chunks are
// successfully concatenated. The peer coordinator uses this to clear
// the Discovery Table's per-file state, since a completed file has no
// further use for its provider bookkeeping.
func (s *Store) OnAssembled(f func(file string)) {
	s.onAssembled = f
}

func (s *Store) stateFor(file string) *fileState {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	st, ok := s.files[file]
	if !ok {
		st = &fileState{set: make(map[int]struct{}), total: -1}
		s.files[file] = st
	}
	return st
}

// ScanLocal enumerates the peer directory on startup and populates
// LocalChunkSet for every "<name>.ch<i>" artifact found.
func (s *Store) ScanLocal() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", s.dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := chunkFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		st := s.stateFor(m[1])
		st.mu.Lock()
		st.set[idx] = struct{}{}
		st.mu.Unlock()
	}
	return nil
}

// SetTotal records the expected chunk count for file, learned from its
// metadata sidecar. It must be called before Assemble can succeed.
func (s *Store) SetTotal(file string, total int) {
	st := s.stateFor(file)
	st.mu.Lock()
	st.total = total
	st.mu.Unlock()
}

// HasChunk reports whether chunk i of file is present on disk.
func (s *Store) HasChunk(file string, i int) bool {
	st := s.stateFor(file)
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.set[i]
	return ok
}

// Available returns a sorted snapshot of the chunk indices present
// locally for file.
func (s *Store) Available(file string) []int {
	st := s.stateFor(file)
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]int, 0, len(st.set))
	for i := range st.set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// ChunkPath returns the on-disk path of chunk i of file, used by the
// Stream Transport's sender side to read chunk bytes off disk.
func (s *Store) ChunkPath(file string, i int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.ch%d", file, i))
}

func (s *Store) assembledPath(file string) string {
	return filepath.Join(s.dir, file)
}

// SaveChunk writes bytes to disk as chunk i of file, records it in
// LocalChunkSet, and attempts assembly while still holding the
// per-file lock so "complete the set + assemble" happens as one
// atomic step, never interleaved with another save on the same file.
// Returns whether this save triggered assembly.
func (s *Store) SaveChunk(file string, i int, data []byte) (bool, error) {
	st := s.stateFor(file)
	st.mu.Lock()
	defer st.mu.Unlock()

	path := s.ChunkPath(file, i)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("write chunk %d of %s: %w", i, file, err)
	}
	st.set[i] = struct{}{}

	return s.assembleLocked(file, st)
}

// Assemble attempts assembly of file under its per-file lock, without
// first saving a chunk (used at search start: a peer may already hold
// every chunk).
func (s *Store) Assemble(file string) (bool, error) {
	st := s.stateFor(file)
	st.mu.Lock()
	defer st.mu.Unlock()
	return s.assembleLocked(file, st)
}

// assembleLocked must be called with st.mu held. If the local set is
// complete, it concatenates ch0..ch(n-1) into the final file and clears
// the discovery state for file via the registered clear hook.
func (s *Store) assembleLocked(file string, st *fileState) (bool, error) {
	if st.total < 0 || len(st.set) != st.total {
		return false, nil
	}

	out, err := os.Create(s.assembledPath(file))
	if err != nil {
		return false, fmt.Errorf("create assembled file %s: %w", file, err)
	}
	defer out.Close()

	for i := 0; i < st.total; i++ {
		if err := appendChunk(out, s.ChunkPath(file, i)); err != nil {
			return false, fmt.Errorf("assemble %s: %w", file, err)
		}
	}

	logging.Sugar.Infof("[store] assembled %s (%d chunks)", file, st.total)

	if s.onAssembled != nil {
		s.onAssembled(file)
	}
	return true, nil
}

func appendChunk(out *os.File, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	_, err = out.Write(data)
	return err
}
