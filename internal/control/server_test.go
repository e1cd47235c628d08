package control

import (
	"net"
	"testing"
	"time"

	"github.com/tkavi/p2pflood/internal/config"
	"github.com/tkavi/p2pflood/internal/discovery"
)

type fakeChunkStore struct {
	have         map[string][]int
	has          map[string]map[int]bool
	availChecked bool
}

func (f *fakeChunkStore) HasChunk(file string, i int) bool {
	return f.has[file][i]
}

func (f *fakeChunkStore) Available(file string) []int {
	f.availChecked = true
	return f.have[file]
}

type fakePusher struct {
	pushed chan string
}

func (f *fakePusher) Push(addr, file string, chunks []int) error {
	f.pushed <- addr
	return nil
}

func newTestServer(t *testing.T, neighbors []config.Endpoint, store ChunkStore, disc *discovery.Table, push Pusher) (*Server, config.Endpoint) {
	t.Helper()
	srv, err := New(config.Endpoint{IP: "127.0.0.1", Port: 0}, 100, neighbors, store, disc, push)
	if err != nil {
		t.Fatal(err)
	}
	addr := srv.conn.LocalAddr().(*net.UDPAddr)
	self := config.Endpoint{IP: "127.0.0.1", Port: addr.Port}
	srv.self = self
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv, self
}

func TestHandleDiscoverySuppressesSelfLoop(t *testing.T) {
	orig := InterSendInterval
	InterSendInterval = time.Millisecond
	defer func() { InterSendInterval = orig }()

	disc := discovery.New()
	store := &fakeChunkStore{has: map[string]map[int]bool{}}
	srv, self := newTestServer(t, nil, store, disc, &fakePusher{pushed: make(chan string, 1)})

	store.have = map[string][]int{"book.txt": {0}}

	srv.handleDiscovery(nil, discoveryMsg{File: "book.txt", TotalChunks: 1, TTL: 2, OriginIP: self.IP, OriginPort: self.Port})

	if store.availChecked {
		t.Fatal("self-originated DISCOVERY should return before consulting the local store")
	}
}

func TestResponseDroppedWhenWindowClosed(t *testing.T) {
	disc := discovery.New()
	disc.Init("book.txt", 1)
	store := &fakeChunkStore{has: map[string]map[int]bool{}}
	srv, _ := newTestServer(t, nil, store, disc, &fakePusher{pushed: make(chan string, 1)})

	srv.handleResponse(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9999}, responseMsg{File: "book.txt", Rate: 10, ChunkID: []int{0}})

	snap := disc.Snapshot("book.txt")
	if len(snap[0]) != 0 {
		t.Fatalf("expected RESPONSE dropped while window closed, got providers %v", snap[0])
	}
}

func TestResponseRecordedWhenWindowOpen(t *testing.T) {
	disc := discovery.New()
	disc.Init("book.txt", 1)
	disc.OpenWindow("book.txt")
	store := &fakeChunkStore{has: map[string]map[int]bool{}}
	srv, _ := newTestServer(t, nil, store, disc, &fakePusher{pushed: make(chan string, 1)})

	srv.handleResponse(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9999}, responseMsg{File: "book.txt", Rate: 10, ChunkID: []int{0}})

	snap := disc.Snapshot("book.txt")
	if len(snap[0]) != 1 {
		t.Fatalf("expected RESPONSE recorded while window open, got providers %v", snap[0])
	}
}

func TestHandleRequestDelegatesToPusher(t *testing.T) {
	disc := discovery.New()
	store := &fakeChunkStore{has: map[string]map[int]bool{}}
	pusher := &fakePusher{pushed: make(chan string, 1)}
	srv, _ := newTestServer(t, nil, store, disc, pusher)

	srv.handleRequest(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 5000}, requestMsg{File: "book.txt", StreamPort: 6000, ChunkID: []int{0}})

	select {
	case addr := <-pusher.pushed:
		if addr != "127.0.0.1:6000" {
			t.Fatalf("pushed to %q, want 127.0.0.1:6000", addr)
		}
	case <-time.After(time.Second):
		t.Fatal("handleRequest never called Pusher.Push")
	}
}
