package stream

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeStore struct {
	dir    string
	saved  chan struct{}
}

func (f *fakeStore) SaveChunk(file string, i int, data []byte) (bool, error) {
	if err := os.WriteFile(filepath.Join(f.dir, file), data, 0o644); err != nil {
		return false, err
	}
	f.saved <- struct{}{}
	return true, nil
}

func (f *fakeStore) ChunkPath(file string, i int) string {
	return filepath.Join(f.dir, file)
}

func TestPusherPushDeliversChunkToServer(t *testing.T) {
	orig := pacingInterval
	pacingInterval = time.Millisecond
	defer func() { pacingInterval = orig }()

	senderDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(senderDir, "book.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	sender := &fakeStore{dir: senderDir}

	receiverDir := t.TempDir()
	receiver := &fakeStore{dir: receiverDir, saved: make(chan struct{}, 1)}

	srv, err := NewServer("127.0.0.1:0", receiver)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()
	go srv.Serve()

	pusher := NewPusher(sender, 4)
	addr := srv.listener.Addr().String()
	if err := pusher.Push(addr, "book.txt", []int{0}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-receiver.saved:
	case <-time.After(5 * time.Second):
		t.Fatal("receiver never saved the pushed chunk")
	}

	got, err := os.ReadFile(filepath.Join(receiverDir, "book.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("received %q, want %q", got, "hello world")
	}
}
