package metadata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.txt.p2p")
	if err := os.WriteFile(path, []byte("book.txt\n10 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir, "book.txt")
	if err != nil {
		t.Fatal(err)
	}
	if m.DeclaredName != "book.txt" || m.TotalChunks != 10 || m.InitialTTL != 3 {
		t.Fatalf("got %+v, want {book.txt 10 3}", m)
	}
}

func TestLoadReturnsSentinelOnMissingFile(t *testing.T) {
	m, err := Load(t.TempDir(), "missing.txt")
	if err == nil {
		t.Fatal("expected error for missing sidecar")
	}
	if !m.IsSentinel() {
		t.Fatalf("expected sentinel value, got %+v", m)
	}
}

func TestLoadReturnsSentinelOnShortSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.txt.p2p")
	if err := os.WriteFile(path, []byte("book.txt\n10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir, "book.txt")
	if err == nil {
		t.Fatal("expected error for sidecar with too few fields")
	}
	if !m.IsSentinel() {
		t.Fatalf("expected sentinel value, got %+v", m)
	}
}
