package discovery

import "testing"

func TestRecordDeduplicatesSameProvider(t *testing.T) {
	table := New()
	table.Init("book.txt", 2)

	p := ProviderRecord{IP: "10.0.0.2", Port: 9000, Rate: 100}
	if errs := table.Record("book.txt", []int{0, 1}, p); errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if errs := table.Record("book.txt", []int{0}, p); errs != nil {
		t.Fatalf("unexpected errors on re-record: %v", errs)
	}

	snap := table.Snapshot("book.txt")
	if len(snap[0]) != 1 {
		t.Fatalf("chunk 0 providers = %d, want 1 (dedup)", len(snap[0]))
	}
	if len(snap[1]) != 1 {
		t.Fatalf("chunk 1 providers = %d, want 1", len(snap[1]))
	}
}

func TestRecordOutOfRangeChunkReportsError(t *testing.T) {
	table := New()
	table.Init("book.txt", 2)

	errs := table.Record("book.txt", []int{5}, ProviderRecord{IP: "10.0.0.2", Port: 9000, Rate: 1})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for out-of-range chunk, got %v", errs)
	}
}

func TestResponseWindowLifecycle(t *testing.T) {
	table := New()
	table.Init("book.txt", 1)

	if table.WindowOpen("book.txt") {
		t.Fatal("window should start closed")
	}
	table.OpenWindow("book.txt")
	if !table.WindowOpen("book.txt") {
		t.Fatal("window should be open after OpenWindow")
	}
	table.CloseWindow("book.txt")
	if table.WindowOpen("book.txt") {
		t.Fatal("window should be closed after CloseWindow")
	}
}

func TestClearResetsButLockSurvives(t *testing.T) {
	table := New()
	table.Init("book.txt", 1)
	table.Record("book.txt", []int{0}, ProviderRecord{IP: "10.0.0.2", Port: 9000, Rate: 1})
	table.OpenWindow("book.txt")

	table.Clear("book.txt")

	if table.WindowOpen("book.txt") {
		t.Fatal("window should be closed after Clear")
	}
	snap := table.Snapshot("book.txt")
	if len(snap) != 0 {
		t.Fatalf("providers should be empty after Clear, got %v", snap)
	}

	// Re-init and record again to confirm the entry is still usable
	// (the lock was never destroyed, only its contents).
	table.Init("book.txt", 1)
	table.Record("book.txt", []int{0}, ProviderRecord{IP: "10.0.0.3", Port: 9001, Rate: 2})
	snap = table.Snapshot("book.txt")
	if len(snap[0]) != 1 {
		t.Fatalf("expected 1 provider after re-init, got %d", len(snap[0]))
	}
}
