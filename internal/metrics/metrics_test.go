package metrics

import "testing"

func TestRecordChunkPushAccumulates(t *testing.T) {
	Global.TransferBytes = 0
	Global.TransferCount = 0

	RecordChunkPush(100)
	RecordChunkPush(50)

	if Global.TransferBytes != 150 {
		t.Fatalf("TransferBytes = %d, want 150", Global.TransferBytes)
	}
	if Global.TransferCount != 2 {
		t.Fatalf("TransferCount = %d, want 2", Global.TransferCount)
	}
}
