package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clickship/internal/model"
)

func TestJsonlStoragePutSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "snapshots.jsonl")
	s := NewJsonlStorage(path)

	today := uint64(3)
	for i := uint64(1); i <= 2; i++ {
		snap := model.Snapshot{
			TakenAt:      time.Unix(1_700_000_000+int64(i), 0).UTC(),
			CurrentBlock: 100 + i,
			Gm:           &model.GmReadModel{Today: &today},
		}
		if err := s.PutSnapshot(snap); err != nil {
			t.Fatalf("put snapshot %d: %v", i, err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var blocks []uint64
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var snap model.Snapshot
		if err := json.Unmarshal(scanner.Bytes(), &snap); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		blocks = append(blocks, snap.CurrentBlock)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(blocks) != 2 || blocks[0] != 101 || blocks[1] != 102 {
		t.Fatalf("lines mismatch: %v", blocks)
	}
}
