package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestTracker(t *testing.T) {
	tr := NewTracker(-1, false)
	tr.Batch(100, true)
	tr.Batch(100, false)
	tr.Batch(50, true)
	tr.Done()
	if tr.Reads() != 250 || tr.Written() != 150 {
		t.Fatalf("Reads(),Written()=%d,%d, want 250,150", tr.Reads(), tr.Written())
	}
	if all, emitted := tr.Batches(); all != 3 || emitted != 2 {
		t.Fatalf("Batches()=%d,%d, want 3,2", all, emitted)
	}
}

func TestNilTracker(t *testing.T) {
	var tr *Tracker
	tr.Batch(10, true)
	tr.Done()
	if tr.Reads() != 0 {
		t.Fatalf("Reads()=%d, want 0", tr.Reads())
	}
}

func TestResultSave(t *testing.T) {
	r := &Result{Accession: "SRR1", ReadCount: 10, Written: 5,
		Files: []string{"a_1.fq.gz", "a_2.fq.gz"}}
	path := filepath.Join(t.TempDir(), "summary.json")
	if err := r.Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal(%q) failed: %v", b, err)
	}
	if got["accession"] != "SRR1" || got["read_count"] != 10.0 {
		t.Fatalf("summary=%v, want accession SRR1 and read_count 10", got)
	}
}
