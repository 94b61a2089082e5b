// Package stats tracks streaming progress and holds the summary of a dump.
package stats

import (
	"fmt"

	"github.com/fluhus/gostuff/jio"
	"github.com/fluhus/gostuff/ptimer"
	"github.com/fluhus/ngstream/common"
)

// Result summarizes a finished session.
type Result struct {
	Accession string   `json:"accession"`
	Paired    bool     `json:"paired"`
	ReadCount int      `json:"read_count"` // Fragments selected.
	Written   int      `json:"written"`    // Fragments written.
	Batches   int      `json:"batches"`    // Batches formed.
	Emitted   int      `json:"emitted"`    // Batches written.
	Bytes     int64    `json:"bytes"`      // Uncompressed bytes written.
	Files     []string `json:"files"`
	Stop      string   `json:"stop"` // Why reading stopped.
}

func (r *Result) String() string {
	return fmt.Sprintf("Dumped %d of %d reads from %s to %v",
		r.Written, r.ReadCount, r.Accession, r.Files)
}

// Save writes the result as JSON.
func (r *Result) Save(file string) error {
	if err := jio.Save(file, r); err != nil {
		return common.IOError(err, "save summary")
	}
	return nil
}

// Tracker counts reads and batches, optionally showing progress on stderr.
// A nil tracker is valid and does nothing.
type Tracker struct {
	pt      *ptimer.Timer
	reads   int
	written int
	batches int
	emitted int
}

// NewTracker returns a tracker. total is the expected number of reads, or
// negative if unknown.
func NewTracker(total int, progress bool) *Tracker {
	t := &Tracker{}
	if progress {
		if total >= 0 {
			t.pt = ptimer.NewMessage(fmt.Sprintf("{} of %d reads streamed", total))
		} else {
			t.pt = ptimer.NewMessage("{} reads streamed")
		}
	}
	return t
}

// Batch records a batch of n fragments.
func (t *Tracker) Batch(n int, emitted bool) {
	if t == nil {
		return
	}
	t.reads += n
	t.batches++
	if emitted {
		t.written += n
		t.emitted++
	}
	if t.pt != nil {
		for range n {
			t.pt.Inc()
		}
	}
}

// Done stops the progress display.
func (t *Tracker) Done() {
	if t == nil || t.pt == nil {
		return
	}
	t.pt.Done()
	t.pt = nil
}

// Reads returns the number of fragments seen.
func (t *Tracker) Reads() int {
	if t == nil {
		return 0
	}
	return t.reads
}

// Written returns the number of fragments in emitted batches.
func (t *Tracker) Written() int {
	if t == nil {
		return 0
	}
	return t.written
}

// Batches returns the number of batches seen and emitted.
func (t *Tracker) Batches() (all, emitted int) {
	if t == nil {
		return 0, 0
	}
	return t.batches, t.emitted
}
