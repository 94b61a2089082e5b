// Package selector restricts a fragment stream to a range of global read
// indices.
package selector

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/record"
)

// Unbounded marks an unset Last or Limit.
const Unbounded = -1

// Defaults for batch size and step.
const (
	DefaultSize = 1000
	DefaultStep = 1
)

// Spec selects reads First..Last (inclusive, 0-based) and groups them in
// batches of Size, keeping every Step-th batch.
type Spec struct {
	First int
	Last  int // Unbounded for no upper bound.
	Size  int
	Step  int
}

// DefaultSpec returns a spec selecting all reads in batches of DefaultSize.
func DefaultSpec() Spec {
	return Spec{First: 0, Last: Unbounded, Size: DefaultSize, Step: DefaultStep}
}

// Validate checks the spec's invariants.
func (s Spec) Validate() error {
	if s.First < 0 {
		return common.RangeError("first read %d is negative", s.First)
	}
	if s.Last != Unbounded && s.Last < s.First {
		return common.RangeError("last read %d is before first read %d",
			s.Last, s.First)
	}
	if s.Size < 1 {
		return common.RangeError("batch size %d is less than 1", s.Size)
	}
	if s.Step < 1 {
		return common.RangeError("batch step %d is less than 1", s.Step)
	}
	return nil
}

func (s Spec) String() string {
	last := ""
	if s.Last != Unbounded {
		last = strconv.Itoa(s.Last)
	}
	return fmt.Sprintf("%d:%s:%d:%d", s.First, last, s.Size, s.Step)
}

// ParseSlice parses FIRST:LAST:SIZE:STEP. Empty fields take their default
// value.
func ParseSlice(s string) (Spec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return Spec{}, common.RangeError(
			"slice %q should have the form FIRST:LAST:SIZE:STEP", s)
	}
	spec := DefaultSpec()
	fields := []*int{&spec.First, &spec.Last, &spec.Size, &spec.Step}
	for i, p := range parts {
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Spec{}, common.RangeError("slice %q: bad number %q", s, p)
		}
		*fields[i] = n
	}
	return spec, spec.Validate()
}

// Source is a pull-based fragment stream that returns io.EOF when exhausted.
type Source interface {
	Next() (record.Fragment, error)
}

// Selector passes through the source fragments whose index is in
// [First, Last], and stops pulling once Last or the item limit is reached.
type Selector struct {
	src    Source
	first  int
	last   int
	limit  int
	ctx    context.Context
	index  int // Index of the next fragment to pull from src.
	n      int // Fragments returned so far.
	done   bool
	reason string
}

// New returns a selector over src. limit is the maximal number of fragments to
// return, or Unbounded.
func New(ctx context.Context, src Source, spec Spec, limit int) (*Selector, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if limit != Unbounded && limit < 0 {
		return nil, common.RangeError("item limit %d is negative", limit)
	}
	return &Selector{src: src, first: spec.First, last: spec.Last,
		limit: limit, ctx: ctx}, nil
}

// more is the single continue predicate, evaluated before every pull.
func (s *Selector) more() bool {
	switch {
	case s.done:
	case s.limit != Unbounded && s.n >= s.limit:
		s.reason = "item limit"
	case s.last != Unbounded && s.index > s.last:
		s.reason = "last read"
	case s.ctx.Err() != nil:
		s.reason = "canceled"
	default:
		return true
	}
	s.done = true
	return false
}

// Next returns the next selected fragment, or io.EOF when the selection is
// complete. Fragments before First are pulled and dropped.
func (s *Selector) Next() (record.Fragment, error) {
	for s.more() {
		f, err := s.src.Next()
		if err == io.EOF {
			s.done, s.reason = true, "exhausted"
			break
		}
		if err != nil {
			return nil, err
		}
		i := s.index
		s.index++
		if i < s.first {
			continue
		}
		s.n++
		return f, nil
	}
	if s.reason == "canceled" {
		return nil, s.ctx.Err()
	}
	return nil, io.EOF
}

// Count returns the number of fragments returned so far.
func (s *Selector) Count() int {
	return s.n
}

// Pulled returns the number of fragments pulled from the source.
func (s *Selector) Pulled() int {
	return s.index
}

// StopReason returns why the selector stopped, or an empty string if it has
// not.
func (s *Selector) StopReason() string {
	return s.reason
}

// Expected returns how many fragments a selector with this spec returns from a
// source of total fragments, or Unbounded if that cannot be known.
func (s Spec) Expected(total, limit int) int {
	n := Unbounded
	if total != Unbounded {
		n = max(0, total-s.First)
	}
	if s.Last != Unbounded {
		n = minBounded(n, s.Last-s.First+1)
	}
	return minBounded(n, limit)
}

func minBounded(a, b int) int {
	if a == Unbounded {
		return b
	}
	if b == Unbounded {
		return a
	}
	return min(a, b)
}
