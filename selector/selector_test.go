package selector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/record"
)

// Yields n single-record fragments named by their index.
type countSource struct {
	n, i   int
	pulled int
}

func (c *countSource) Next() (record.Fragment, error) {
	if c.i >= c.n {
		return nil, io.EOF
	}
	r, _ := record.New(fmt.Sprint(c.i), "A", "I")
	c.i++
	c.pulled++
	return record.Fragment{r}, nil
}

func collect(t *testing.T, s *Selector) []string {
	var names []string
	for {
		f, err := s.Next()
		if err == io.EOF {
			return names
		}
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		names = append(names, string(f[0].Name))
	}
}

func TestSelectorCounts(t *testing.T) {
	tests := []struct {
		available, first, last, limit int
	}{
		{10, 0, Unbounded, Unbounded},
		{10, 2, 5, Unbounded},
		{10, 2, 5, 2},
		{10, 8, 20, Unbounded},
		{10, 12, 20, Unbounded},
		{10, 0, Unbounded, 0},
		{5000, 2500, 2999, Unbounded},
		{10, 3, 3, 100},
	}
	for _, test := range tests {
		spec := Spec{First: test.first, Last: test.last, Size: 3, Step: 1}
		src := &countSource{n: test.available}
		s, err := New(context.Background(), src, spec, test.limit)
		if err != nil {
			t.Fatalf("New(%v) failed: %v", spec, err)
		}
		got := collect(t, s)
		want := spec.Expected(test.available, test.limit)
		if len(got) != want {
			t.Fatalf("Selector(%v, %d) returned %d, want %d",
				spec, test.limit, len(got), want)
		}
		for i, name := range got {
			if name != fmt.Sprint(test.first+i) {
				t.Fatalf("Selector(%v)[%d]=%s, want %d", spec, i, name, test.first+i)
			}
		}
		if s.Count() != want {
			t.Fatalf("Count()=%d, want %d", s.Count(), want)
		}
	}
}

func TestSelectorStopsEarly(t *testing.T) {
	src := &countSource{n: 1000}
	s, _ := New(context.Background(), src, Spec{First: 10, Last: 19, Size: 1, Step: 1}, Unbounded)
	collect(t, s)
	if src.pulled != 20 {
		t.Fatalf("pulled %d fragments, want 20", src.pulled)
	}
	if s.StopReason() != "last read" {
		t.Fatalf("StopReason()=%q, want %q", s.StopReason(), "last read")
	}

	src = &countSource{n: 1000}
	s, _ = New(context.Background(), src, DefaultSpec(), 5)
	collect(t, s)
	if src.pulled != 5 {
		t.Fatalf("pulled %d fragments, want 5", src.pulled)
	}
	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("Next() after end=%v, want EOF", err)
	}
}

func TestSelectorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, _ := New(ctx, &countSource{n: 10}, DefaultSpec(), Unbounded)
	if _, err := s.Next(); err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	cancel()
	if _, err := s.Next(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Next()=%v, want context.Canceled", err)
	}
}

func TestParseSlice(t *testing.T) {
	tests := []struct {
		in   string
		want Spec
	}{
		{"0:999:100:2", Spec{0, 999, 100, 2}},
		{"5::10:1", Spec{5, Unbounded, 10, 1}},
		{":::", DefaultSpec()},
		{"2500:2999::", Spec{2500, 2999, DefaultSize, DefaultStep}},
	}
	for _, test := range tests {
		got, err := ParseSlice(test.in)
		if err != nil {
			t.Fatalf("ParseSlice(%q) failed: %v", test.in, err)
		}
		if got != test.want {
			t.Fatalf("ParseSlice(%q)=%v, want %v", test.in, got, test.want)
		}
	}
}

func TestParseSliceBad(t *testing.T) {
	for _, in := range []string{"", "1:2:3", "a:2:3:4", "5:4:1:1", "0:1:0:1", "0:1:1:0", "-1:::"} {
		if _, err := ParseSlice(in); !errors.Is(err, common.ErrRange) {
			t.Errorf("ParseSlice(%q)=%v, want ErrRange", in, err)
		}
	}
}
