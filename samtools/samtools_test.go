package samtools

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

const header = "@HD\tVN:1.6\n@SQ\tSN:chr1\tLN:1000\n"

func samInput(n int) string {
	buf := &strings.Builder{}
	buf.WriteString(header)
	for i := range n {
		fmt.Fprintf(buf, "r%d\t0\tchr1\t%d\t60\t4M\t*\t0\t0\tACGT\tIIII\n", i, i+1)
	}
	return buf.String()
}

func TestView(t *testing.T) {
	if !Available() {
		t.Skip("samtools not available")
	}
	var names []string
	for sm, err := range View(context.Background(), strings.NewReader(samInput(3))) {
		if err != nil {
			t.Fatalf("View() failed: %v", err)
		}
		names = append(names, sm.Qname)
	}
	if got, want := strings.Join(names, ","), "r0,r1,r2"; got != want {
		t.Fatalf("View()=%v, want %v", got, want)
	}
}

func TestViewBreak(t *testing.T) {
	if !Available() {
		t.Skip("samtools not available")
	}
	n := 0
	for _, err := range View(context.Background(), strings.NewReader(samInput(100000))) {
		if err != nil {
			t.Fatalf("View() failed: %v", err)
		}
		n++
		if n == 10 {
			break
		}
	}
	if n != 10 {
		t.Fatalf("got %d lines, want 10", n)
	}
}

func TestViewBadInput(t *testing.T) {
	if !Available() {
		t.Skip("samtools not available")
	}
	var gotErr error
	for _, err := range View(context.Background(), strings.NewReader("not a bam file")) {
		if err != nil {
			gotErr = err
		}
	}
	if gotErr == nil {
		t.Fatalf("View(garbage) succeeded, want error")
	}
}
