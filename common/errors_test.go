package common

import (
	"errors"
	"io"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ConnectionError(io.EOF, "open %s", "SRR1"), "connection error"},
		{AuthError(nil, "no token"), "auth error"},
		{RangeError("last %d < first %d", 1, 2), "range error"},
		{IOError(io.ErrShortWrite, "write"), "io error"},
		{FormatError(nil, "bad record"), "format error"},
		{io.EOF, ""},
	}
	for _, test := range tests {
		if got := Kind(test.err); got != test.want {
			t.Errorf("Kind(%v)=%q, want %q", test.err, got, test.want)
		}
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := IOError(io.ErrShortWrite, "write %s", "a.fq")
	if !errors.Is(err, ErrIO) {
		t.Fatalf("errors.Is(%v, ErrIO)=false, want true", err)
	}
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("errors.Is(%v, io.ErrShortWrite)=false, want true", err)
	}
	if got, want := err.Error(), "io error: write a.fq: short write"; got != want {
		t.Fatalf("Error()=%q, want %q", got, want)
	}
}

func TestWrapKeepsCategory(t *testing.T) {
	err := IOError(FormatError(nil, "bad"), "write")
	if got := Kind(err); got != "format error" {
		t.Fatalf("Kind(%v)=%q, want %q", err, got, "format error")
	}
}

func TestPercf(t *testing.T) {
	if got, want := Percf(1, 3, 1), "33.3%"; got != want {
		t.Fatalf("Percf(1,3,1)=%q, want %q", got, want)
	}
	if got, want := Percf(1, 0, 0), "0%"; got != want {
		t.Fatalf("Percf(1,0,0)=%q, want %q", got, want)
	}
}
