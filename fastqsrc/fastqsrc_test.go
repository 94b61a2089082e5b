package fastqsrc

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/record"
)

func writeFastq(t *testing.T, path string, names ...string) {
	var b []byte
	for _, n := range names {
		r, _ := record.New(n, "ACGT", "IIII")
		b = record.Append(b, r)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSingle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.fq")
	writeFastq(t, path, "a", "b", "c")
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", path, err)
	}
	defer r.Close()
	if r.Paired() || r.Accession() != "sample" || r.ReadCount() != -1 {
		t.Fatalf("Open(%q)=(%v,%q,%d), want (false,sample,-1)",
			path, r.Paired(), r.Accession(), r.ReadCount())
	}
	var names []string
	for {
		f, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		names = append(names, string(f[0].Name))
	}
	if len(names) != 3 || names[2] != "c" {
		t.Fatalf("names=%v, want [a b c]", names)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("Next() after end=%v, want EOF", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}

func TestPaired(t *testing.T) {
	dir := t.TempDir()
	p1, p2 := filepath.Join(dir, "s_1.fq"), filepath.Join(dir, "s_2.fq")
	writeFastq(t, p1, "x/1", "y/1")
	writeFastq(t, p2, "x/2", "y/2")
	r, err := Open(p1, p2)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer r.Close()
	if !r.Paired() || r.Accession() != "s" {
		t.Fatalf("Paired(),Accession()=%v,%q, want true,s", r.Paired(), r.Accession())
	}
	n := 0
	for {
		f, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		if !f.Paired() {
			t.Fatalf("fragment %d is not paired", n)
		}
		n++
	}
	if n != 2 {
		t.Fatalf("got %d fragments, want 2", n)
	}
}

func TestPairedLengthMismatch(t *testing.T) {
	dir := t.TempDir()
	p1, p2 := filepath.Join(dir, "s_1.fq"), filepath.Join(dir, "s_2.fq")
	writeFastq(t, p1, "x", "y")
	writeFastq(t, p2, "x")
	r, _ := Open(p1, p2)
	defer r.Close()
	r.Next()
	if _, err := r.Next(); !errors.Is(err, common.ErrFormat) {
		t.Fatalf("Next()=%v, want ErrFormat", err)
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.fq"))
	if !errors.Is(err, common.ErrConnection) {
		t.Fatalf("Open(missing)=%v, want ErrConnection", err)
	}
}

func TestName(t *testing.T) {
	for in, want := range map[string]string{
		"/a/SRR1_1.fq.gz": "SRR1",
		"x.fastq":         "x",
		"reads_R2.fq":     "reads",
		"_1.fq":           "_1",
	} {
		if got := Name(in); got != want {
			t.Errorf("Name(%q)=%q, want %q", in, got, want)
		}
	}
}
