//go:build unix

package sink

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/record"
)

func requireShell(t *testing.T) {
	for _, exe := range []string{"sh", "cat"} {
		if _, err := exec.LookPath(exe); err != nil {
			t.Skipf("%s not available: %v", exe, err)
		}
	}
}

// Reads a fifo to the end in the background.
func drain(path string) <-chan string {
	c := make(chan string, 1)
	go func() {
		f, err := os.Open(path)
		if err != nil {
			c <- "error: " + err.Error()
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		c <- string(b)
	}()
	return c
}

func TestPairedFIFOs(t *testing.T) {
	requireShell(t)
	c := Config{Mode: Write, FIFO: true, Buffer: "cat", Grace: 5 * time.Second}
	paths := c.Paths(filepath.Join(t.TempDir(), "reads"), 2)
	s1, s2 := c.New(paths[0]).(*FIFO), c.New(paths[1]).(*FIFO)
	m, _ := NewMux(s1, s2)

	frags := []record.Fragment{
		{mustRecord(t, "p", "AC", "II"), mustRecord(t, "p", "GT", "HH")},
	}
	if err := m.WriteBatch(frags); err != nil {
		t.Fatalf("WriteBatch() failed: %v", err)
	}
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("Stat(%q) failed: %v", p, err)
		}
		if st.Mode()&os.ModeNamedPipe == 0 {
			t.Fatalf("%s mode=%v, want named pipe", p, st.Mode())
		}
	}
	if !s1.Running() || !s2.Running() {
		t.Fatalf("buffer processes not running after write")
	}
	r1, r2 := drain(paths[0]), drain(paths[1])
	if err := m.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if s1.Running() || s2.Running() {
		t.Fatalf("buffer processes still running after Close")
	}
	if got, want := <-r1, "@p\nAC\n+\nII\n"; got != want {
		t.Fatalf("fifo 1=%q, want %q", got, want)
	}
	if got, want := <-r2, "@p\nGT\n+\nHH\n"; got != want {
		t.Fatalf("fifo 2=%q, want %q", got, want)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
}

func TestFIFOWithoutReaderIsTerminated(t *testing.T) {
	requireShell(t)
	path := filepath.Join(t.TempDir(), "noreader.fq.fifo")
	s := NewFIFO(path, "cat", 100*time.Millisecond)
	if _, err := s.Write([]byte("@r\nA\n+\nI\n")); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if s.Running() {
		t.Fatalf("buffer process still running after Close")
	}
}

func TestFIFOPathIsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taken.fq.fifo")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFIFO(path, "cat", time.Second)
	defer s.Close()
	if _, err := s.Write([]byte("x")); !errors.Is(err, common.ErrIO) {
		t.Fatalf("Write()=%v, want ErrIO", err)
	}
}

func TestFIFOBufferFails(t *testing.T) {
	requireShell(t)
	path := filepath.Join(t.TempDir(), "bad.fq.fifo")
	s := NewFIFO(path, "echo oops >&2; exit 3", time.Second)
	s.Write([]byte("x"))
	err := s.Close()
	if !errors.Is(err, common.ErrIO) {
		t.Fatalf("Close()=%v, want ErrIO", err)
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Fatalf("Close()=%q, want the buffer's stderr", err)
	}
}

func TestFIFOBufferDoesNotStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nosh.fq.fifo")
	t.Setenv("PATH", "")
	s := NewFIFO(path, "cat", 200*time.Millisecond)
	if _, err := s.Write([]byte("@r\nA\n+\nI\n")); !errors.Is(err, common.ErrIO) {
		t.Fatalf("Write()=%v, want ErrIO", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close()=%v, want nil", err)
	}
	abs, _ := filepath.Abs(path)
	if slices.Contains(InUse(), abs) {
		t.Fatalf("%s still claimed after a failed start", path)
	}
	if s.Running() {
		t.Fatalf("Running()=true for a buffer that did not start")
	}
}

func TestFIFOTruncatedOutput(t *testing.T) {
	requireShell(t)
	path := filepath.Join(t.TempDir(), "slow.fq.fifo")
	s := NewFIFO(path, "sleep 2; cat", 300*time.Millisecond)
	if _, err := s.Write([]byte("@r\nA\n+\nI\n")); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	out := drain(path)
	time.Sleep(100 * time.Millisecond)
	if err := s.Close(); !errors.Is(err, common.ErrIO) {
		t.Fatalf("Close()=%v, want ErrIO", err)
	}
	if got := <-out; got != "" {
		t.Fatalf("reader got %q, want nothing", got)
	}
}
