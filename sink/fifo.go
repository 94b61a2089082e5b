//go:build unix

package sink

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/fluhus/ngstream/common"
)

// FIFO is a named-pipe sink. Data is written to the stdin of a buffer process
// whose output is redirected into the pipe, so writes do not block while no
// reader is attached.
type FIFO struct {
	path   string
	buffer string
	grace  time.Duration
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	done   chan error // Receives the buffer process's exit status.
	key    string
	n      int64
	closed bool
}

// NewFIFO returns an unopened FIFO sink. buffer is a shell command that copies
// stdin to stdout. grace is how long Close waits for the buffer to drain into
// the pipe before terminating it.
func NewFIFO(path, buffer string, grace time.Duration) *FIFO {
	return &FIFO{path: path, buffer: buffer, grace: grace}
}

func (f *FIFO) Path() string   { return f.path }
func (f *FIFO) Written() int64 { return f.n }

// Makes the named pipe. An existing pipe is reused.
func mkfifo(path string) error {
	err := syscall.Mkfifo(path, 0o644)
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrExist) {
		st, serr := os.Stat(path)
		if serr == nil && st.Mode()&os.ModeNamedPipe != 0 {
			return nil
		}
		return common.IOError(err, "create fifo %s: path exists and is not a fifo", path)
	}
	return common.IOError(err, "create fifo %s", path)
}

func (f *FIFO) open() error {
	key, err := claim(f.path)
	if err != nil {
		return err
	}
	if err := mkfifo(f.path); err != nil {
		release(key)
		return err
	}
	cmd := exec.Command("sh", "-c",
		fmt.Sprintf("%s > %s", f.buffer, shellQuote(f.path)))
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = time.Second
	stderr := bytes.NewBuffer(nil)
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		release(key)
		return common.IOError(err, "start buffer for %s", f.path)
	}
	if err := cmd.Start(); err != nil {
		release(key)
		return common.IOError(err, "start buffer %q for %s", f.buffer, f.path)
	}
	f.cmd, f.stdin, f.stderr, f.key = cmd, stdin, stderr, key
	f.done = make(chan error, 1)
	go func() {
		f.done <- cmd.Wait()
	}()
	return nil
}

func (f *FIFO) Write(p []byte) (int, error) {
	if f.closed {
		return 0, common.IOError(os.ErrClosed, "write %s", f.path)
	}
	if f.cmd == nil {
		if err := f.open(); err != nil {
			return 0, err
		}
	}
	n, err := f.stdin.Write(p)
	f.n += int64(n)
	if err != nil {
		// The buffer's stderr is reported by Close.
		return n, common.IOError(err, "write %s", f.path)
	}
	return n, nil
}

// Close closes the buffer's input and waits up to the grace period for it to
// exit, then terminates it. Terminating a buffer that a reader is attached to
// loses the data it held, which is reported as an error. The pipe file is left
// in place for readers. Calling Close more than once has no effect.
func (f *FIFO) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.cmd == nil {
		return nil
	}
	defer release(f.key)
	f.stdin.Close()

	var err error
	select {
	case err = <-f.done:
	case <-time.After(f.grace):
		attached := hasReader(f.path)
		syscall.Kill(-f.cmd.Process.Pid, syscall.SIGTERM)
		<-f.done
		if attached {
			return common.IOError(nil,
				"buffer for %s did not drain within %v, output is truncated",
				f.path, f.grace)
		}
		return nil
	}
	if err != nil {
		return common.IOError(fmt.Errorf("%w\n%s", err, f.stderr.Bytes()),
			"buffer for %s", f.path)
	}
	return nil
}

// Returns true if a reader has the pipe open.
func hasReader(path string) bool {
	fd, err := syscall.Open(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return false
	}
	syscall.Close(fd)
	return true
}

// Running returns true if the buffer process was started and has not been
// reaped.
func (f *FIFO) Running() bool {
	return f.cmd != nil && f.cmd.ProcessState == nil
}

// Quotes s for sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
