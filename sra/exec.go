package sra

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
	"strings"

	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/protocol"
	"github.com/fluhus/ngstream/record"
)

const (
	fastqDump = "fastq-dump"

	// Read names are <accession>.<spot>.<read-in-spot>.
	defline = "@$ac.$si.$ri"
)

// Substrings of fastq-dump errors that indicate missing permissions.
var authErrors = []string{"403", "access denied", "ngc", "permission", "dbgap"}

// ExecClient opens runs by streaming the output of fastq-dump.
type ExecClient struct {
	Exe  string   // Executable, defaults to fastq-dump on the path.
	NGC  string   // Credentials file for controlled-access runs.
	Args []string // Extra arguments.
}

// OpenRun starts fastq-dump on the given accession.
func (c *ExecClient) OpenRun(ctx context.Context, acc string) (Run, error) {
	if c.NGC != "" {
		if _, err := os.Stat(c.NGC); err != nil {
			return nil, common.AuthError(err, "credentials file %s", c.NGC)
		}
	}
	exe := c.Exe
	if exe == "" {
		exe = fastqDump
	}
	path, err := exec.LookPath(exe)
	if err != nil {
		return nil, common.ConnectionError(err, "find %s", exe)
	}
	args := []string{"--stdout", "--split-spot", "--skip-technical",
		"--defline-seq", defline, "--defline-qual", "+"}
	if c.NGC != "" {
		args = append(args, "--ngc", c.NGC)
	}
	args = append(args, c.Args...)
	args = append(args, acc)

	cmd := exec.CommandContext(ctx, path, args...)
	stderr := bytes.NewBuffer(nil)
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, common.ConnectionError(err, "start %s", exe)
	}
	if err := cmd.Start(); err != nil {
		return nil, common.ConnectionError(err, "start %s", exe)
	}
	next, stop := iter.Pull2(record.Reader(stdout))
	return &execRun{cmd: cmd, stderr: stderr, next: next, stop: stop}, nil
}

// A run streamed from a fastq-dump process. Consecutive records of the same
// spot form one fragment.
type execRun struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	next   func() (*record.Record, error, bool)
	stop   func()
	ahead  *record.Record // First record of the next spot.
	done   bool
	waited bool
}

func (r *execRun) ReadCount() int { return protocol.Unbounded }

// Splits a read name to its spot name and read number.
func spotOf(name []byte) (string, string) {
	s := string(name)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	i := strings.LastIndexByte(s, '.')
	if i <= 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

func (r *execRun) Next() (record.Fragment, error) {
	if r.done {
		return nil, io.EOF
	}
	var f record.Fragment
	spot := ""
	if r.ahead != nil {
		spot, _ = spotOf(r.ahead.Name)
		r.ahead.Name = []byte(spot)
		f = append(f, r.ahead)
		r.ahead = nil
	}
	for {
		rec, err, ok := r.next()
		if !ok {
			r.done = true
			if err := r.wait(); err != nil {
				return nil, err
			}
			if len(f) == 0 {
				return nil, io.EOF
			}
			return f, nil
		}
		if err != nil {
			r.done = true
			return nil, err
		}
		s, _ := spotOf(rec.Name)
		if len(f) == 0 {
			spot = s
			rec.Name = []byte(s)
			f = append(f, rec)
			continue
		}
		if s != spot {
			r.ahead = rec
			return f, nil
		}
		if len(f) == 2 {
			r.done = true
			return nil, common.FormatError(nil, "spot %s has more than 2 reads", spot)
		}
		rec.Name = []byte(s)
		f = append(f, rec)
	}
}

// Reaps the process and reports its failure.
func (r *execRun) wait() error {
	if r.waited {
		return nil
	}
	r.waited = true
	if err := r.cmd.Wait(); err != nil {
		msg := strings.TrimSpace(r.stderr.String())
		err = fmt.Errorf("%w\n%s", err, msg)
		lower := strings.ToLower(msg)
		for _, a := range authErrors {
			if strings.Contains(lower, a) {
				return common.AuthError(err, "fastq-dump")
			}
		}
		return common.ConnectionError(err, "fastq-dump")
	}
	return nil
}

func (r *execRun) Close() error {
	r.stop()
	if r.waited {
		return nil
	}
	r.waited = true
	if r.cmd.ProcessState == nil {
		r.cmd.Process.Kill()
	}
	r.cmd.Wait()
	return nil
}
