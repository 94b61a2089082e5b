// Package samtools provides functionality for running samtools.
package samtools

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os/exec"

	"github.com/fluhus/biostuff/formats/sam"
)

const (
	exe = "samtools"
)

// View runs "samtools view" on the given BAM stream and returns a real-time
// iterator over the resulting SAM lines, without the header. Canceling ctx or
// breaking out of the loop kills the process.
func View(ctx context.Context, bam io.Reader, args ...string) iter.Seq2[*sam.SAM, error] {
	return Run(ctx, bam, append([]string{"view"}, args...)...)
}

// Run runs samtools with the given arguments, with bam as its input, and
// returns a real-time iterator over the SAM lines it prints.
func Run(ctx context.Context, bam io.Reader, args ...string) iter.Seq2[*sam.SAM, error] {
	return func(yield func(*sam.SAM, error) bool) {
		path, err := exec.LookPath(exe)
		if err != nil {
			yield(nil, fmt.Errorf("find %s: %w", exe, err))
			return
		}
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		cmd := exec.CommandContext(ctx, path, append(args, "-")...)
		stderr := bytes.NewBuffer(nil)
		cmd.Stderr = stderr
		cmd.Stdin = bam
		r, err := cmd.StdoutPipe()
		if err != nil {
			yield(nil, err)
			return
		}
		if err := cmd.Start(); err != nil {
			yield(nil, fmt.Errorf("start %s: %w", exe, err))
			return
		}
		for sm, err := range sam.Reader(r) {
			if !yield(sm, err) {
				cancel()
				cmd.Wait()
				return
			}
			if err != nil {
				cancel()
				cmd.Wait()
				return
			}
		}
		if err := cmd.Wait(); err != nil {
			yield(nil, fmt.Errorf("%w\n%s", err, stderr.Bytes()))
		}
	}
}

// Available returns true if samtools is on the path.
func Available() bool {
	_, err := exec.LookPath(exe)
	return err == nil
}
