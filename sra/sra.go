// Package sra streams reads of an archive run accession.
package sra

import (
	"context"
	"io"
	"os"
	"regexp"

	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/protocol"
	"github.com/fluhus/ngstream/record"
)

// Run accessions of the SRA, ENA and DDBJ archives.
var accessionRE = regexp.MustCompile(`^[SED]RR\d+$`)

// Client opens runs on an archive service.
type Client interface {
	OpenRun(ctx context.Context, accession string) (Run, error)
}

// Run is an open read collection, streamed from its first read. ReadCount
// returns protocol.Unbounded if the size is not known upfront.
type Run interface {
	ReadCount() int
	Next() (record.Fragment, error)
	Close() error
}

// Config configures an SRA source.
type Config struct {
	Client        Client // Defaults to an ExecClient.
	RequirePaired bool   // Fail if the run is single-end.
	SingleEnd     bool   // Stream mates as separate fragments.
}

// Protocol is an open SRA run.
type Protocol struct {
	accession string
	run       Run
	paired    bool
	mates     int               // Records per upstream fragment.
	pending   []record.Fragment // Peeked or split fragments.
	singleEnd bool
	done      bool
	closed    bool
}

// ValidAccession returns true if acc is a run accession or an existing local
// run file.
func ValidAccession(acc string) bool {
	if accessionRE.MatchString(acc) {
		return true
	}
	st, err := os.Stat(acc)
	return err == nil && st.Mode().IsRegular()
}

// Open opens the given run. The first fragment is read to determine whether
// the run is paired.
func Open(ctx context.Context, accession string, cfg Config) (*Protocol, error) {
	if !ValidAccession(accession) {
		return nil, common.ConnectionError(nil, "invalid accession %q", accession)
	}
	client := cfg.Client
	if client == nil {
		client = &ExecClient{}
	}
	run, err := client.OpenRun(ctx, accession)
	if err != nil {
		return nil, common.ConnectionError(err, "open %s", accession)
	}
	if run.ReadCount() == 0 {
		run.Close()
		return nil, common.ConnectionError(nil, "no reads found for %s", accession)
	}
	first, err := run.Next()
	if err == io.EOF {
		run.Close()
		return nil, common.ConnectionError(nil, "no reads found for %s", accession)
	}
	if err != nil {
		run.Close()
		return nil, err
	}
	if err := first.Validate(); err != nil {
		run.Close()
		return nil, err
	}
	p := &Protocol{accession: accession, run: run, singleEnd: cfg.SingleEnd,
		paired: first.Paired() && !cfg.SingleEnd, mates: len(first)}
	if cfg.RequirePaired && !first.Paired() {
		run.Close()
		return nil, common.FormatError(nil, "%s is not paired-end", accession)
	}
	p.push(first)
	return p, nil
}

// Queues f, split into single reads if needed.
func (p *Protocol) push(f record.Fragment) {
	if p.singleEnd && f.Paired() {
		p.pending = append(p.pending, f[:1], f[1:])
		return
	}
	p.pending = append(p.pending, f)
}

func (p *Protocol) Accession() string { return p.accession }
func (p *Protocol) Paired() bool      { return p.paired }

func (p *Protocol) ReadCount() int {
	n := p.run.ReadCount()
	if p.singleEnd && p.mates == 2 && n != protocol.Unbounded {
		return n * 2
	}
	return n
}

func (p *Protocol) Next() (record.Fragment, error) {
	if len(p.pending) > 0 {
		f := p.pending[0]
		p.pending = p.pending[1:]
		return f, nil
	}
	if p.done || p.closed {
		return nil, io.EOF
	}
	f, err := p.run.Next()
	if err != nil {
		p.done = true
		return nil, err
	}
	if err := f.Validate(); err != nil {
		p.done = true
		return nil, err
	}
	if len(f) != p.mates {
		p.done = true
		return nil, common.FormatError(nil, "read %q has %d mates, want %d",
			f[0].Name, len(f), p.mates)
	}
	p.push(f)
	return p.Next()
}

func (p *Protocol) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.pending = nil
	return p.run.Close()
}
