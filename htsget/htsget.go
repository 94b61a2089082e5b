// Package htsget streams reads from servers that implement the htsget
// protocol. Alignment data is fetched per genomic window and decoded to
// fragments with samtools.
package htsget

import (
	"cmp"
	"context"
	"errors"
	"io"
	"iter"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/fluhus/biostuff/formats/sam"
	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/protocol"
	"github.com/fluhus/ngstream/record"
	"github.com/fluhus/ngstream/samtools"
	"golang.org/x/sync/errgroup"
)

// SAM flags used for pairing.
const (
	flagPaired        = 0x1
	flagReverse       = 0x10
	flagRead1         = 0x40
	flagRead2         = 0x80
	flagSecondary     = 0x100
	flagSupplementary = 0x800
)

// DefaultTimeout is the default timeout of ticket requests, and of connecting
// to data blocks and waiting for their data.
const DefaultTimeout = 10 * time.Second

// Decoder turns an alignment stream into SAM records.
type Decoder func(ctx context.Context, r io.Reader) iter.Seq2[*sam.SAM, error]

// Config configures an htsget source.
type Config struct {
	Reference *Reference
	Region    string   // "chrom" or "chrom:start-end". Overrides Windows.
	Windows   *Windows // Requires Reference.
	SingleEnd bool     // Do not pair mates.
	Tags      []string
	NoTags    []string
	Token     string // Bearer token for ticket requests.
	Timeout   time.Duration
	Client    *http.Client // Defaults to clients built on Timeout.
	Decoder   Decoder      // Defaults to samtools view.
}

// Protocol is an open htsget source.
type Protocol struct {
	ctx     context.Context
	base    *url.URL
	cfg     Config
	client  *http.Client // For tickets.
	blocks  *http.Client // For data blocks.
	timeout time.Duration
	windows []Window
	wi      int // Index of the next window to open.
	md5     string

	cur     *stream
	mates   map[string]*record.Record // Unmatched mates by name.
	orphans int
	paired  bool
	peeked  record.Fragment
	done    bool
	closed  bool
}

// Decoding state of a single window.
type stream struct {
	next   func() (*sam.SAM, error, bool)
	stop   func()
	pr     *io.PipeReader
	cancel context.CancelFunc
	g      *errgroup.Group
}

// Open connects to the htsget endpoint at rawURL and reads the first
// fragment.
func Open(ctx context.Context, rawURL string, cfg Config) (*Protocol, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, common.ConnectionError(err, "invalid url %q", rawURL)
	}
	windows, err := cfg.windows()
	if err != nil {
		return nil, err
	}
	timeout := cmp.Or(cfg.Timeout, DefaultTimeout)
	client, blocks := cfg.Client, cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
		blocks = blockClient(timeout)
	}
	if cfg.Decoder == nil {
		cfg.Decoder = func(ctx context.Context, r io.Reader) iter.Seq2[*sam.SAM, error] {
			return samtools.View(ctx, r)
		}
	}
	p := &Protocol{ctx: ctx, base: u, cfg: cfg, client: client, blocks: blocks,
		timeout: timeout, windows: windows, mates: map[string]*record.Record{}}
	if cfg.Reference != nil {
		p.md5 = cfg.Reference.MD5
	}
	f, err := p.next()
	if err != nil && err != io.EOF {
		p.Close()
		return nil, err
	}
	p.peeked = f
	return p, nil
}

// Returns the windows to request. A nil window requests all reads.
func (c Config) windows() ([]Window, error) {
	if c.Region != "" {
		w, err := ParseRegion(c.Region)
		if err != nil {
			return nil, err
		}
		if c.Reference != nil {
			n, err := c.Reference.Length(w.Chrom)
			if err != nil {
				return nil, err
			}
			if w.End > n {
				return nil, common.RangeError("region %s is beyond %s's length %d",
					c.Region, w.Chrom, n)
			}
		}
		return []Window{w}, nil
	}
	if c.Windows != nil {
		if c.Reference == nil {
			return nil, common.RangeError("windows require a reference")
		}
		return c.Windows.Split(c.Reference)
	}
	return []Window{{}}, nil
}

// Returns a client for data blocks. Blocks may take any time to stream, so
// only connecting and waiting for headers are limited.
func blockClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}}
}

// Accession returns the last element of the URL path, which is the read set
// identifier.
func (p *Protocol) Accession() string {
	return path.Base(p.base.Path)
}

// ReadCount returns protocol.Unbounded: htsget does not report counts.
func (p *Protocol) ReadCount() int { return protocol.Unbounded }

func (p *Protocol) Paired() bool { return p.paired }

// Windows returns the genomic windows this source requests.
func (p *Protocol) Windows() []Window {
	return p.windows
}

func (p *Protocol) Next() (record.Fragment, error) {
	if p.peeked != nil {
		f := p.peeked
		p.peeked = nil
		return f, nil
	}
	return p.next()
}

func (p *Protocol) next() (record.Fragment, error) {
	for !p.done && !p.closed {
		if p.cur == nil {
			if p.wi == len(p.windows) {
				p.done = true
				break
			}
			if err := p.open(p.windows[p.wi]); err != nil {
				p.done = true
				return nil, err
			}
			p.wi++
		}
		sm, err, ok := p.cur.next()
		if !ok {
			if err := p.finish(); err != nil {
				p.done = true
				return nil, err
			}
			continue
		}
		if err != nil {
			p.done = true
			if derr := p.finish(); derr != nil {
				return nil, derr
			}
			return nil, common.FormatError(err, "decode %s", p.Accession())
		}
		f, err := p.fragment(sm)
		if err != nil {
			p.done = true
			return nil, err
		}
		if f != nil {
			return f, nil
		}
	}
	if len(p.mates) > 0 {
		p.orphans += len(p.mates)
		clear(p.mates)
	}
	return nil, io.EOF
}

// Orphans returns the number of paired reads dropped because their mate was
// not in the requested windows. Valid after the stream ended.
func (p *Protocol) Orphans() int {
	return p.orphans
}

// Converts a SAM line to a fragment, or nil while its mate is pending.
func (p *Protocol) fragment(sm *sam.SAM) (record.Fragment, error) {
	if sm.Flag&(flagSecondary|flagSupplementary) != 0 {
		return nil, nil
	}
	r, err := toRecord(sm)
	if err != nil {
		return nil, err
	}
	if p.cfg.SingleEnd || sm.Flag&flagPaired == 0 {
		return record.Fragment{r}, nil
	}
	p.paired = true
	other, ok := p.mates[sm.Qname]
	if !ok {
		p.mates[sm.Qname] = r
		return nil, nil
	}
	delete(p.mates, sm.Qname)
	if sm.Flag&flagRead1 != 0 {
		return record.Fragment{r, other}, nil
	}
	return record.Fragment{other, r}, nil
}

// Converts a SAM line to a record in sequencing orientation.
func toRecord(sm *sam.SAM) (*record.Record, error) {
	if sm.Seq == "*" || sm.Seq == "" {
		return nil, common.FormatError(nil, "read %q has no sequence", sm.Qname)
	}
	seq := []byte(sm.Seq)
	var qual []byte
	if sm.Qual == "*" {
		qual = make([]byte, len(seq))
		for i := range qual {
			qual[i] = '!'
		}
	} else {
		qual = []byte(sm.Qual)
	}
	if sm.Flag&flagReverse != 0 {
		reverseComplement(seq)
		reverse(qual)
	}
	r := &record.Record{Name: []byte(sm.Qname), Sequence: seq, Quals: qual}
	return r, record.Validate(r)
}

var complement = func() [256]byte {
	var c [256]byte
	for i := range c {
		c[i] = byte(i)
	}
	for _, p := range []string{"AT", "CG", "RY", "KM", "BV", "DH"} {
		for _, cs := range []string{p, string([]byte{p[0] + 32, p[1] + 32})} {
			c[cs[0]], c[cs[1]] = cs[1], cs[0]
		}
	}
	return c
}()

func reverseComplement(b []byte) {
	reverse(b)
	for i, c := range b {
		b[i] = complement[c]
	}
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// Starts fetching and decoding a window.
func (p *Protocol) open(w Window) error {
	q := Query{Format: "BAM", MD5: p.md5, Tags: p.cfg.Tags, NoTags: p.cfg.NoTags}
	if w.Chrom != "" {
		q.Window = &w
	}
	t, err := FetchTicket(p.ctx, p.client, RequestURL(p.base, q), p.cfg.Token)
	if err != nil {
		return err
	}
	if t.MD5 != "" {
		p.md5 = t.MD5
	}
	ctx, cancel := context.WithCancel(p.ctx)
	g, gctx := errgroup.WithContext(ctx)
	pr, pw := io.Pipe()
	g.Go(func() error {
		err := t.Download(gctx, p.blocks, p.timeout, pw)
		pw.CloseWithError(err)
		return err
	})
	next, stop := iter.Pull2(p.cfg.Decoder(gctx, pr))
	p.cur = &stream{next: next, stop: stop, pr: pr, cancel: cancel, g: g}
	return nil
}

// Tears down the current window and returns the download's error.
func (p *Protocol) finish() error {
	s := p.cur
	p.cur = nil
	s.pr.CloseWithError(io.ErrClosedPipe)
	s.cancel()
	s.stop()
	err := s.g.Wait()
	if err := p.ctx.Err(); err != nil {
		return err
	}
	if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops any running download. Calling Close more than once has no
// effect.
func (p *Protocol) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.peeked = nil
	if p.cur != nil {
		p.finish()
	}
	return nil
}
