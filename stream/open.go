package stream

import (
	"context"
	"strings"

	"github.com/fluhus/gostuff/snm"
	"github.com/fluhus/ngstream/common"
	"github.com/fluhus/ngstream/fastqsrc"
	"github.com/fluhus/ngstream/htsget"
	"github.com/fluhus/ngstream/protocol"
	"github.com/fluhus/ngstream/sra"
	"golang.org/x/exp/maps"
)

// ReaderOptions holds the per-variant settings for OpenReader.
type ReaderOptions struct {
	SRA    sra.Config
	Htsget htsget.Config
}

// Opens a reader of one variant.
type opener func(ctx context.Context, id string, o ReaderOptions) (protocol.Reader, error)

var openers = map[string]opener{
	"sra": func(ctx context.Context, id string, o ReaderOptions) (protocol.Reader, error) {
		return reader(sra.Open(ctx, id, o.SRA))
	},
	"htsget": func(ctx context.Context, id string, o ReaderOptions) (protocol.Reader, error) {
		return reader(htsget.Open(ctx, id, o.Htsget))
	},
	// id is one file or two comma-separated mate files.
	"fastq": func(ctx context.Context, id string, o ReaderOptions) (protocol.Reader, error) {
		return reader(fastqsrc.Open(strings.Split(id, ",")...))
	},
}

// Drops typed nil readers.
func reader(r protocol.Reader, err error) (protocol.Reader, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Kinds returns the reader variant names accepted by OpenReader.
func Kinds() []string {
	return snm.Sorted(maps.Keys(openers))
}

// OpenReader opens a reader of the given kind: an sra accession, an htsget
// reads URL or local fastq files.
func OpenReader(ctx context.Context, kind, id string, o ReaderOptions,
) (protocol.Reader, error) {
	open, ok := openers[kind]
	if !ok {
		return nil, common.ConnectionError(nil, "unknown source kind %q, want one of %v",
			kind, Kinds())
	}
	return open(ctx, id, o)
}

// Opener returns a function that opens the given source, for use with Dump.
func Opener(kind, id string, o ReaderOptions,
) func(context.Context) (protocol.Reader, error) {
	return func(ctx context.Context) (protocol.Reader, error) {
		return OpenReader(ctx, kind, id, o)
	}
}
