// Package record defines the normalized read model that flows through the
// streaming pipeline.
package record

import (
	"io"
	"iter"

	"github.com/fluhus/biostuff/formats/fastq"
	"github.com/fluhus/ngstream/common"
)

// Record is a single sequence read. Quals holds one phred+33 character per
// base. Records are not modified after they are produced.
type Record = fastq.Fastq

// Fragment is one physical read event: a single record for single-end data, or
// (read1, read2) for paired-end data.
type Fragment []*Record

// New returns a validated record.
func New(name, seq, quals string) (*Record, error) {
	r := &Record{
		Name:     []byte(name),
		Sequence: []byte(seq),
		Quals:    []byte(quals),
	}
	if err := Validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks that the sequence and qualities have the same length.
func Validate(r *Record) error {
	if len(r.Sequence) != len(r.Quals) {
		return common.FormatError(nil,
			"read %q has %d bases but %d qualities",
			r.Name, len(r.Sequence), len(r.Quals))
	}
	return nil
}

// Paired returns true if the fragment holds two mates.
func (f Fragment) Paired() bool {
	return len(f) == 2
}

// Validate checks the fragment's size and each of its records.
func (f Fragment) Validate() error {
	if len(f) != 1 && len(f) != 2 {
		return common.FormatError(nil, "fragment has %d records", len(f))
	}
	for _, r := range f {
		if err := Validate(r); err != nil {
			return err
		}
	}
	return nil
}

// Append appends the 4-line text form of r to b.
func Append(b []byte, r *Record) []byte {
	b = append(b, '@')
	b = append(b, r.Name...)
	b = append(b, '\n')
	b = append(b, r.Sequence...)
	b = append(b, "\n+\n"...)
	b = append(b, r.Quals...)
	b = append(b, '\n')
	return b
}

// Reader returns an iterator over the records in a 4-line text stream.
func Reader(r io.Reader) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for fq, err := range fastq.Reader(r) {
			if err != nil {
				yield(nil, common.FormatError(err, "parse reads"))
				return
			}
			if !yield(fq, Validate(fq)) {
				return
			}
		}
	}
}
