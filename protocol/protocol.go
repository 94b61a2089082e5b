// Package protocol defines the uniform pull interface over read sources.
//
// Concrete sources live in their own packages: sra streams an archive
// accession, htsget fetches alignment ranges from a remote endpoint and
// fastqsrc reads local FASTQ files. The stream package selects one by name.
package protocol

import (
	"github.com/fluhus/ngstream/record"
)

// Unbounded is the read count of sources that do not know it upfront.
const Unbounded = -1

// Reader is an open read source.
//
// Next returns fragments in source order and io.EOF once exhausted; after
// that it keeps returning io.EOF. Close releases the connection and may be
// called any number of times.
type Reader interface {
	Accession() string
	ReadCount() int // Total fragments, or Unbounded.
	Paired() bool   // Reliable once the first fragment was read.
	Next() (record.Fragment, error)
	Close() error
}
