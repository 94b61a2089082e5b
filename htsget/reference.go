package htsget

import (
	"io"
	"regexp"
	"strconv"

	"github.com/fluhus/gostuff/aio"
	"github.com/fluhus/gostuff/snm"
	"github.com/fluhus/ngstream/common"
	"github.com/jgbaldwinbrown/csvh"
	"golang.org/x/exp/maps"
)

// Reference is a genome reference: named sequences with their lengths, in a
// fixed order.
type Reference struct {
	Name    string
	MD5     string
	names   []string
	lengths map[string]int
}

// NewReference returns a reference with the given sequences, ordered by name.
func NewReference(name string, lengths map[string]int) *Reference {
	return &Reference{
		Name:    name,
		names:   snm.Sorted(maps.Keys(lengths)),
		lengths: maps.Clone(lengths),
	}
}

// LoadReference reads a chrom.sizes file: a tab-separated table of sequence
// name and length. File order is kept.
func LoadReference(name, file string) (*Reference, error) {
	f, err := aio.Open(file)
	if err != nil {
		return nil, common.ConnectionError(err, "open reference %s", file)
	}
	defer f.Close()
	return ReadReference(name, f)
}

// ReadReference reads a chrom.sizes table from r.
func ReadReference(name string, r io.Reader) (*Reference, error) {
	ref := &Reference{Name: name, lengths: map[string]int{}}
	cr := csvh.CsvIn(r)
	for l, err := cr.Read(); err != io.EOF; l, err = cr.Read() {
		if err != nil {
			return nil, common.FormatError(err, "read reference %s", name)
		}
		if len(l) < 2 {
			return nil, common.FormatError(nil, "reference %s: bad line %q", name, l)
		}
		var chrom string
		var length int
		if _, err := csvh.Scan(l[:2], &chrom, &length); err != nil {
			return nil, common.FormatError(err, "reference %s: bad line %q", name, l)
		}
		if length < 0 {
			return nil, common.FormatError(nil, "reference %s: negative length for %s",
				name, chrom)
		}
		if _, ok := ref.lengths[chrom]; ok {
			return nil, common.FormatError(nil, "reference %s: duplicate sequence %s",
				name, chrom)
		}
		ref.names = append(ref.names, chrom)
		ref.lengths[chrom] = length
	}
	return ref, nil
}

// Names returns the sequence names in order.
func (r *Reference) Names() []string {
	return r.names
}

// Length returns the length of the given sequence.
func (r *Reference) Length(chrom string) (int, error) {
	n, ok := r.lengths[chrom]
	if !ok {
		return 0, common.RangeError("invalid chromosome %q in reference %s",
			chrom, r.Name)
	}
	return n, nil
}

// Window is a 0-based half-open interval on a reference sequence. An empty
// Chrom means the whole genome; End 0 means the end of the sequence.
type Window struct {
	Chrom      string
	Start, End int
}

var regionRE = regexp.MustCompile(`^([^:]+)(?::(\d+)-(\d+))?$`)

// ParseRegion parses "chrom" or "chrom:start-end".
func ParseRegion(s string) (Window, error) {
	m := regionRE.FindStringSubmatch(s)
	if m == nil {
		return Window{}, common.RangeError("bad region %q", s)
	}
	w := Window{Chrom: m[1]}
	if m[2] != "" {
		w.Start, _ = strconv.Atoi(m[2])
		w.End, _ = strconv.Atoi(m[3])
		if w.End <= w.Start {
			return Window{}, common.RangeError("bad region %q: end is not after start", s)
		}
	}
	return w, nil
}

// Windows selects consecutive windows over a reference. Windows are numbered
// across sequences and every Step-th window is kept.
type Windows struct {
	Chromosomes []string // Defaults to all reference sequences.
	Start       int      // First position in each sequence.
	Stop        int      // Position to stop at in each sequence, 0 for its end.
	Size        int      // Window length, 0 for whole sequences.
	Step        int      // Keep every Step-th window, defaults to 1.
}

// Split returns the windows over ref.
func (ws Windows) Split(ref *Reference) ([]Window, error) {
	chroms := ws.Chromosomes
	if len(chroms) == 0 {
		chroms = ref.Names()
	}
	if ws.Start < 0 || ws.Size < 0 || ws.Step < 0 {
		return nil, common.RangeError("negative window parameter in %+v", ws)
	}
	step := max(ws.Step, 1)
	var result []Window
	i := 0
	for _, chrom := range chroms {
		length, err := ref.Length(chrom)
		if err != nil {
			return nil, err
		}
		stop := length
		if ws.Stop > 0 {
			stop = min(stop, ws.Stop)
		}
		size := ws.Size
		if size == 0 {
			size = max(stop-ws.Start, 1)
		}
		for start := ws.Start; start < stop; start += size {
			if i%step == 0 {
				result = append(result, Window{chrom, start, min(start+size, stop)})
			}
			i++
		}
	}
	return result, nil
}
