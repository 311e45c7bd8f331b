package compress

import (
	"fmt"
	"sort"
)

// Dictionary is the frequency-ranked byte table of one CompressWeights call.
// Entry 0 is the zero byte, coded by runs; the others carry static prefix codes.
// A Dictionary is immutable once built.
type Dictionary struct {
	ct      CompressType
	entries []byte
	codes   []Code // codes[i] belongs to entries[i]; codes[0] is unused
	member  [256]bool
	index   [256]int16
	hist    [256]uint64
}

// BuildDictionary counts byte values in sample and keeps the N most frequent,
// ties broken by ascending byte value. Identical samples give identical dictionaries.
func BuildDictionary(sample []byte, ct CompressType) (*Dictionary, error) {
	n := dictSize(ct)
	if n == 0 {
		return nil, fmt.Errorf("%w: compress type %d", ErrInvalidParameter, ct)
	}
	d := &Dictionary{ct: ct}
	for _, b := range sample {
		d.hist[b]++
	}

	order := make([]int, 256)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := d.hist[order[i]], d.hist[order[j]]
		if ci != cj {
			return ci > cj
		}
		return order[i] < order[j]
	})

	table := codeTable(ct)
	d.entries = make([]byte, n)
	d.codes = make([]Code, n)
	for i := range d.index {
		d.index[i] = -1
	}
	for rank := 0; rank < n; rank++ {
		b := byte(order[rank])
		d.entries[rank] = b
		d.member[b] = true
		d.index[b] = int16(rank)
		if rank > 0 {
			d.codes[rank] = table[rank-1]
		}
	}
	return d, nil
}

// Type is the compress type the dictionary was built for.
func (d *Dictionary) Type() CompressType { return d.ct }

// Size is the fixed entry count for the compress type.
func (d *Dictionary) Size() int { return len(d.entries) }

// ZeroByte is the most frequent byte, eligible for run coding.
func (d *Dictionary) ZeroByte() byte { return d.entries[0] }

// Entries returns a copy of the ranked dictionary bytes.
func (d *Dictionary) Entries() []byte {
	out := make([]byte, len(d.entries))
	copy(out, d.entries)
	return out
}

// Contains reports whether b is a dictionary byte.
func (d *Dictionary) Contains(b byte) bool { return d.member[b] }

// Index returns the rank of b, or -1.
func (d *Dictionary) Index(b byte) int { return int(d.index[b]) }

// Code returns the prefix code of a non-zero dictionary byte.
func (d *Dictionary) Code(b byte) (Code, bool) {
	i := d.index[b]
	if i <= 0 {
		return Code{}, false
	}
	return d.codes[i], true
}

// Count returns how often b occurred in the sample.
func (d *Dictionary) Count(b byte) uint64 { return d.hist[b] }
