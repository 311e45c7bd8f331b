package compress

import "fmt"

// ReorderedLen is the interleaved length of streams for cmpAlign sized blocks.
func ReorderedLen(streams [][]byte, cmpAlign int) int {
	if cmpAlign <= 0 {
		return 0
	}
	maxLen := 0
	for _, s := range streams {
		maxLen = max(maxLen, len(s))
	}
	blocks := (maxLen + cmpAlign - 1) / cmpAlign
	return blocks * len(streams) * cmpAlign
}

// Reorder interleaves per-engine streams into dst, block-major then engine:
// engine 0 block 0, engine 1 block 0, ..., engine 0 block 1, ...
// Short streams are zero padded. It returns the bytes written.
func Reorder(dst []byte, streams [][]byte, cmpAlign int) (int, error) {
	total := ReorderedLen(streams, cmpAlign)
	if total == 0 {
		return 0, fmt.Errorf("%w: nothing to reorder (streams=%d align=%d)", ErrInvalidParameter, len(streams), cmpAlign)
	}
	if total > len(dst) {
		return 0, fmt.Errorf("%w: reordered length %d exceeds %d byte buffer", ErrCopyFailure, total, len(dst))
	}
	blocks := total / (len(streams) * cmpAlign)
	pos := 0
	for b := 0; b < blocks; b++ {
		start := b * cmpAlign
		for _, s := range streams {
			chunk := dst[pos : pos+cmpAlign]
			n := 0
			if start < len(s) {
				n = copy(chunk, s[start:min(start+cmpAlign, len(s))])
			}
			clear(chunk[n:])
			pos += cmpAlign
		}
	}
	return total, nil
}
