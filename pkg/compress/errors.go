package compress

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter covers bad buffers, bad sizing and unsupported modes.
	ErrInvalidParameter = errors.New("compress: invalid parameter")
	// ErrEncodingOverflow reports an encoder invariant violation.
	ErrEncodingOverflow = errors.New("compress: encoding overflow")
	// ErrCopyFailure reports a bounds-checked copy that would exceed its destination.
	ErrCopyFailure = errors.New("compress: copy failure")
)

// copyChecked copies src into dst[off:] and fails instead of truncating.
func copyChecked(dst []byte, off int, src []byte) error {
	if off < 0 || off > len(dst) || len(src) > len(dst)-off {
		return fmt.Errorf("%w: %d bytes at offset %d into %d byte buffer", ErrCopyFailure, len(src), off, len(dst))
	}
	copy(dst[off:], src)
	return nil
}
