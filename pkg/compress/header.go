package compress

import (
	"encoding/binary"
	"fmt"
)

const headerFixedSize = 8

// Header opens every compressed engine segment. The fixed 8 bytes carry the mode
// tag, the sub-block count, both checksum lanes and the first HeadOverlap
// dictionary bytes; the remaining dictionary bytes follow, padded to a cpacket.
type Header struct {
	Mode     CompressMode
	Type     CompressType
	Blocks   int
	Checksum [2]byte
	Engine   int // ModeA only
	Dict     []byte
}

// HeaderLen is the padded header length for a mode and compress type.
func HeaderLen(mode CompressMode, ct CompressType) int {
	n := headerFixedSize + dictSize(ct) - mode.Params().HeadOverlap
	return (n + cpacketBytes - 1) / cpacketBytes * cpacketBytes
}

// Checksum XOR-folds data into two lanes keyed on byte position parity.
func Checksum(data []byte) [2]byte {
	var sum [2]byte
	for i, b := range data {
		sum[i&1] ^= b
	}
	return sum
}

// AppendTo encodes h after dst.
func (h Header) AppendTo(dst []byte) ([]byte, error) {
	p := h.Mode.Params()
	if p.EngineNum == 0 {
		return dst, fmt.Errorf("%w: header for mode %s", ErrInvalidParameter, h.Mode)
	}
	if len(h.Dict) != dictSize(h.Type) {
		return dst, fmt.Errorf("%w: header dictionary has %d entries, want %d", ErrInvalidParameter, len(h.Dict), dictSize(h.Type))
	}
	if h.Blocks < 0 || h.Blocks > 0xFFFF || h.Engine < 0 || h.Engine >= p.EngineNum {
		return dst, fmt.Errorf("%w: header blocks=%d engine=%d", ErrEncodingOverflow, h.Blocks, h.Engine)
	}

	var fixed [headerFixedSize]byte
	fixed[0] = byte(h.Type)<<4 | byte(h.Mode)
	binary.LittleEndian.PutUint16(fixed[1:3], uint16(h.Blocks))
	fixed[3] = h.Checksum[0]
	fixed[4] = h.Checksum[1]
	switch h.Mode {
	case ModeA:
		fixed[5] = byte(h.Engine)
		copy(fixed[6:], h.Dict[:p.HeadOverlap])
	default:
		copy(fixed[headerFixedSize-p.HeadOverlap:], h.Dict[:p.HeadOverlap])
	}

	start := len(dst)
	dst = append(dst, fixed[:]...)
	dst = append(dst, h.Dict[p.HeadOverlap:]...)
	for len(dst)-start < HeaderLen(h.Mode, h.Type) {
		dst = append(dst, 0)
	}
	return dst, nil
}

// ParseHeader decodes the header at the start of src and returns its length.
func ParseHeader(src []byte) (Header, int, error) {
	if len(src) < headerFixedSize {
		return Header{}, 0, fmt.Errorf("%w: header needs %d bytes, have %d", ErrInvalidParameter, headerFixedSize, len(src))
	}
	h := Header{
		Mode:     CompressMode(src[0] & 0x0F),
		Type:     CompressType(src[0] >> 4),
		Blocks:   int(binary.LittleEndian.Uint16(src[1:3])),
		Checksum: [2]byte{src[3], src[4]},
	}
	p := h.Mode.Params()
	n := dictSize(h.Type)
	if p.EngineNum == 0 || n == 0 {
		return Header{}, 0, fmt.Errorf("%w: header tag %#02x", ErrInvalidParameter, src[0])
	}
	size := HeaderLen(h.Mode, h.Type)
	if len(src) < size {
		return Header{}, 0, fmt.Errorf("%w: header needs %d bytes, have %d", ErrInvalidParameter, size, len(src))
	}
	h.Dict = make([]byte, 0, n)
	switch h.Mode {
	case ModeA:
		h.Engine = int(src[5])
		h.Dict = append(h.Dict, src[6:headerFixedSize]...)
	default:
		h.Dict = append(h.Dict, src[headerFixedSize-p.HeadOverlap:headerFixedSize]...)
	}
	h.Dict = append(h.Dict, src[headerFixedSize:headerFixedSize+n-p.HeadOverlap]...)
	return h, size, nil
}
