package compress

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// packet accumulates codes into one 64 bit cpacket, filling from bit 0 upward.
// The first (most significant) bit of a code lands on the lowest free bit.
type packet struct {
	word uint64
	used int
}

func (p *packet) fits(c Code) bool { return p.used+int(c.Len) <= cpacketBits }

func (p *packet) put(c Code) {
	rev := bits.Reverse64(uint64(c.Bits) << (cpacketBits - uint(c.Len)))
	p.word |= rev << uint(p.used)
	p.used += int(c.Len)
}

// appendTo writes the packet little-endian with unused bits set to one.
func (p *packet) appendTo(dst []byte) []byte {
	w := p.word
	if p.used < cpacketBits {
		w |= ^uint64(0) << uint(p.used)
	}
	return binary.LittleEndian.AppendUint64(dst, w)
}

// RunCode is one piece of a zero-run decomposition.
type RunCode struct {
	Run  int
	Code Code
}

// RunCodes decomposes a zero run greedily, largest run count first.
func RunCodes(run int) []RunCode {
	var out []RunCode
	for _, rc := range runCodes {
		for run >= rc.Run {
			out = append(out, RunCode{Run: rc.Run, Code: rc.Code})
			run -= rc.Run
		}
	}
	return out
}

func escapeCode(b byte) Code {
	return Code{Bits: escapePrefix<<8 | uint16(bits.Reverse8(b)), Len: escapeLen}
}

// blockEncoder turns sub-blocks into cpackets using one dictionary.
type blockEncoder struct {
	dict  *Dictionary
	zero  byte
	codes [256]Code
}

func newBlockEncoder(d *Dictionary) *blockEncoder {
	e := &blockEncoder{dict: d, zero: d.ZeroByte()}
	for i := range e.codes {
		b := byte(i)
		if c, ok := d.Code(b); ok {
			e.codes[i] = c
		} else {
			e.codes[i] = escapeCode(b)
		}
	}
	return e
}

// encodePacket packs block into p until the next code would overflow the packet
// and returns the number of bytes consumed. Zero runs are counted up to the end of
// block only, so a run never continues into the next sub-block.
func (e *blockEncoder) encodePacket(p *packet, block []byte) int {
	pos := 0
	for pos < len(block) {
		b := block[pos]
		if b == e.zero {
			run := 1
			for pos+run < len(block) && block[pos+run] == e.zero {
				run++
			}
			done := putRun(p, run)
			pos += done
			if done < run {
				return pos
			}
			continue
		}
		c := e.codes[b]
		if !p.fits(c) {
			return pos
		}
		p.put(c)
		pos++
	}
	return pos
}

func putRun(p *packet, run int) int {
	done := 0
	for _, rc := range runCodes {
		for run-done >= rc.Run {
			if !p.fits(rc.Code) {
				return done
			}
			p.put(rc.Code)
			done += rc.Run
		}
	}
	return done
}

// encodeBlock appends the cpackets of one sub-block, end marker included, to dst.
// It stops early and reports false once dst reaches limit bytes.
func (e *blockEncoder) encodeBlock(dst, block []byte, limit int) ([]byte, bool, error) {
	var p packet
	pos := 0
	for {
		p = packet{}
		n := e.encodePacket(&p, block[pos:])
		if n == 0 && pos < len(block) {
			return dst, false, fmt.Errorf("%w: no code fits an empty packet at byte %d", ErrEncodingOverflow, pos)
		}
		pos += n
		if pos == len(block) {
			break
		}
		dst = p.appendTo(dst)
		if len(dst) >= limit {
			return dst, false, nil
		}
	}
	if !p.fits(endMarker) {
		dst = p.appendTo(dst)
		p = packet{}
	}
	p.put(endMarker)
	dst = p.appendTo(dst)
	return dst, len(dst) < limit, nil
}
