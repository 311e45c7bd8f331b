package compress

import (
	"encoding/binary"
	"math/bits"
	"math/rand/v2"
	"testing"
)

const (
	symRun = iota
	symDict
	symEscape
	symEnd
)

type symbol struct {
	kind int
	val  int
}

func codeBook(ct CompressType) map[Code]symbol {
	book := make(map[Code]symbol)
	for _, rc := range runCodes {
		book[rc.Code] = symbol{kind: symRun, val: rc.Run}
	}
	for i, c := range codeTable(ct) {
		book[c] = symbol{kind: symDict, val: i + 1}
	}
	book[Code{Bits: escapePrefix, Len: escapePrefixLen}] = symbol{kind: symEscape}
	book[endMarker] = symbol{kind: symEnd}
	return book
}

// decodePackets reads h.Blocks end-marker terminated sub-blocks from src and
// returns the decoded bytes and the stream bytes consumed. It fails the test
// when a packet's trailing bits are not all ones.
func decodePackets(t *testing.T, src []byte, h Header) ([]byte, int) {
	t.Helper()

	book := codeBook(h.Type)
	var out []byte
	pos, done := 0, 0
	for done < h.Blocks {
		if pos+cpacketBytes > len(src) {
			t.Fatalf("stream ended after %d of %d sub-blocks", done, h.Blocks)
		}
		w := binary.LittleEndian.Uint64(src[pos:])
		pos += cpacketBytes

		var cur Code
		at := 0
	packet:
		for at < cpacketBits {
			cur.Bits = cur.Bits<<1 | uint16(w>>uint(at)&1)
			cur.Len++
			at++
			sym, ok := book[cur]
			if !ok {
				if int(cur.Len) > escapeLen {
					t.Fatalf("packet at %d: no code matches %0*b", pos-cpacketBytes, int(cur.Len), cur.Bits)
				}
				continue
			}
			switch sym.kind {
			case symRun:
				for range sym.val {
					out = append(out, h.Dict[0])
				}
			case symDict:
				out = append(out, h.Dict[sym.val])
			case symEscape:
				if at+8 > cpacketBits {
					break packet
				}
				var v byte
				for range 8 {
					v = v<<1 | byte(w>>uint(at)&1)
					at++
				}
				out = append(out, bits.Reverse8(v))
			case symEnd:
				done++
				cur = Code{}
				break packet
			}
			cur = Code{}
		}

		if pad := at - int(cur.Len); pad < cpacketBits {
			mask := ^uint64(0) << uint(pad)
			if w&mask != mask {
				t.Fatalf("packet at %d: padding from bit %d is not all ones: %064b", pos-cpacketBytes, pad, w)
			}
		}
	}
	return out, pos
}

// decodeFractal undoes the engine interleave of one compressed fractal.
func decodeFractal(t *testing.T, mode CompressMode, data []byte, fractalSize int) []byte {
	t.Helper()

	p := mode.Params()
	blocks := len(data) / (p.EngineNum * p.CmpAlign)
	out := make([]byte, 0, fractalSize)
	for e := 0; e < p.EngineNum; e++ {
		stream := make([]byte, 0, blocks*p.CmpAlign)
		for b := 0; b < blocks; b++ {
			at := (b*p.EngineNum + e) * p.CmpAlign
			stream = append(stream, data[at:at+p.CmpAlign]...)
		}
		h, n, err := ParseHeader(stream)
		if err != nil {
			t.Fatalf("engine %d header: %v", e, err)
		}
		if h.Mode != mode {
			t.Fatalf("engine %d header mode: got %s want %s", e, h.Mode, mode)
		}
		if mode == ModeA && h.Engine != e {
			t.Fatalf("engine %d header carries engine %d", e, h.Engine)
		}
		got, _ := decodePackets(t, stream[n:], h)
		if sum := Checksum(got); sum != h.Checksum {
			t.Fatalf("engine %d checksum: got %v want %v", e, sum, h.Checksum)
		}
		out = append(out, got...)
	}
	if len(out) != fractalSize {
		t.Fatalf("decoded fractal is %d bytes, want %d", len(out), fractalSize)
	}
	return out
}

// decompress rebuilds the original input from the index and data buffers.
func decompress(t *testing.T, cfg CompressConfig, index, data []byte) []byte {
	t.Helper()

	mode := SelectMode(cfg.EngineNum, cfg.Channel)
	recs, err := DecodeIndex(index, mode, cfg.IsTight, cfg.FractalNum())
	if err != nil {
		t.Fatalf("decode index: %v", err)
	}
	align := cfg.CompressLenAlign()
	window := cfg.FractalSize / cfg.Channel

	out := make([]byte, 0, cfg.InputSize)
	cursor := 0
	for i, r := range recs {
		var start int
		if cfg.IsTight {
			want := uint64((cursor + cfg.InitOffset + align - 1) / align)
			if r.Offset != want {
				t.Fatalf("record %d offset: got %d want %d", i, r.Offset, want)
			}
			start = cursor
		} else {
			off := r.StoreOffset
			if mode == ModeA {
				off = r.OffsetFlag
			}
			start = i*cfg.FractalSize + off*window
		}
		n := r.DataLen * align
		cursor += n
		seg := data[start : start+n]
		if !r.SpecialFlag {
			out = append(out, seg[:cfg.FractalSize]...)
			continue
		}
		out = append(out, decodeFractal(t, mode, seg, cfg.FractalSize)...)
	}
	return out
}

// sparseWeights mimics pruned weights: mostly zero, a few common values and
// the occasional outlier.
func sparseWeights(seed uint64, n int, zeroPct int) []byte {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	common := []byte{0x3c, 0xbc, 0x38, 0xb8, 0x40, 0xc0, 0x34, 0xb4, 0x44, 0xc4, 0x30, 0xb0}
	out := make([]byte, n)
	for i := range out {
		switch v := r.IntN(100); {
		case v < zeroPct:
		case v < 98:
			out[i] = common[r.IntN(len(common))]
		default:
			out[i] = byte(r.IntN(256))
		}
	}
	return out
}

func randomBytes(seed uint64, n int) []byte {
	r := rand.New(rand.NewPCG(seed, ^seed))
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.Uint32())
	}
	return out
}
