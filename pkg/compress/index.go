package compress

import (
	"encoding/binary"
	"fmt"
)

// Index record sizes in bytes.
const (
	TightRecordSize   = 8
	CompactRecordSize = 2
)

// IndexRecord describes where one fractal's data lives and how it is coded.
// Which fields are meaningful depends on the mode; see PackCompact.
type IndexRecord struct {
	DataLen     int    // aligned length in CompressLenAlign units
	SpecialFlag bool   // true when the fractal is genuinely compressed
	Offset      uint64 // tight records only, CompressLenAlign units

	// ModeA
	AlignFlag  bool // length was padded up to the alignment
	ModeFlag   bool // dictionary built for HighSparse
	Size       int  // channel windows occupied
	OffsetFlag int  // channel window holding the data

	// ModeB
	Extended    bool // bit 6 of DataLen
	CircleMode  bool // data spans every channel
	StoreOffset int  // first channel holding the data
}

// Bit layout of the 16 bit compact word. Tight records reuse it in their low
// 16 bits and carry the offset above.
const (
	recDataLenBits = 7

	aSpecialShift = 7
	aAlignShift   = 8
	aModeShift    = 9
	aSizeShift    = 10
	aSizeBits     = 2
	aOffFlagShift = 12

	bDataLenBits     = 6
	bExtendedShift   = 6
	bSpecialShift    = 7
	bCircleShift     = 8
	bStoreOffShift   = 9
	bStoreOffBits    = 2
	tightOffsetShift = 16
	tightOffsetBits  = 48
)

func bit(b bool, shift uint) uint16 {
	if b {
		return 1 << shift
	}
	return 0
}

func flag(v uint16, shift uint) bool { return v>>shift&1 == 1 }

func field(v uint16, shift, width uint) int { return int(v >> shift & (1<<width - 1)) }

// PackCompact encodes the 16 bit word of r for mode.
func PackCompact(mode CompressMode, r IndexRecord) (uint16, error) {
	if r.DataLen < 0 || r.DataLen >= 1<<recDataLenBits {
		return 0, fmt.Errorf("%w: data length %d units", ErrEncodingOverflow, r.DataLen)
	}
	switch mode {
	case ModeA:
		if r.Size < 0 || r.Size >= 1<<aSizeBits || r.OffsetFlag < 0 || r.OffsetFlag > 1 {
			return 0, fmt.Errorf("%w: size=%d offset flag=%d", ErrEncodingOverflow, r.Size, r.OffsetFlag)
		}
		return uint16(r.DataLen) |
			bit(r.SpecialFlag, aSpecialShift) |
			bit(r.AlignFlag, aAlignShift) |
			bit(r.ModeFlag, aModeShift) |
			uint16(r.Size)<<aSizeShift |
			uint16(r.OffsetFlag)<<aOffFlagShift, nil
	case ModeB:
		if r.StoreOffset < 0 || r.StoreOffset >= 1<<bStoreOffBits {
			return 0, fmt.Errorf("%w: store offset %d", ErrEncodingOverflow, r.StoreOffset)
		}
		return uint16(r.DataLen)&(1<<bDataLenBits-1) |
			bit(r.DataLen>>bDataLenBits != 0, bExtendedShift) |
			bit(r.SpecialFlag, bSpecialShift) |
			bit(r.CircleMode, bCircleShift) |
			uint16(r.StoreOffset)<<bStoreOffShift, nil
	default:
		return 0, fmt.Errorf("%w: index record for mode %s", ErrInvalidParameter, mode)
	}
}

// UnpackCompact decodes a 16 bit word for mode.
func UnpackCompact(mode CompressMode, v uint16) (IndexRecord, error) {
	switch mode {
	case ModeA:
		return IndexRecord{
			DataLen:     field(v, 0, recDataLenBits),
			SpecialFlag: flag(v, aSpecialShift),
			AlignFlag:   flag(v, aAlignShift),
			ModeFlag:    flag(v, aModeShift),
			Size:        field(v, aSizeShift, aSizeBits),
			OffsetFlag:  field(v, aOffFlagShift, 1),
		}, nil
	case ModeB:
		r := IndexRecord{
			DataLen:     field(v, 0, bDataLenBits),
			Extended:    flag(v, bExtendedShift),
			SpecialFlag: flag(v, bSpecialShift),
			CircleMode:  flag(v, bCircleShift),
			StoreOffset: field(v, bStoreOffShift, bStoreOffBits),
		}
		if r.Extended {
			r.DataLen |= 1 << bDataLenBits
		}
		return r, nil
	default:
		return IndexRecord{}, fmt.Errorf("%w: index record for mode %s", ErrInvalidParameter, mode)
	}
}

// PackTight encodes the 64 bit tight record of r for mode.
func PackTight(mode CompressMode, r IndexRecord) (uint64, error) {
	if r.Offset >= 1<<tightOffsetBits {
		return 0, fmt.Errorf("%w: offset %d units", ErrEncodingOverflow, r.Offset)
	}
	low, err := PackCompact(mode, r)
	if err != nil {
		return 0, err
	}
	return uint64(low) | r.Offset<<tightOffsetShift, nil
}

// UnpackTight decodes a 64 bit tight record for mode.
func UnpackTight(mode CompressMode, v uint64) (IndexRecord, error) {
	r, err := UnpackCompact(mode, uint16(v))
	if err != nil {
		return IndexRecord{}, err
	}
	r.Offset = v >> tightOffsetShift
	return r, nil
}

// PutRecord writes r at the start of dst in the layout selected by tight.
func PutRecord(dst []byte, mode CompressMode, tight bool, r IndexRecord) error {
	if tight {
		v, err := PackTight(mode, r)
		if err != nil {
			return err
		}
		if len(dst) < TightRecordSize {
			return fmt.Errorf("%w: index record needs %d bytes, have %d", ErrCopyFailure, TightRecordSize, len(dst))
		}
		binary.LittleEndian.PutUint64(dst, v)
		return nil
	}
	v, err := PackCompact(mode, r)
	if err != nil {
		return err
	}
	if len(dst) < CompactRecordSize {
		return fmt.Errorf("%w: index record needs %d bytes, have %d", ErrCopyFailure, CompactRecordSize, len(dst))
	}
	binary.LittleEndian.PutUint16(dst, v)
	return nil
}

// DecodeIndex parses n consecutive records from src.
func DecodeIndex(src []byte, mode CompressMode, tight bool, n int) ([]IndexRecord, error) {
	size := CompactRecordSize
	if tight {
		size = TightRecordSize
	}
	if n < 0 || len(src) < n*size {
		return nil, fmt.Errorf("%w: %d records need %d bytes, have %d", ErrInvalidParameter, n, n*size, len(src))
	}
	out := make([]IndexRecord, n)
	for i := range out {
		var (
			r   IndexRecord
			err error
		)
		if tight {
			r, err = UnpackTight(mode, binary.LittleEndian.Uint64(src[i*size:]))
		} else {
			r, err = UnpackCompact(mode, binary.LittleEndian.Uint16(src[i*size:]))
		}
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
