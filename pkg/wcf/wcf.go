// Package wcf implements the Weight Container File format.
//
// A WCF file holds the output of the weight codec for a whole checkpoint: pack
// metadata, a tensor table, the concatenated index records and the concatenated
// compressed data. It is a single memory-mappable file with a fixed header and a
// section directory at the end.
package wcf

import "encoding/binary"

// Format constants. These never change within a major version.
const (
	// Magic is "WCF\0".
	Magic = "WCF\x00"

	CurrentMajor uint16 = 1
	CurrentMinor uint16 = 0

	// FlagTightIndex marks containers whose index records are 8 byte tight records.
	FlagTightIndex uint64 = 1 << 0

	// DataAlign is the alignment of every tensor's data inside SectionCompressedData.
	DataAlign = 64

	headerSize   = 40
	sectionSize  = 24
	sectionAlign = 8
)

type SectionType uint32

const (
	SectionPackInfo       SectionType = 0x0001
	SectionTensorTable    SectionType = 0x0002
	SectionIndexData      SectionType = 0x0003
	SectionCompressedData SectionType = 0x0004
)

func (t SectionType) String() string {
	switch t {
	case SectionPackInfo:
		return "pack-info"
	case SectionTensorTable:
		return "tensor-table"
	case SectionIndexData:
		return "index-data"
	case SectionCompressedData:
		return "compressed-data"
	default:
		return "unknown"
	}
}

type Header struct {
	Magic            [4]byte
	Major            uint16
	Minor            uint16
	HeaderSize       uint32
	SectionCount     uint32
	SectionDirOffset uint64
	FileSize         uint64
	Flags            uint64
}

// Valid reports whether the magic and sizes are plausible.
func (h *Header) Valid() bool {
	return string(h.Magic[:]) == Magic && h.HeaderSize >= headerSize && h.SectionCount > 0
}

func (h *Header) Compatible() bool { return h.Major == CurrentMajor }

type Section struct {
	Type    uint32
	Version uint32
	Offset  uint64
	Size    uint64
}

func (s *Section) End() uint64 { return s.Offset + s.Size }

func encodeHeader(dst []byte, h Header) bool {
	if len(dst) < headerSize {
		return false
	}
	copy(dst[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(dst[4:], h.Major)
	binary.LittleEndian.PutUint16(dst[6:], h.Minor)
	binary.LittleEndian.PutUint32(dst[8:], h.HeaderSize)
	binary.LittleEndian.PutUint32(dst[12:], h.SectionCount)
	binary.LittleEndian.PutUint64(dst[16:], h.SectionDirOffset)
	binary.LittleEndian.PutUint64(dst[24:], h.FileSize)
	binary.LittleEndian.PutUint64(dst[32:], h.Flags)
	return true
}

func decodeHeader(src []byte) (Header, bool) {
	var h Header
	if len(src) < headerSize {
		return h, false
	}
	copy(h.Magic[:], src[0:4])
	h.Major = binary.LittleEndian.Uint16(src[4:])
	h.Minor = binary.LittleEndian.Uint16(src[6:])
	h.HeaderSize = binary.LittleEndian.Uint32(src[8:])
	h.SectionCount = binary.LittleEndian.Uint32(src[12:])
	h.SectionDirOffset = binary.LittleEndian.Uint64(src[16:])
	h.FileSize = binary.LittleEndian.Uint64(src[24:])
	h.Flags = binary.LittleEndian.Uint64(src[32:])
	return h, true
}

func encodeSection(dst []byte, s Section) bool {
	if len(dst) < sectionSize {
		return false
	}
	binary.LittleEndian.PutUint32(dst[0:], s.Type)
	binary.LittleEndian.PutUint32(dst[4:], s.Version)
	binary.LittleEndian.PutUint64(dst[8:], s.Offset)
	binary.LittleEndian.PutUint64(dst[16:], s.Size)
	return true
}

func decodeSection(src []byte) (Section, bool) {
	if len(src) < sectionSize {
		return Section{}, false
	}
	return Section{
		Type:    binary.LittleEndian.Uint32(src[0:]),
		Version: binary.LittleEndian.Uint32(src[4:]),
		Offset:  binary.LittleEndian.Uint64(src[8:]),
		Size:    binary.LittleEndian.Uint64(src[16:]),
	}, true
}

// half-open ranges [a0,a1) and [b0,b1)
func rangesOverlap(a0, a1, b0, b1 uint64) bool { return a0 < b1 && b0 < a1 }
