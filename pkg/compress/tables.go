package compress

// Code is a prefix code written most significant bit first.
type Code struct {
	Bits uint16
	Len  uint8
}

// Zero-run codes. Runs 1-4 cost 3 bits, a run of 9 costs 6 bits.
var runCodes = [...]struct {
	Run  int
	Code Code
}{
	{Run: 9, Code: Code{Bits: 0b111000, Len: 6}},
	{Run: 4, Code: Code{Bits: 0b011, Len: 3}},
	{Run: 3, Code: Code{Bits: 0b010, Len: 3}},
	{Run: 2, Code: Code{Bits: 0b001, Len: 3}},
	{Run: 1, Code: Code{Bits: 0b000, Len: 3}},
}

const (
	escapePrefix    = 0b1111
	escapePrefixLen = 4
	escapeLen       = escapePrefixLen + 8
)

// endMarker terminates every sub-block.
var endMarker = Code{Bits: 0b111011000, Len: 9}

// Dictionary sizes include the zero byte at entry 0.
const (
	lowSparseDictSize  = 36
	highSparseDictSize = 34
)

// Prefix codes for dictionary entries 1..N-1, indexed by rank-1.
// Together with the run, escape and end codes each table is prefix-free.
var lowSparseCodes = [...]Code{
	// ranks 1-4: 100xx
	{Bits: 0b10000, Len: 5},
	{Bits: 0b10001, Len: 5},
	{Bits: 0b10010, Len: 5},
	{Bits: 0b10011, Len: 5},

	// ranks 5-12: 101xxx
	{Bits: 0b101000, Len: 6},
	{Bits: 0b101001, Len: 6},
	{Bits: 0b101010, Len: 6},
	{Bits: 0b101011, Len: 6},
	{Bits: 0b101100, Len: 6},
	{Bits: 0b101101, Len: 6},
	{Bits: 0b101110, Len: 6},
	{Bits: 0b101111, Len: 6},

	// ranks 13-28: 110xxxx
	{Bits: 0b1100000, Len: 7},
	{Bits: 0b1100001, Len: 7},
	{Bits: 0b1100010, Len: 7},
	{Bits: 0b1100011, Len: 7},
	{Bits: 0b1100100, Len: 7},
	{Bits: 0b1100101, Len: 7},
	{Bits: 0b1100110, Len: 7},
	{Bits: 0b1100111, Len: 7},
	{Bits: 0b1101000, Len: 7},
	{Bits: 0b1101001, Len: 7},
	{Bits: 0b1101010, Len: 7},
	{Bits: 0b1101011, Len: 7},
	{Bits: 0b1101100, Len: 7},
	{Bits: 0b1101101, Len: 7},
	{Bits: 0b1101110, Len: 7},
	{Bits: 0b1101111, Len: 7},

	// ranks 29-35: 111001xx, 1110100x, 11101010
	{Bits: 0b11100100, Len: 8},
	{Bits: 0b11100101, Len: 8},
	{Bits: 0b11100110, Len: 8},
	{Bits: 0b11100111, Len: 8},
	{Bits: 0b11101000, Len: 8},
	{Bits: 0b11101001, Len: 8},
	{Bits: 0b11101010, Len: 8},
}

var highSparseCodes = [...]Code{
	// ranks 1-16: 10xxxx
	{Bits: 0b100000, Len: 6},
	{Bits: 0b100001, Len: 6},
	{Bits: 0b100010, Len: 6},
	{Bits: 0b100011, Len: 6},
	{Bits: 0b100100, Len: 6},
	{Bits: 0b100101, Len: 6},
	{Bits: 0b100110, Len: 6},
	{Bits: 0b100111, Len: 6},
	{Bits: 0b101000, Len: 6},
	{Bits: 0b101001, Len: 6},
	{Bits: 0b101010, Len: 6},
	{Bits: 0b101011, Len: 6},
	{Bits: 0b101100, Len: 6},
	{Bits: 0b101101, Len: 6},
	{Bits: 0b101110, Len: 6},
	{Bits: 0b101111, Len: 6},

	// ranks 17-32: 110xxxx
	{Bits: 0b1100000, Len: 7},
	{Bits: 0b1100001, Len: 7},
	{Bits: 0b1100010, Len: 7},
	{Bits: 0b1100011, Len: 7},
	{Bits: 0b1100100, Len: 7},
	{Bits: 0b1100101, Len: 7},
	{Bits: 0b1100110, Len: 7},
	{Bits: 0b1100111, Len: 7},
	{Bits: 0b1101000, Len: 7},
	{Bits: 0b1101001, Len: 7},
	{Bits: 0b1101010, Len: 7},
	{Bits: 0b1101011, Len: 7},
	{Bits: 0b1101100, Len: 7},
	{Bits: 0b1101101, Len: 7},
	{Bits: 0b1101110, Len: 7},
	{Bits: 0b1101111, Len: 7},

	// rank 33
	{Bits: 0b11100100, Len: 8},
}

func dictSize(ct CompressType) int {
	switch ct {
	case LowSparse:
		return lowSparseDictSize
	case HighSparse:
		return highSparseDictSize
	default:
		return 0
	}
}

func codeTable(ct CompressType) []Code {
	switch ct {
	case LowSparse:
		return lowSparseCodes[:]
	case HighSparse:
		return highSparseCodes[:]
	default:
		return nil
	}
}
