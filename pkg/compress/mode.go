package compress

// CompressMode names a supported decode-hardware topology.
type CompressMode uint8

const (
	ModeInvalid CompressMode = iota
	ModeA
	ModeB
)

func (m CompressMode) String() string {
	switch m {
	case ModeA:
		return "A"
	case ModeB:
		return "B"
	default:
		return "invalid"
	}
}

// ModeParams are the fixed hardware constants of a mode.
type ModeParams struct {
	EngineNum   int
	Channel     int
	CmpAlign    int // reorder block size per engine
	BaseFileLen int // bytes per end-marker terminated sub-block
	HeadOverlap int // dictionary bytes carried inside the 8 byte header

	DefaultMaxRatio int
}

var modeParams = [...]ModeParams{
	ModeA: {EngineNum: 4, Channel: 2, CmpAlign: 32, BaseFileLen: 128, HeadOverlap: 2, DefaultMaxRatio: 64},
	ModeB: {EngineNum: 1, Channel: 4, CmpAlign: 32, BaseFileLen: 512, HeadOverlap: 3, DefaultMaxRatio: 32},
}

// Params returns the constants of m. The zero value is returned for ModeInvalid.
func (m CompressMode) Params() ModeParams {
	if m == ModeInvalid || int(m) >= len(modeParams) {
		return ModeParams{}
	}
	return modeParams[m]
}

// Modes lists the valid modes in tag order.
func Modes() []CompressMode { return []CompressMode{ModeA, ModeB} }

// SelectMode derives the mode from the engine and channel counts.
// Unknown pairs yield ModeInvalid; there is no fallback.
func SelectMode(engineNum, channel int) CompressMode {
	switch {
	case engineNum == 4 && channel == 2:
		return ModeA
	case engineNum == 1 && channel == 4:
		return ModeB
	default:
		return ModeInvalid
	}
}
