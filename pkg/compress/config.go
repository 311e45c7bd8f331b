package compress

import (
	"fmt"
	"strings"
)

// CompressType selects the static code table used for non-zero bytes.
type CompressType uint8

const (
	CompressTypeUnknown CompressType = iota
	LowSparse
	HighSparse
)

func (t CompressType) String() string {
	switch t {
	case LowSparse:
		return "low-sparse"
	case HighSparse:
		return "high-sparse"
	default:
		return "unknown"
	}
}

// ParseCompressType accepts "low", "low-sparse", "high" and "high-sparse".
func ParseCompressType(s string) (CompressType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "low-sparse", "lowsparse":
		return LowSparse, nil
	case "high", "high-sparse", "highsparse":
		return HighSparse, nil
	default:
		return CompressTypeUnknown, fmt.Errorf("%w: unknown compress type %q", ErrInvalidParameter, s)
	}
}

// DataType tells whether a fractal was genuinely compressed or stored raw.
type DataType uint8

const (
	Compressed DataType = iota
	Bypass
)

func (t DataType) String() string {
	if t == Bypass {
		return "bypass"
	}
	return "compressed"
}

const (
	fractalUnit    = 512
	maxFractalSize = 32768

	cpacketBytes = 8
	cpacketBits  = 64
)

// CompressConfig sizes one CompressWeights call.
type CompressConfig struct {
	EngineNum    int
	Channel      int
	CompressType CompressType
	FractalSize  int
	InputSize    int
	MaxRatio     int
	IsTight      bool
	InitOffset   int
}

// CompressLenAlign is the byte granularity of stored lengths and offsets.
func (c CompressConfig) CompressLenAlign() int {
	if c.MaxRatio <= 0 {
		return 0
	}
	return c.FractalSize / c.MaxRatio
}

// FractalNum is the number of fractals in the input.
func (c CompressConfig) FractalNum() int {
	if c.FractalSize <= 0 {
		return 0
	}
	return c.InputSize / c.FractalSize
}

// IndexSize is the minimum index buffer length for the config.
func (c CompressConfig) IndexSize() int {
	if c.IsTight {
		return c.FractalNum() * TightRecordSize
	}
	return c.FractalNum() * CompactRecordSize
}

// Validate checks sizing rules and that the engine/channel pair names a mode.
func (c CompressConfig) Validate() error {
	if c.MaxRatio != 32 && c.MaxRatio != 64 {
		return fmt.Errorf("%w: max ratio %d (want 32 or 64)", ErrInvalidParameter, c.MaxRatio)
	}
	if c.FractalSize <= 0 || c.InputSize <= 0 || c.InputSize%c.FractalSize != 0 {
		return fmt.Errorf("%w: input size %d is not a positive multiple of fractal size %d", ErrInvalidParameter, c.InputSize, c.FractalSize)
	}
	if c.FractalSize%fractalUnit != 0 || c.FractalSize > maxFractalSize {
		return fmt.Errorf("%w: fractal size %d (want a multiple of %d up to %d)", ErrInvalidParameter, c.FractalSize, fractalUnit, maxFractalSize)
	}
	if c.CompressType != LowSparse && c.CompressType != HighSparse {
		return fmt.Errorf("%w: compress type %d", ErrInvalidParameter, c.CompressType)
	}
	if c.InitOffset < 0 {
		return fmt.Errorf("%w: negative init offset %d", ErrInvalidParameter, c.InitOffset)
	}
	if SelectMode(c.EngineNum, c.Channel) == ModeInvalid {
		return fmt.Errorf("%w: no hardware mode for engines=%d channels=%d", ErrInvalidParameter, c.EngineNum, c.Channel)
	}
	return nil
}

// validateBuffers checks the caller-owned buffers against the config.
func (c CompressConfig) validateBuffers(input, indexes, output []byte) error {
	if input == nil || indexes == nil || output == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidParameter)
	}
	if len(input) != c.InputSize {
		return fmt.Errorf("%w: input is %d bytes, config says %d", ErrInvalidParameter, len(input), c.InputSize)
	}
	if len(indexes) < c.IndexSize() {
		return fmt.Errorf("%w: index buffer %d bytes, need %d", ErrInvalidParameter, len(indexes), c.IndexSize())
	}
	if len(output) < c.InputSize {
		return fmt.Errorf("%w: output buffer %d bytes, need %d", ErrInvalidParameter, len(output), c.InputSize)
	}
	return nil
}

// PresetConfig returns a config for mode with the default 512 byte fractal.
// InputSize is left for the caller.
func PresetConfig(mode CompressMode, ct CompressType) CompressConfig {
	p := mode.Params()
	return CompressConfig{
		EngineNum:    p.EngineNum,
		Channel:      p.Channel,
		CompressType: ct,
		FractalSize:  fractalUnit,
		MaxRatio:     p.DefaultMaxRatio,
		IsTight:      true,
	}
}
