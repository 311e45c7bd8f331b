// Package baseline measures general purpose compressors on the same bytes the
// weight codec sees, so pack reports can show what the codec buys.
package baseline

import (
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type Codec string

const (
	CodecZstd Codec = "zstd"
	CodecLZ4  Codec = "lz4"
)

// All lists the supported codecs in report order.
func All() []Codec { return []Codec{CodecZstd, CodecLZ4} }

// ParseCodecs parses a comma separated codec list. "all" and "" select every codec.
func ParseCodecs(s string) ([]Codec, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return All(), nil
	}
	if s == "none" {
		return nil, nil
	}
	var out []Codec
	for part := range strings.SplitSeq(s, ",") {
		switch c := Codec(strings.TrimSpace(part)); c {
		case CodecZstd, CodecLZ4:
			out = append(out, c)
		default:
			return nil, fmt.Errorf("unknown baseline codec %q", part)
		}
	}
	return out, nil
}

// Ratio is one codec's result. Incompressible input reports the input size.
type Ratio struct {
	Codec      Codec   `json:"codec"`
	InputSize  int     `json:"input_size"`
	OutputSize int     `json:"output_size"`
	Ratio      float64 `json:"ratio"`
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdErr  error
)

// encoder is shared; zstd.Encoder.EncodeAll is safe for concurrent use.
func encoder() (*zstd.Encoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
	})
	return zstdEnc, zstdErr
}

func compressZstd(data []byte) (int, error) {
	enc, err := encoder()
	if err != nil {
		return 0, fmt.Errorf("zstd encoder: %w", err)
	}
	return len(enc.EncodeAll(data, nil)), nil
}

func compressLZ4(data []byte) (int, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return 0, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if n == 0 {
		return len(data), nil
	}
	return n, nil
}

// Measure compresses data with each codec. No codecs means all of them.
func Measure(data []byte, codecs ...Codec) ([]Ratio, error) {
	if len(codecs) == 0 {
		codecs = All()
	}
	out := make([]Ratio, 0, len(codecs))
	for _, c := range codecs {
		var (
			n   int
			err error
		)
		switch {
		case c != CodecZstd && c != CodecLZ4:
			err = fmt.Errorf("unknown baseline codec %q", c)
		case len(data) == 0:
		case c == CodecZstd:
			n, err = compressZstd(data)
		default:
			n, err = compressLZ4(data)
		}
		if err != nil {
			return nil, err
		}
		n = min(n, len(data))
		r := Ratio{Codec: c, InputSize: len(data), OutputSize: n}
		if n > 0 {
			r.Ratio = float64(len(data)) / float64(n)
		}
		out = append(out, r)
	}
	return out, nil
}
