package compress

import "fmt"

// Logger receives per-call and per-fractal events. *slog.Logger and the
// weightpack internal logger both satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}

// Options tune a Compress call. The zero value is valid.
type Options struct {
	Logger Logger
	// ParallelEngines runs the engines of a fractal on separate goroutines.
	// Output is identical either way; only the work skipped after a bypass differs.
	ParallelEngines bool
	// Dictionary overrides the dictionary built from the input. Its type must
	// match the config.
	Dictionary *Dictionary
}

// Result summarises one Compress call.
type Result struct {
	CompressedLength int
	Mode             CompressMode
	Fractals         int
	BypassFractals   int
	Dictionary       *Dictionary
	Records          []IndexRecord
	Balance          []int
}

// Ratio is input bytes over compressed bytes.
func (r *Result) Ratio(inputSize int) float64 {
	if r == nil || r.CompressedLength == 0 {
		return 0
	}
	return float64(inputSize) / float64(r.CompressedLength)
}

// CompressWeights compresses input into output and writes one index record per
// fractal into indexes. It returns the number of output bytes used.
func CompressWeights(input []byte, cfg CompressConfig, indexes, output []byte) (int, error) {
	res, err := Compress(input, cfg, indexes, output, Options{})
	if err != nil {
		return 0, err
	}
	return res.CompressedLength, nil
}

// Compress is CompressWeights with options and a detailed result.
func Compress(input []byte, cfg CompressConfig, indexes, output []byte, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.validateBuffers(input, indexes, output); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}

	d := opts.Dictionary
	if d == nil {
		var err error
		if d, err = BuildDictionary(input, cfg.CompressType); err != nil {
			return nil, err
		}
	} else if d.Type() != cfg.CompressType {
		return nil, fmt.Errorf("%w: dictionary is %s, config is %s", ErrInvalidParameter, d.Type(), cfg.CompressType)
	}

	mode := SelectMode(cfg.EngineNum, cfg.Channel)
	fc := newFileCompressor(cfg, mode, d, opts.ParallelEngines)
	gen, err := NewIndexGenerator(cfg, output, indexes)
	if err != nil {
		return nil, err
	}

	scratch := make([]byte, cfg.FractalSize)
	res := &Result{Mode: mode, Fractals: cfg.FractalNum(), Dictionary: d}
	for i := 0; i < res.Fractals; i++ {
		fractal := input[i*cfg.FractalSize : (i+1)*cfg.FractalSize]
		n, typ, err := fc.compressFile(fractal, scratch)
		if err != nil {
			return nil, fmt.Errorf("fractal %d: %w", i, err)
		}
		rec, err := gen.Generate(scratch[:n], typ)
		if err != nil {
			return nil, fmt.Errorf("fractal %d: %w", i, err)
		}
		if typ == Bypass {
			res.BypassFractals++
		}
		log.Debug("fractal", "index", i, "type", typ, "bytes", n, "data_len", rec.DataLen, "offset", rec.Offset)
	}

	res.CompressedLength = gen.CompressedLength()
	res.Records = gen.Records()
	res.Balance = gen.Balance()
	log.Info("compressed weights",
		"mode", mode,
		"type", cfg.CompressType,
		"input_bytes", cfg.InputSize,
		"compressed_bytes", res.CompressedLength,
		"fractals", res.Fractals,
		"bypass", res.BypassFractals,
		"tight", cfg.IsTight,
	)
	return res, nil
}
