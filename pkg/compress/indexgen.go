package compress

import "fmt"

// IndexGenerator places compressed fractals into the data buffer and appends
// one index record per fractal. Tight mode packs fractals back to back with
// explicit offsets; compact mode keeps a fixed fractal stride and picks the
// channel window that balances load across RAM channels.
type IndexGenerator struct {
	cfg    CompressConfig
	mode   CompressMode
	align  int
	window int
	data   []byte
	index  []byte

	cursor  int
	iter    int
	total   int
	balance []int
	records []IndexRecord
}

// NewIndexGenerator returns a generator writing into data and index.
func NewIndexGenerator(cfg CompressConfig, data, index []byte) (*IndexGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode := SelectMode(cfg.EngineNum, cfg.Channel)
	g := &IndexGenerator{
		cfg:     cfg,
		mode:    mode,
		align:   cfg.CompressLenAlign(),
		window:  cfg.FractalSize / cfg.Channel,
		data:    data,
		index:   index,
		balance: make([]int, cfg.Channel),
		records: make([]IndexRecord, 0, cfg.FractalNum()),
	}
	return g, nil
}

func (g *IndexGenerator) recordSize() int {
	if g.cfg.IsTight {
		return TightRecordSize
	}
	return CompactRecordSize
}

// Generate stores one fractal's (compressed or raw) bytes and appends its record.
func (g *IndexGenerator) Generate(fractal []byte, typ DataType) (IndexRecord, error) {
	length := len(fractal)
	if length == 0 || length > g.cfg.FractalSize {
		return IndexRecord{}, fmt.Errorf("%w: fractal %d has %d bytes (max %d)", ErrEncodingOverflow, g.iter, length, g.cfg.FractalSize)
	}
	aligned := (length + g.align - 1) / g.align * g.align
	rec := IndexRecord{
		DataLen:     aligned / g.align,
		SpecialFlag: typ == Compressed,
	}
	switch g.mode {
	case ModeA:
		rec.AlignFlag = aligned != length
		rec.ModeFlag = g.cfg.CompressType == HighSparse
	case ModeB:
		rec.Extended = rec.DataLen>>bDataLenBits != 0
	}

	if g.cfg.IsTight {
		if err := g.place(g.cursor, fractal, aligned); err != nil {
			return IndexRecord{}, err
		}
		rec.Offset = uint64((g.cursor + g.cfg.InitOffset + g.align - 1) / g.align)
		g.cursor += aligned
		g.total = g.cursor
	} else {
		windows := (aligned + g.window - 1) / g.window
		var off int
		switch g.mode {
		case ModeA:
			off = g.pickLighter(windows)
			rec.Size = windows
			rec.OffsetFlag = off
		case ModeB:
			off = g.pickLeastLoaded(windows)
			rec.StoreOffset = off
			rec.CircleMode = windows == g.cfg.Channel
		}
		start := g.cursor + off*g.window
		if err := g.place(start, fractal, aligned); err != nil {
			return IndexRecord{}, err
		}
		for w := 0; w < windows; w++ {
			g.balance[off+w] += min(g.window, aligned-w*g.window)
		}
		g.cursor += g.cfg.FractalSize
		g.total = max(g.total, start+aligned)
	}

	size := g.recordSize()
	at := g.iter * size
	if at+size > len(g.index) {
		return IndexRecord{}, fmt.Errorf("%w: index record %d past %d byte index buffer", ErrCopyFailure, g.iter, len(g.index))
	}
	if err := PutRecord(g.index[at:], g.mode, g.cfg.IsTight, rec); err != nil {
		return IndexRecord{}, err
	}
	g.iter++
	g.records = append(g.records, rec)
	return rec, nil
}

// pickLighter chooses the two-channel window. A fractal with an odd window
// footprint that fits goes to the lighter channel; ties pick channel 0.
func (g *IndexGenerator) pickLighter(windows int) int {
	if windows%2 == 1 && windows+1 <= g.cfg.Channel && g.balance[1] < g.balance[0] {
		return 1
	}
	return 0
}

// pickLeastLoaded chooses the first channel of the run of windows channels with
// the lowest summed load that still fits inside the fractal slot.
func (g *IndexGenerator) pickLeastLoaded(windows int) int {
	best, bestLoad := 0, -1
	for s := 0; s+windows <= g.cfg.Channel; s++ {
		load := 0
		for c := s; c < s+windows; c++ {
			load += g.balance[c]
		}
		if bestLoad < 0 || load < bestLoad {
			best, bestLoad = s, load
		}
	}
	return best
}

// place copies fractal to data[at:] and zero pads it to aligned bytes.
func (g *IndexGenerator) place(at int, fractal []byte, aligned int) error {
	if at < 0 || aligned > len(g.data)-at {
		return fmt.Errorf("%w: %d bytes at offset %d into %d byte data buffer", ErrCopyFailure, aligned, at, len(g.data))
	}
	copy(g.data[at:], fractal)
	clear(g.data[at+len(fractal) : at+aligned])
	return nil
}

// CompressedLength is the number of data buffer bytes in use: the packed length
// in tight mode, the end of the furthest placement in compact mode.
func (g *IndexGenerator) CompressedLength() int { return g.total }

// Records returns the records generated so far, in processing order.
func (g *IndexGenerator) Records() []IndexRecord { return g.records }

// Balance returns the per-channel byte load of compact placement.
func (g *IndexGenerator) Balance() []int {
	out := make([]int, len(g.balance))
	copy(out, g.balance)
	return out
}
