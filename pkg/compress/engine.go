package compress

import (
	"fmt"
	"sync"
)

// engineCompressor owns the encoder state and scratch stream of one engine.
type engineCompressor struct {
	id     int
	mode   CompressMode
	params ModeParams
	dict   *Dictionary
	enc    *blockEncoder
	buf    []byte
}

type engineResult struct {
	data []byte // header and cpackets; nil on bypass
	typ  DataType
}

// compress encodes one engine share sub-block by sub-block. As soon as the
// header plus cpackets reach the share length the engine falls back to bypass.
func (c *engineCompressor) compress(share []byte) (engineResult, error) {
	base := c.params.BaseFileLen
	if len(share) == 0 || len(share)%base != 0 {
		return engineResult{}, fmt.Errorf("%w: engine share %d bytes is not a multiple of %d", ErrInvalidParameter, len(share), base)
	}
	blocks := len(share) / base

	h := Header{
		Mode:     c.mode,
		Type:     c.dict.Type(),
		Blocks:   blocks,
		Checksum: Checksum(share),
		Engine:   c.id,
		Dict:     c.dict.entries,
	}
	buf, err := h.AppendTo(c.buf[:0])
	if err != nil {
		return engineResult{}, err
	}
	limit := len(share)
	if len(buf) >= limit {
		return engineResult{typ: Bypass}, nil
	}

	for b := 0; b < blocks; b++ {
		var ok bool
		buf, ok, err = c.enc.encodeBlock(buf, share[b*base:(b+1)*base], limit)
		if err != nil {
			return engineResult{}, err
		}
		if !ok {
			c.buf = buf
			return engineResult{typ: Bypass}, nil
		}
	}
	c.buf = buf
	return engineResult{data: buf, typ: Compressed}, nil
}

// fileCompressor runs the engines of one mode over a fractal.
type fileCompressor struct {
	params   ModeParams
	engines  []*engineCompressor
	streams  [][]byte
	results  []engineResult
	errs     []error
	parallel bool
}

func newFileCompressor(cfg CompressConfig, mode CompressMode, d *Dictionary, parallel bool) *fileCompressor {
	p := mode.Params()
	f := &fileCompressor{
		params:   p,
		engines:  make([]*engineCompressor, p.EngineNum),
		streams:  make([][]byte, p.EngineNum),
		results:  make([]engineResult, p.EngineNum),
		errs:     make([]error, p.EngineNum),
		parallel: parallel && p.EngineNum > 1,
	}
	share := cfg.FractalSize / p.EngineNum
	for i := range f.engines {
		f.engines[i] = &engineCompressor{
			id:     i,
			mode:   mode,
			params: p,
			dict:   d,
			enc:    newBlockEncoder(d),
			buf:    make([]byte, 0, share+cpacketBytes),
		}
	}
	return f
}

// compressFile compresses fractal into dst, either as the reordered engine
// streams or, when any engine bypasses, as a raw copy of the whole fractal.
func (f *fileCompressor) compressFile(fractal, dst []byte) (int, DataType, error) {
	engines := len(f.engines)
	if len(fractal)%engines != 0 {
		return 0, Bypass, fmt.Errorf("%w: fractal %d bytes over %d engines", ErrInvalidParameter, len(fractal), engines)
	}
	share := len(fractal) / engines

	bypass := false
	if f.parallel {
		var wg sync.WaitGroup
		for i, e := range f.engines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.results[i], f.errs[i] = e.compress(fractal[i*share : (i+1)*share])
			}()
		}
		wg.Wait()
		for i := range f.engines {
			if f.errs[i] != nil {
				return 0, Bypass, f.errs[i]
			}
			bypass = bypass || f.results[i].typ == Bypass
		}
	} else {
		for i, e := range f.engines {
			res, err := e.compress(fractal[i*share : (i+1)*share])
			if err != nil {
				return 0, Bypass, err
			}
			f.results[i] = res
			if res.typ == Bypass {
				bypass = true
				break
			}
		}
	}

	if bypass {
		if err := copyChecked(dst, 0, fractal); err != nil {
			return 0, Bypass, err
		}
		return len(fractal), Bypass, nil
	}

	for i := range f.results {
		f.streams[i] = f.results[i].data
	}
	n, err := Reorder(dst, f.streams, f.params.CmpAlign)
	if err != nil {
		return 0, Bypass, err
	}
	return n, Compressed, nil
}
