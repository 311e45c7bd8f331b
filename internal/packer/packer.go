// Package packer compresses every tensor of a safetensors checkpoint with the
// weight codec and writes the result as a WCF container.
package packer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/samcharles93/weightpack/internal/baseline"
	"github.com/samcharles93/weightpack/internal/logger"
	"github.com/samcharles93/weightpack/internal/safetensors"
	"github.com/samcharles93/weightpack/pkg/compress"
	"github.com/samcharles93/weightpack/pkg/wcf"
)

const rawType = "raw"

type Options struct {
	Input  string
	Output string

	// Config is the codec template. InputSize is set per tensor. A
	// CompressTypeUnknown type tries both tables and keeps the smaller result.
	Config compress.CompressConfig

	// MinBytes stores tensors smaller than this raw, without an index.
	MinBytes int
	// Workers bounds concurrent tensor compression. Zero uses GOMAXPROCS.
	Workers int
	// Baselines names codecs measured on each tensor's raw bytes.
	Baselines       []baseline.Codec
	ParallelEngines bool

	Tool        string
	ToolVersion string
}

type TensorReport struct {
	Name           string           `json:"name"`
	RawSize        uint64           `json:"raw_size"`
	StoredSize     uint64           `json:"stored_size"`
	CompressType   string           `json:"compress_type"`
	Fractals       int              `json:"fractals"`
	BypassFractals int              `json:"bypass_fractals"`
	Ratio          float64          `json:"ratio"`
	DedupOf        string           `json:"dedup_of,omitempty"`
	Baselines      []baseline.Ratio `json:"baselines,omitempty"`
}

type Report struct {
	PackID       string         `json:"pack_id"`
	Output       string         `json:"output"`
	Tensors      []TensorReport `json:"tensors"`
	RawBytes     uint64         `json:"raw_bytes"`
	StoredBytes  uint64         `json:"stored_bytes"`
	DedupedBytes uint64         `json:"deduped_bytes"`
	Duration     time.Duration  `json:"duration"`
}

// Ratio is raw bytes over stored bytes.
func (r *Report) Ratio() float64 {
	if r.StoredBytes == 0 {
		return 0
	}
	return float64(r.RawBytes) / float64(r.StoredBytes)
}

// job is one tensor's trip through the pool.
type job struct {
	name  string
	info  safetensors.TensorInfo
	hash  uint64
	ct    string
	index []byte
	data  []byte
	res   *compress.Result

	raw       uint64
	padded    uint64
	baselines []baseline.Ratio
}

func (o *Options) validate() error {
	if o.Input == "" {
		return errors.New("packer: input path required")
	}
	if o.Output == "" {
		return errors.New("packer: output path required")
	}
	if o.MinBytes < 0 || o.Workers < 0 {
		return fmt.Errorf("packer: negative min bytes %d or workers %d", o.MinBytes, o.Workers)
	}
	cfg := o.Config
	cfg.InputSize = cfg.FractalSize
	if cfg.CompressType == compress.CompressTypeUnknown {
		cfg.CompressType = compress.LowSparse
	}
	return cfg.Validate()
}

// Pack compresses opts.Input into opts.Output.
func Pack(ctx context.Context, opts Options) (*Report, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With("component", "packer")
	start := time.Now()

	st, err := safetensors.Open(opts.Input)
	if err != nil {
		return nil, err
	}
	names := st.Names()
	jobs := make([]*job, len(names))
	for i, name := range names {
		info, _ := st.Tensor(name)
		jobs[i] = &job{name: name, info: info}
	}

	if err := runJobs(ctx, jobs, opts.Workers, func(j *job) error {
		return compressTensor(st, j, &opts, log)
	}); err != nil {
		return nil, err
	}

	rep, err := write(jobs, &opts)
	if err != nil {
		return nil, err
	}
	rep.Duration = time.Since(start)
	log.Info("packed checkpoint",
		"tensors", len(jobs),
		"raw_bytes", rep.RawBytes,
		"stored_bytes", rep.StoredBytes,
		"deduped_bytes", rep.DedupedBytes,
		"ratio", fmt.Sprintf("%.3f", rep.Ratio()),
		"duration", rep.Duration,
	)
	return rep, nil
}

// runJobs feeds jobs to workers goroutines and returns the first error.
func runJobs(ctx context.Context, jobs []*job, workers int, fn func(*job) error) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = max(1, min(workers, len(jobs)))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	next := make(chan *job)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range next {
				if errs[w] != nil {
					continue
				}
				if err := fn(j); err != nil {
					errs[w] = fmt.Errorf("tensor %q: %w", j.name, err)
					cancel()
				}
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case next <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(next)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	return context.Cause(ctx)
}

func compressTensor(st *safetensors.File, j *job, opts *Options, log logger.Logger) error {
	raw, _, err := st.ReadTensor(j.name)
	if err != nil {
		return err
	}
	j.raw = uint64(len(raw))
	j.hash = xxh3.Hash(raw)
	if len(opts.Baselines) > 0 {
		if j.baselines, err = baseline.Measure(raw, opts.Baselines...); err != nil {
			return err
		}
	}

	if len(raw) == 0 || len(raw) < opts.MinBytes {
		j.ct = rawType
		j.data = raw
		j.padded = j.raw
		return nil
	}

	fs := opts.Config.FractalSize
	padded := raw
	if rem := len(raw) % fs; rem != 0 {
		padded = make([]byte, len(raw)+fs-rem)
		copy(padded, raw)
	}
	j.padded = uint64(len(padded))

	types := []compress.CompressType{opts.Config.CompressType}
	if opts.Config.CompressType == compress.CompressTypeUnknown {
		types = []compress.CompressType{compress.LowSparse, compress.HighSparse}
	}
	for _, ct := range types {
		cfg := opts.Config
		cfg.CompressType = ct
		cfg.InputSize = len(padded)
		index := make([]byte, cfg.IndexSize())
		out := make([]byte, cfg.InputSize)
		res, err := compress.Compress(padded, cfg, index, out, compress.Options{
			Logger:          log.With("tensor", j.name),
			ParallelEngines: opts.ParallelEngines,
		})
		if err != nil {
			return err
		}
		if j.res == nil || res.CompressedLength < j.res.CompressedLength {
			j.res = res
			j.ct = ct.String()
			j.index = index
			j.data = out[:res.CompressedLength]
		}
	}
	log.Debug("tensor compressed", "tensor", j.name, "type", j.ct, "raw", j.raw, "stored", len(j.data))
	return nil
}

// placement is where a tensor's bytes went, shared by its duplicates.
type placement struct {
	name     string
	job      *job
	indexOff uint64
	dataOff  uint64
	stored   uint64
}

func write(jobs []*job, opts *Options) (*Report, error) {
	f, err := os.Create(opts.Output)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	w, err := wcf.NewWriter(f)
	if err != nil {
		return nil, err
	}
	if opts.Config.IsTight {
		if err := w.AddFlags(wcf.FlagTightIndex); err != nil {
			return nil, err
		}
	}

	rep := &Report{PackID: uuid.NewString(), Output: opts.Output}
	records := make([]wcf.TensorRecord, 0, len(jobs))
	seen := make(map[uint64][]*placement)
	var index bytes.Buffer

	sw, err := w.BeginSection(wcf.SectionCompressedData, wcf.DataVersion)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		rec := wcf.TensorRecord{
			Name:         j.name,
			DType:        j.info.DType,
			Shape:        shapeU64(j.info.Shape),
			RawSize:      j.raw,
			PaddedSize:   j.padded,
			CompressType: j.ct,
			Hash:         fmt.Sprintf("%016x", j.hash),
		}
		if j.res != nil {
			rec.Fractals = j.res.Fractals
			rec.BypassFractals = j.res.BypassFractals
		}

		p := findDuplicate(seen[j.hash], j)
		if p != nil {
			rec.DedupOf = p.name
			rep.DedupedBytes += p.stored
		} else {
			if err := sw.Align(wcf.DataAlign); err != nil {
				return nil, err
			}
			off, err := sw.CurrentAbsOffset()
			if err != nil {
				return nil, err
			}
			if _, err := sw.Write(j.data); err != nil {
				return nil, err
			}
			p = &placement{name: j.name, job: j, indexOff: uint64(index.Len()), dataOff: off, stored: uint64(len(j.data))}
			index.Write(j.index)
			seen[j.hash] = append(seen[j.hash], p)
			rep.StoredBytes += p.stored
		}
		rec.IndexOffset = p.indexOff
		rec.IndexSize = uint64(len(j.index))
		rec.DataOffset = p.dataOff
		rec.DataSize = p.stored
		rec.CompressedLength = p.stored
		records = append(records, rec)

		rep.RawBytes += j.raw
		tr := TensorReport{
			Name:           j.name,
			RawSize:        j.raw,
			StoredSize:     uint64(len(j.data)),
			CompressType:   j.ct,
			Fractals:       rec.Fractals,
			BypassFractals: rec.BypassFractals,
			DedupOf:        rec.DedupOf,
			Baselines:      j.baselines,
		}
		if tr.StoredSize > 0 {
			tr.Ratio = float64(tr.RawSize) / float64(tr.StoredSize)
		}
		rep.Tensors = append(rep.Tensors, tr)
	}
	if err := sw.End(); err != nil {
		return nil, err
	}

	if err := w.WriteSection(wcf.SectionIndexData, wcf.IndexDataVersion, index.Bytes()); err != nil {
		return nil, err
	}
	table, err := wcf.EncodeTensorTable(records)
	if err != nil {
		return nil, err
	}
	if err := w.WriteSection(wcf.SectionTensorTable, wcf.TensorTableVersion, table); err != nil {
		return nil, err
	}

	cfg := opts.Config
	mode := compress.SelectMode(cfg.EngineNum, cfg.Channel)
	info, err := wcf.EncodePackInfo(&wcf.PackInfo{
		Tool:         opts.Tool,
		ToolVersion:  opts.ToolVersion,
		PackID:       rep.PackID,
		Source:       opts.Input,
		Mode:         mode.String(),
		EngineNum:    cfg.EngineNum,
		Channel:      cfg.Channel,
		FractalSize:  cfg.FractalSize,
		MaxRatio:     cfg.MaxRatio,
		Tight:        cfg.IsTight,
		InitOffset:   cfg.InitOffset,
		TensorCount:  len(records),
		RawBytes:     rep.RawBytes,
		StoredBytes:  rep.StoredBytes,
		DedupedBytes: rep.DedupedBytes,
	})
	if err != nil {
		return nil, err
	}
	if err := w.WriteSection(wcf.SectionPackInfo, wcf.PackInfoVersion, info); err != nil {
		return nil, err
	}
	if err := w.Finalise(); err != nil {
		return nil, err
	}
	return rep, f.Close()
}

// findDuplicate returns the placement of an earlier tensor with identical
// stored bytes. The codec is lossless and deterministic, so equal index and
// data bytes under equal parameters mean equal raw tensors.
func findDuplicate(cands []*placement, j *job) *placement {
	for _, p := range cands {
		o := p.job
		if o.raw == j.raw && o.ct == j.ct && bytes.Equal(o.index, j.index) && bytes.Equal(o.data, j.data) {
			return p
		}
	}
	return nil
}

func shapeU64(shape []int) []uint64 {
	out := make([]uint64, len(shape))
	for i, d := range shape {
		out[i] = uint64(d)
	}
	return out
}
