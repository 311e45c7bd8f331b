// Package store is the read side of a WCF container: tensor lookup by name
// and decoding of each tensor's index records under the stored codec config.
package store

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samcharles93/weightpack/pkg/compress"
	"github.com/samcharles93/weightpack/pkg/wcf"
)

var ErrTensorNotFound = errors.New("store: tensor not found")

type File struct {
	file    *wcf.File
	info    *wcf.PackInfo
	tensors []wcf.TensorRecord
	byName  map[string]int
	mode    compress.CompressMode
}

func Open(path string) (*File, error) {
	wf, err := wcf.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := fromFile(wf)
	if err != nil {
		_ = wf.Close()
		return nil, err
	}
	return f, nil
}

func fromFile(wf *wcf.File) (*File, error) {
	info, err := wf.PackInfo()
	if err != nil {
		return nil, err
	}
	mode := compress.SelectMode(info.EngineNum, info.Channel)
	if mode == compress.ModeInvalid {
		return nil, fmt.Errorf("%w: pack info names engines=%d channels=%d", wcf.ErrCorruptFile, info.EngineNum, info.Channel)
	}
	if info.Tight != wf.TightIndex() {
		return nil, fmt.Errorf("%w: pack info and header disagree on index layout", wcf.ErrCorruptFile)
	}
	tensors, err := wf.Tensors()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int, len(tensors))
	for i := range tensors {
		byName[tensors[i].Name] = i
	}
	return &File{file: wf, info: info, tensors: tensors, byName: byName, mode: mode}, nil
}

func (f *File) Close() error {
	if f == nil || f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	f.tensors = nil
	f.byName = nil
	return err
}

func (f *File) PackInfo() *wcf.PackInfo { return f.info }

// Container exposes the underlying file for header and section listings.
func (f *File) Container() *wcf.File { return f.file }

func (f *File) Mode() compress.CompressMode { return f.mode }

// Config returns the codec config t was compressed with.
func (f *File) Config(t *wcf.TensorRecord) (compress.CompressConfig, error) {
	ct, err := compress.ParseCompressType(t.CompressType)
	if err != nil {
		return compress.CompressConfig{}, err
	}
	return compress.CompressConfig{
		EngineNum:    f.info.EngineNum,
		Channel:      f.info.Channel,
		CompressType: ct,
		FractalSize:  f.info.FractalSize,
		InputSize:    int(t.PaddedSize),
		MaxRatio:     f.info.MaxRatio,
		IsTight:      f.info.Tight,
		InitOffset:   f.info.InitOffset,
	}, nil
}

// Tensors lists tensor records sorted by name.
func (f *File) Tensors() []wcf.TensorRecord {
	out := make([]wcf.TensorRecord, len(f.tensors))
	copy(out, f.tensors)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *File) Tensor(name string) (wcf.TensorRecord, error) {
	if f == nil || f.byName == nil {
		return wcf.TensorRecord{}, ErrTensorNotFound
	}
	i, ok := f.byName[name]
	if !ok {
		return wcf.TensorRecord{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return f.tensors[i], nil
}

// Records decodes the index records of name. Raw tensors have none.
func (f *File) Records(name string) ([]compress.IndexRecord, error) {
	t, err := f.Tensor(name)
	if err != nil {
		return nil, err
	}
	if t.Raw() {
		return nil, nil
	}
	raw, err := f.file.IndexBytes(&t)
	if err != nil {
		return nil, err
	}
	recs, err := compress.DecodeIndex(raw, f.mode, f.info.Tight, t.Fractals)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	return recs, nil
}

// Data returns a zero-copy view of the stored bytes of name, valid until Close.
func (f *File) Data(name string) ([]byte, error) {
	t, err := f.Tensor(name)
	if err != nil {
		return nil, err
	}
	return f.file.DataBytes(&t)
}

// Index returns a zero-copy view of the raw index bytes of name.
func (f *File) Index(name string) ([]byte, error) {
	t, err := f.Tensor(name)
	if err != nil {
		return nil, err
	}
	return f.file.IndexBytes(&t)
}
