package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/samcharles93/weightpack/internal/packer"
	"github.com/samcharles93/weightpack/internal/safetensors"
	"github.com/samcharles93/weightpack/pkg/compress"
)

func packSample(t *testing.T, tight bool) string {
	t.Helper()

	dir := t.TempDir()
	in := filepath.Join(dir, "model.safetensors")
	w := make([]byte, 2048)
	for i := range w {
		if i%7 == 0 {
			w[i] = 0x3c
		}
	}
	err := safetensors.Write(in, []safetensors.Tensor{
		{Name: "layer.w", DType: "U8", Shape: []int{2048}, Data: w},
		{Name: "layer.b", DType: "U8", Shape: []int{2}, Data: []byte{9, 9}},
	}, nil)
	if err != nil {
		t.Fatalf("write checkpoint: %v", err)
	}

	cfg := compress.PresetConfig(compress.ModeA, compress.LowSparse)
	cfg.IsTight = tight
	out := filepath.Join(dir, "model.wcf")
	if _, err := packer.Pack(context.Background(), packer.Options{Input: in, Output: out, Config: cfg, MinBytes: 16}); err != nil {
		t.Fatalf("pack: %v", err)
	}
	return out
}

func TestStoreRecords(t *testing.T) {
	t.Parallel()

	for _, tight := range []bool{true, false} {
		f, err := Open(packSample(t, tight))
		if err != nil {
			t.Fatalf("open: %v", err)
		}

		if f.Mode() != compress.ModeA {
			t.Fatalf("mode: got %s", f.Mode())
		}
		names := f.Tensors()
		if len(names) != 2 || names[0].Name != "layer.b" {
			t.Fatalf("tensors: %+v", names)
		}

		recs, err := f.Records("layer.w")
		if err != nil {
			t.Fatalf("records: %v", err)
		}
		if len(recs) != 4 {
			t.Fatalf("records: got %d want 4", len(recs))
		}
		for i, r := range recs {
			if !r.SpecialFlag || r.DataLen == 0 {
				t.Fatalf("record %d: %+v", i, r)
			}
		}
		tr, _ := f.Tensor("layer.w")
		cfg, err := f.Config(&tr)
		if err != nil || cfg.Validate() != nil {
			t.Fatalf("config: %+v %v", cfg, err)
		}

		data, err := f.Data("layer.b")
		if err != nil || string(data) != "\x09\x09" {
			t.Fatalf("raw data: %v %v", data, err)
		}
		if recs, err := f.Records("layer.b"); err != nil || recs != nil {
			t.Fatalf("raw tensor records: %v %v", recs, err)
		}
		if _, err := f.Data("missing"); !errors.Is(err, ErrTensorNotFound) {
			t.Fatalf("missing tensor: got %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}
