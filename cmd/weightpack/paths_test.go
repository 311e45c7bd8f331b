package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePackOut(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got, err := resolvePackOut(filepath.Join(dir, "model.safetensors"), "")
	if err != nil {
		t.Fatalf("default output: %v", err)
	}
	if want := filepath.Join(dir, "model.wcf"); got != want {
		t.Fatalf("default output: got %q want %q", got, want)
	}

	explicit := filepath.Join(dir, "nested", "out.wcf")
	got, err = resolvePackOut("model.safetensors", explicit)
	if err != nil || got != explicit {
		t.Fatalf("explicit output: got %q err %v", got, err)
	}
	if _, err := os.Stat(filepath.Dir(explicit)); err != nil {
		t.Fatalf("output directory not created: %v", err)
	}

	if _, err := resolvePackOut(filepath.Join(dir, "x.wcf"), ""); err == nil {
		t.Fatal("expected error when output equals input")
	}
}

func TestResolveCompressOut(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	idx, dat, err := resolveCompressOut(filepath.Join(dir, "layer0.bin"), "")
	if err != nil {
		t.Fatalf("default prefix: %v", err)
	}
	if idx != filepath.Join(dir, "layer0.idx") || dat != filepath.Join(dir, "layer0.dat") {
		t.Fatalf("default prefix: got %q %q", idx, dat)
	}

	idx, dat, err = resolveCompressOut("in.bin", filepath.Join(dir, "sub", "p"))
	if err != nil || filepath.Base(idx) != "p.idx" || filepath.Base(dat) != "p.dat" {
		t.Fatalf("explicit prefix: got %q %q err %v", idx, dat, err)
	}

	if _, _, err := resolveCompressOut(filepath.Join(dir, "w.dat"), ""); err == nil {
		t.Fatal("expected error when data path equals input")
	}
}
