package compress

import (
	"bytes"
	"errors"
	"testing"
)

func generatorConfig(mode CompressMode, fractals int, tight bool) CompressConfig {
	cfg := PresetConfig(mode, LowSparse)
	cfg.InputSize = fractals * cfg.FractalSize
	cfg.IsTight = tight
	return cfg
}

func TestIndexGeneratorTightOffsets(t *testing.T) {
	t.Parallel()

	cfg := generatorConfig(ModeB, 3, true)
	cfg.InitOffset = 40
	data := make([]byte, cfg.InputSize)
	index := make([]byte, cfg.IndexSize())
	g, err := NewIndexGenerator(cfg, data, index)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	// align is 16: 100 -> 112, 512 -> 512, 33 -> 48.
	sizes := []int{100, 512, 33}
	wantOffsets := []uint64{3, 10, 42}
	wantLens := []int{7, 32, 3}
	for i, n := range sizes {
		typ := Compressed
		if n == cfg.FractalSize {
			typ = Bypass
		}
		rec, err := g.Generate(fill(n, byte(i+1)), typ)
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		if rec.Offset != wantOffsets[i] || rec.DataLen != wantLens[i] {
			t.Fatalf("record %d: offset %d len %d, want %d %d", i, rec.Offset, rec.DataLen, wantOffsets[i], wantLens[i])
		}
		if rec.SpecialFlag != (typ == Compressed) {
			t.Fatalf("record %d: special flag %v for %s", i, rec.SpecialFlag, typ)
		}
	}
	if got := g.CompressedLength(); got != 112+512+48 {
		t.Fatalf("compressed length: got %d want %d", got, 112+512+48)
	}
	if !bytes.Equal(data[100:112], make([]byte, 12)) || data[112] != 2 {
		t.Fatalf("first fractal was not zero padded to its aligned length")
	}

	recs, err := DecodeIndex(index, ModeB, true, 3)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, r := range recs {
		if r != g.Records()[i] {
			t.Fatalf("stored record %d differs: %+v vs %+v", i, r, g.Records()[i])
		}
	}
}

func TestIndexGeneratorCompactBalancesModeB(t *testing.T) {
	t.Parallel()

	cfg := generatorConfig(ModeB, 4, false)
	data := make([]byte, cfg.InputSize)
	index := make([]byte, cfg.IndexSize())
	g, err := NewIndexGenerator(cfg, data, index)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	// window is 128 bytes, align 16.
	cases := []struct {
		n      int
		store  int
		circle bool
	}{
		{100, 0, false},
		{100, 1, false},
		{300, 1, false},
		{512, 0, true},
	}
	for i, tc := range cases {
		rec, err := g.Generate(fill(tc.n, byte(0x10+i)), Compressed)
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		if rec.StoreOffset != tc.store || rec.CircleMode != tc.circle {
			t.Fatalf("record %d: store %d circle %v, want %d %v", i, rec.StoreOffset, rec.CircleMode, tc.store, tc.circle)
		}
		start := i*cfg.FractalSize + tc.store*128
		if data[start] != byte(0x10+i) || data[start+tc.n-1] != byte(0x10+i) {
			t.Fatalf("record %d: data not at slot offset %d", i, start)
		}
	}
	want := []int{112 + 128, 112 + 128 + 128, 128 + 128, 48 + 128}
	got := g.Balance()
	for c := range want {
		if got[c] != want[c] {
			t.Fatalf("balance: got %v want %v", got, want)
		}
	}
	if n := g.CompressedLength(); n != 4*cfg.FractalSize {
		t.Fatalf("compressed length: got %d want %d", n, 4*cfg.FractalSize)
	}
}

func TestIndexGeneratorCompactModeAPicksLighterChannel(t *testing.T) {
	t.Parallel()

	cfg := generatorConfig(ModeA, 3, false)
	data := make([]byte, cfg.InputSize)
	index := make([]byte, cfg.IndexSize())
	g, err := NewIndexGenerator(cfg, data, index)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	// window is 256 bytes, align 8.
	cases := []struct {
		n, flag, size int
	}{
		{100, 0, 1},
		{50, 1, 1},
		{300, 0, 2},
	}
	for i, tc := range cases {
		rec, err := g.Generate(fill(tc.n, 1), Compressed)
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		if rec.OffsetFlag != tc.flag || rec.Size != tc.size {
			t.Fatalf("record %d: flag %d size %d, want %d %d", i, rec.OffsetFlag, rec.Size, tc.flag, tc.size)
		}
		if rec.AlignFlag != (tc.n%8 != 0) {
			t.Fatalf("record %d: align flag %v", i, rec.AlignFlag)
		}
	}
	if n := g.CompressedLength(); n != 2*512+304 {
		t.Fatalf("compressed length: got %d want %d", n, 2*512+304)
	}
	for i, r := range g.Records() {
		if r.Offset != 0 {
			t.Fatalf("record %d: compact record carries offset %d", i, r.Offset)
		}
	}
}

func TestIndexGeneratorRejectsOversizedFractal(t *testing.T) {
	t.Parallel()

	cfg := generatorConfig(ModeB, 1, true)
	g, err := NewIndexGenerator(cfg, make([]byte, cfg.InputSize), make([]byte, cfg.IndexSize()))
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	if _, err := g.Generate(make([]byte, cfg.FractalSize+1), Bypass); err == nil {
		t.Fatalf("expected error for oversized fractal")
	}
	if _, err := g.Generate(nil, Compressed); err == nil {
		t.Fatalf("expected error for empty fractal")
	}
}

func TestIndexGeneratorPlaceChecksPaddedLength(t *testing.T) {
	t.Parallel()

	cfg := generatorConfig(ModeB, 1, true)
	g, err := NewIndexGenerator(cfg, make([]byte, cfg.InputSize), make([]byte, cfg.IndexSize()))
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	// The fractal itself fits; its zero padding does not.
	if err := g.place(cfg.InputSize-16, make([]byte, 8), 32); !errors.Is(err, ErrCopyFailure) {
		t.Fatalf("padded overrun: got %v want ErrCopyFailure", err)
	}
	if err := g.place(-1, make([]byte, 8), 16); !errors.Is(err, ErrCopyFailure) {
		t.Fatalf("negative offset: got %v want ErrCopyFailure", err)
	}
	data := g.data
	data[cfg.InputSize-1] = 0xAA
	if err := g.place(cfg.InputSize-16, []byte{1, 2, 3}, 16); err != nil {
		t.Fatalf("exact fit: %v", err)
	}
	if !bytes.Equal(data[cfg.InputSize-16:], append([]byte{1, 2, 3}, make([]byte, 13)...)) {
		t.Fatalf("placement not zero padded: %x", data[cfg.InputSize-16:])
	}
}
