package baseline

import (
	"bytes"
	"math/rand/v2"
	"slices"
	"testing"
)

func TestMeasureCompressibleAndRandom(t *testing.T) {
	t.Parallel()

	zeros := make([]byte, 64<<10)
	got, err := Measure(zeros)
	if err != nil {
		t.Fatalf("measure zeros: %v", err)
	}
	if len(got) != 2 || got[0].Codec != CodecZstd || got[1].Codec != CodecLZ4 {
		t.Fatalf("codecs: %+v", got)
	}
	for _, r := range got {
		if r.Ratio < 20 {
			t.Fatalf("%s: zero page ratio %.2f", r.Codec, r.Ratio)
		}
	}

	rng := rand.New(rand.NewPCG(1, 2))
	noise := make([]byte, 16<<10)
	for i := range noise {
		noise[i] = byte(rng.Uint32())
	}
	got, err = Measure(noise, CodecLZ4)
	if err != nil {
		t.Fatalf("measure noise: %v", err)
	}
	if len(got) != 1 || got[0].OutputSize != len(noise) || got[0].Ratio != 1 {
		t.Fatalf("noise: %+v", got)
	}
}

func TestMeasureEmpty(t *testing.T) {
	t.Parallel()

	got, err := Measure(nil, CodecLZ4)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if got[0].OutputSize != 0 || got[0].Ratio != 0 {
		t.Fatalf("empty: %+v", got[0])
	}
	if _, err := Measure(bytes.Repeat([]byte{1}, 8), Codec("brotli")); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestParseCodecs(t *testing.T) {
	t.Parallel()

	cases := map[string][]Codec{
		"":          All(),
		"all":       All(),
		"none":      nil,
		"lz4":       {CodecLZ4},
		"lz4, zstd": {CodecLZ4, CodecZstd},
	}
	for in, want := range cases {
		got, err := ParseCodecs(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if !slices.Equal(got, want) {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
	if _, err := ParseCodecs("gzip"); err == nil {
		t.Fatalf("expected error for gzip")
	}
}
