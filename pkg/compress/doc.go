// Package compress implements the fractal weight codec consumed by the
// on-chip decompression engines.
//
// Input is cut into fixed size fractals. Each fractal is split across the
// engines of the selected hardware mode; every engine share is coded in
// sub-blocks of zero-run codes, dictionary prefix codes and escapes packed
// into 64 bit cpackets, and the engine streams are interleaved in CmpAlign
// blocks. A fractal that does not shrink on every engine is stored raw. An
// index record per fractal tells the decoder where the fractal lives and
// whether it is compressed.
//
// The codec is a single pass over caller-owned buffers:
//
//	cfg := compress.PresetConfig(compress.ModeB, compress.HighSparse)
//	cfg.InputSize = len(weights)
//	index := make([]byte, cfg.IndexSize())
//	out := make([]byte, cfg.InputSize)
//	n, err := compress.CompressWeights(weights, cfg, index, out)
package compress
