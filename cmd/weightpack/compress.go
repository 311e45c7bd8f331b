package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/weightpack/internal/logger"
	"github.com/samcharles93/weightpack/pkg/compress"
)

type compressSummary struct {
	Input            string  `json:"input"`
	IndexPath        string  `json:"index_path"`
	DataPath         string  `json:"data_path"`
	Mode             string  `json:"mode"`
	CompressType     string  `json:"compress_type"`
	InputSize        int     `json:"input_size"`
	PaddedSize       int     `json:"padded_size"`
	IndexSize        int     `json:"index_size"`
	CompressedLength int     `json:"compressed_length"`
	Fractals         int     `json:"fractals"`
	BypassFractals   int     `json:"bypass_fractals"`
	Ratio            float64 `json:"ratio"`
}

func compressCmd() *cli.Command {
	var (
		input    string
		prefix   string
		pad      bool
		parallel bool
		asJSON   bool
	)

	return &cli.Command{
		Name:  "compress",
		Usage: "Compress one raw weight file into <prefix>.idx and <prefix>.dat",
		Flags: append(codecFlags(),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"in"},
				Usage:       "raw weight bytes",
				Required:    true,
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"out"},
				Usage:       "output prefix (default: input path without extension)",
				Destination: &prefix,
			},
			&cli.BoolFlag{
				Name:        "pad",
				Usage:       "zero-fill the input up to a whole number of fractals",
				Destination: &pad,
			},
			&cli.BoolFlag{
				Name:        "parallel-engines",
				Usage:       "run the engines of each fractal on separate goroutines",
				Destination: &parallel,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the summary as JSON",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCodecConfig(cmd, fileConfig)
			cfg, err := codecConfig(true)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}
			inputSize := len(data)
			if cfg.FractalSize > 0 && len(data)%cfg.FractalSize != 0 {
				if !pad {
					return fmt.Errorf("%s is %d bytes, not a multiple of fractal size %d (use --pad)", input, len(data), cfg.FractalSize)
				}
				padded := make([]byte, (len(data)/cfg.FractalSize+1)*cfg.FractalSize)
				copy(padded, data)
				data = padded
			}
			cfg.InputSize = len(data)

			idxPath, datPath, err := resolveCompressOut(input, prefix)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)
			res, index, out, err := compressBest(data, cfg, compress.Options{Logger: log, ParallelEngines: parallel})
			if err != nil {
				return err
			}
			if err := os.WriteFile(idxPath, index, 0o644); err != nil {
				return err
			}
			if err := os.WriteFile(datPath, out[:res.CompressedLength], 0o644); err != nil {
				return err
			}

			sum := compressSummary{
				Input:            input,
				IndexPath:        idxPath,
				DataPath:         datPath,
				Mode:             res.Mode.String(),
				CompressType:     res.Dictionary.Type().String(),
				InputSize:        inputSize,
				PaddedSize:       cfg.InputSize,
				IndexSize:        len(index),
				CompressedLength: res.CompressedLength,
				Fractals:         res.Fractals,
				BypassFractals:   res.BypassFractals,
				Ratio:            res.Ratio(cfg.InputSize),
			}
			w := stdout(cmd)
			if asJSON {
				return writeJSON(w, sum)
			}
			_, err = fmt.Fprintf(w, "%s: mode %s %s, %d fractals (%d bypass), %d -> %d bytes (%.3fx)\nindex %s\ndata  %s\n",
				sum.Input, sum.Mode, sum.CompressType, sum.Fractals, sum.BypassFractals,
				sum.PaddedSize, sum.CompressedLength, sum.Ratio, sum.IndexPath, sum.DataPath)
			return err
		},
	}
}

// compressBest runs the codec once for a fixed compress type, or with both
// tables for CompressTypeUnknown, keeping the shorter output.
func compressBest(data []byte, cfg compress.CompressConfig, opts compress.Options) (*compress.Result, []byte, []byte, error) {
	types := []compress.CompressType{cfg.CompressType}
	if cfg.CompressType == compress.CompressTypeUnknown {
		types = []compress.CompressType{compress.LowSparse, compress.HighSparse}
	}
	var (
		best               *compress.Result
		bestIndex, bestOut []byte
	)
	for _, ct := range types {
		c := cfg
		c.CompressType = ct
		index := make([]byte, c.IndexSize())
		out := make([]byte, c.InputSize)
		res, err := compress.Compress(data, c, index, out, opts)
		if err != nil {
			return nil, nil, nil, err
		}
		if best == nil || res.CompressedLength < best.CompressedLength {
			best, bestIndex, bestOut = res, index, out
		}
	}
	return best, bestIndex, bestOut, nil
}
