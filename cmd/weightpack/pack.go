package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/weightpack/internal/baseline"
	"github.com/samcharles93/weightpack/internal/logger"
	"github.com/samcharles93/weightpack/internal/packer"
	"github.com/samcharles93/weightpack/internal/version"
)

func packCmd() *cli.Command {
	var (
		input     string
		output    string
		workers   int
		minBytes  int
		baselines string
		parallel  bool
		asJSON    bool
	)

	return &cli.Command{
		Name:  "pack",
		Usage: "Compress every tensor of a safetensors file into a .wcf container",
		Flags: append(codecFlags(),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"in"},
				Usage:       "input .safetensors file",
				Required:    true,
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"out"},
				Usage:       "output .wcf path (default: next to the input)",
				Destination: &output,
			},
			&cli.IntFlag{
				Name:        "workers",
				Usage:       "tensors compressed concurrently (0 = GOMAXPROCS)",
				Destination: &workers,
			},
			&cli.IntFlag{
				Name:        "min-bytes",
				Usage:       "store tensors smaller than this raw",
				Value:       4096,
				Destination: &minBytes,
			},
			&cli.StringFlag{
				Name:        "baselines",
				Usage:       "baseline codecs to measure: all, none or a list of zstd,lz4",
				Value:       "none",
				Destination: &baselines,
			},
			&cli.BoolFlag{
				Name:        "parallel-engines",
				Usage:       "run the engines of each fractal on separate goroutines",
				Destination: &parallel,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the pack report as JSON",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCodecConfig(cmd, fileConfig)
			applyPackConfig(cmd, fileConfig, &workers, &minBytes, &baselines)

			cfg, err := codecConfig(true)
			if err != nil {
				return err
			}
			codecs, err := baseline.ParseCodecs(baselines)
			if err != nil {
				return err
			}
			out, err := resolvePackOut(input, output)
			if err != nil {
				return err
			}

			report, err := packer.Pack(ctx, packer.Options{
				Input:           input,
				Output:          out,
				Config:          cfg,
				MinBytes:        minBytes,
				Workers:         workers,
				Baselines:       codecs,
				ParallelEngines: parallel,
				Tool:            "weightpack",
				ToolVersion:     version.String(),
			})
			if err != nil {
				return err
			}
			logger.FromContext(ctx).Info("pack complete",
				"output", report.Output,
				"tensors", len(report.Tensors),
				"ratio", fmt.Sprintf("%.3f", report.Ratio()),
				"duration", report.Duration,
			)

			w := stdout(cmd)
			if asJSON {
				return writeJSON(w, report)
			}
			return printPackReport(w, report)
		},
	}
}

func printPackReport(w io.Writer, r *packer.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TENSOR\tTYPE\tRAW\tSTORED\tFRACTALS\tBYPASS\tRATIO\tBASELINES")
	for _, t := range r.Tensors {
		typ := t.CompressType
		if t.DedupOf != "" {
			typ = "dedup:" + t.DedupOf
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%.3f\t%s\n",
			t.Name, typ, t.RawSize, t.StoredSize, t.Fractals, t.BypassFractals, t.Ratio, formatBaselines(t.Baselines))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s: %d tensors, %d -> %d bytes (%.3fx), %d deduped bytes, pack id %s\n",
		r.Output, len(r.Tensors), r.RawBytes, r.StoredBytes, r.Ratio(), r.DedupedBytes, r.PackID)
	return err
}

func formatBaselines(rs []baseline.Ratio) string {
	if len(rs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, fmt.Sprintf("%s=%.3f", r.Codec, r.Ratio))
	}
	return strings.Join(parts, " ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
