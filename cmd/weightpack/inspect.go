package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/weightpack/internal/store"
	"github.com/samcharles93/weightpack/pkg/compress"
	"github.com/samcharles93/weightpack/pkg/wcf"
)

type sectionView struct {
	Type    string `json:"type"`
	Version uint32 `json:"version"`
	Offset  uint64 `json:"offset"`
	Size    uint64 `json:"size"`
}

type inspectView struct {
	Path      string                 `json:"path"`
	Major     uint16                 `json:"major"`
	Minor     uint16                 `json:"minor"`
	FileSize  uint64                 `json:"file_size"`
	Tight     bool                   `json:"tight"`
	Sections  []sectionView          `json:"sections"`
	PackInfo  *wcf.PackInfo          `json:"pack_info"`
	Tensors   []wcf.TensorRecord     `json:"tensors"`
	Records   []compress.IndexRecord `json:"records,omitempty"`
	RecordsOf string                 `json:"records_of,omitempty"`
}

func inspectCmd() *cli.Command {
	var (
		input   string
		records string
		filter  string
		asJSON  bool
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the contents of a .wcf container",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"in"},
				Usage:       "path to .wcf file",
				Required:    true,
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "records",
				Usage:       "decode and print the index records of this tensor",
				Destination: &records,
			},
			&cli.StringFlag{
				Name:        "filter",
				Usage:       "only list tensors whose name contains this string",
				Destination: &filter,
			},
			&cli.BoolFlag{Name: "json", Usage: "print as JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := store.Open(input)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			view, err := buildInspectView(input, f, filter, records)
			if err != nil {
				return err
			}
			w := stdout(cmd)
			if asJSON {
				return writeJSON(w, view)
			}
			return printInspect(w, view)
		},
	}
}

func buildInspectView(path string, f *store.File, filter, records string) (*inspectView, error) {
	c := f.Container()
	view := &inspectView{
		Path:     path,
		Major:    c.Header.Major,
		Minor:    c.Header.Minor,
		FileSize: c.Header.FileSize,
		Tight:    c.TightIndex(),
		PackInfo: f.PackInfo(),
	}
	for _, s := range c.Sections {
		view.Sections = append(view.Sections, sectionView{
			Type:    wcf.SectionType(s.Type).String(),
			Version: s.Version,
			Offset:  s.Offset,
			Size:    s.Size,
		})
	}
	for _, t := range f.Tensors() {
		if filter == "" || strings.Contains(t.Name, filter) {
			view.Tensors = append(view.Tensors, t)
		}
	}
	if records != "" {
		recs, err := f.Records(records)
		if err != nil {
			return nil, err
		}
		view.Records = recs
		view.RecordsOf = records
	}
	return view, nil
}

func printInspect(w io.Writer, v *inspectView) error {
	info := v.PackInfo
	_, _ = fmt.Fprintf(w, "file:     %s (WCF %d.%d, %d bytes)\n", v.Path, v.Major, v.Minor, v.FileSize)
	_, _ = fmt.Fprintf(w, "tool:     %s %s\n", info.Tool, info.ToolVersion)
	if info.PackID != "" {
		_, _ = fmt.Fprintf(w, "pack id:  %s\n", info.PackID)
	}
	_, _ = fmt.Fprintf(w, "codec:    mode %s, %d engines x %d channels, fractal %d, max ratio %d, tight %v, init offset %d\n",
		info.Mode, info.EngineNum, info.Channel, info.FractalSize, info.MaxRatio, info.Tight, info.InitOffset)
	_, _ = fmt.Fprintf(w, "tensors:  %d, %d -> %d bytes, %d deduped\n\n", info.TensorCount, info.RawBytes, info.StoredBytes, info.DedupedBytes)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SECTION\tVERSION\tOFFSET\tSIZE")
	for _, s := range v.Sections {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.Type, s.Version, s.Offset, s.Size)
	}
	_, _ = fmt.Fprintln(tw)
	_, _ = fmt.Fprintln(tw, "TENSOR\tDTYPE\tSHAPE\tTYPE\tRAW\tSTORED\tFRACTALS\tBYPASS\tDEDUP")
	for _, t := range v.Tensors {
		dedup := t.DedupOf
		if dedup == "" {
			dedup = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%d\t%d\t%d\t%d\t%s\n",
			t.Name, t.DType, t.Shape, t.CompressType, t.RawSize, t.CompressedLength, t.Fractals, t.BypassFractals, dedup)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if v.RecordsOf == "" {
		return nil
	}
	_, _ = fmt.Fprintf(w, "\nindex records of %s:\n", v.RecordsOf)
	for i, r := range v.Records {
		kind := "bypass"
		if r.SpecialFlag {
			kind = "compressed"
		}
		_, _ = fmt.Fprintf(w, "  %4d  %-10s len=%d offset=%d size=%d window=%d circle=%v store=%d\n",
			i, kind, r.DataLen, r.Offset, r.Size, r.OffsetFlag, r.CircleMode, r.StoreOffset)
	}
	return nil
}
