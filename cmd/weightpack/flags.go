package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/weightpack/pkg/compress"
)

var (
	logLevel   string
	logFormat  string
	debug      bool
	configFile string

	modeName     string
	engineNum    int
	channel      int
	compressType string
	fractalSize  int
	maxRatio     int
	tight        bool
	initOffset   int
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Usage:       "config file (default $XDG_CONFIG_HOME/weightpack/config.yaml)",
		Sources:     cli.EnvVars(envConfig),
		Destination: &configFile,
	}
}

func codecFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "mode",
			Usage:       "hardware mode preset (A: 4 engines x 2 channels, B: 1 engine x 4 channels)",
			Value:       "A",
			Destination: &modeName,
		},
		&cli.IntFlag{
			Name:        "engine-num",
			Usage:       "override the preset engine count",
			Destination: &engineNum,
		},
		&cli.IntFlag{
			Name:        "channel",
			Usage:       "override the preset channel count",
			Destination: &channel,
		},
		&cli.StringFlag{
			Name:        "compress-type",
			Aliases:     []string{"type"},
			Usage:       "code table: low, high or auto (try both)",
			Value:       "auto",
			Destination: &compressType,
		},
		&cli.IntFlag{
			Name:        "fractal-size",
			Usage:       "bytes per fractal, a multiple of 512",
			Value:       512,
			Destination: &fractalSize,
		},
		&cli.IntFlag{
			Name:        "max-ratio",
			Usage:       "maximum compression ratio, 32 or 64 (0 uses the mode default)",
			Destination: &maxRatio,
		},
		&cli.BoolFlag{
			Name:        "tight",
			Usage:       "write 8 byte tight index records with explicit offsets",
			Value:       true,
			Destination: &tight,
		},
		&cli.IntFlag{
			Name:        "init-offset",
			Usage:       "bias added to tight offsets, in bytes",
			Destination: &initOffset,
		},
	}
}

// codecConfig builds the codec template from the flag values. InputSize is
// left zero.
func codecConfig(allowAuto bool) (compress.CompressConfig, error) {
	var mode compress.CompressMode
	switch strings.ToUpper(strings.TrimSpace(modeName)) {
	case "A":
		mode = compress.ModeA
	case "B":
		mode = compress.ModeB
	default:
		return compress.CompressConfig{}, fmt.Errorf("unknown mode %q (use A or B)", modeName)
	}

	ct := compress.CompressTypeUnknown
	if s := strings.ToLower(strings.TrimSpace(compressType)); s != "auto" {
		var err error
		if ct, err = compress.ParseCompressType(s); err != nil {
			return compress.CompressConfig{}, err
		}
	} else if !allowAuto {
		return compress.CompressConfig{}, fmt.Errorf("compress type auto is not supported here (use low or high)")
	}

	cfg := compress.PresetConfig(mode, ct)
	if engineNum > 0 {
		cfg.EngineNum = engineNum
	}
	if channel > 0 {
		cfg.Channel = channel
	}
	if m := compress.SelectMode(cfg.EngineNum, cfg.Channel); m != compress.ModeInvalid {
		cfg.MaxRatio = m.Params().DefaultMaxRatio
	}
	if maxRatio > 0 {
		cfg.MaxRatio = maxRatio
	}
	cfg.FractalSize = fractalSize
	cfg.IsTight = tight
	cfg.InitOffset = initOffset
	return cfg, nil
}
