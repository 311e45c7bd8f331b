package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfig = "WEIGHTPACK_CONFIG"

// Config represents the weightpack configuration file
// (~/.config/weightpack/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	// Codec defaults
	Mode         string `yaml:"mode"`
	EngineNum    *int   `yaml:"engine_num"`
	Channel      *int   `yaml:"channel"`
	CompressType string `yaml:"compress_type"`
	FractalSize  *int   `yaml:"fractal_size"`
	MaxRatio     *int   `yaml:"max_ratio"`
	Tight        *bool  `yaml:"tight"`
	InitOffset   *int   `yaml:"init_offset"`

	// Packing
	Workers   *int   `yaml:"workers"`
	MinBytes  *int   `yaml:"min_bytes"`
	Baselines string `yaml:"baselines"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

// fileConfig is loaded once by the root Before hook.
var fileConfig Config

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "weightpack", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config; a
// malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyCodecConfig applies config file defaults to the codec flag variables
// when the corresponding flag was not explicitly set.
func applyCodecConfig(c *cli.Command, cfg Config) {
	if cfg.Mode != "" && !c.IsSet("mode") {
		modeName = cfg.Mode
	}
	if cfg.EngineNum != nil && !c.IsSet("engine-num") {
		engineNum = *cfg.EngineNum
	}
	if cfg.Channel != nil && !c.IsSet("channel") {
		channel = *cfg.Channel
	}
	if cfg.CompressType != "" && !c.IsSet("compress-type") {
		compressType = cfg.CompressType
	}
	if cfg.FractalSize != nil && !c.IsSet("fractal-size") {
		fractalSize = *cfg.FractalSize
	}
	if cfg.MaxRatio != nil && !c.IsSet("max-ratio") {
		maxRatio = *cfg.MaxRatio
	}
	if cfg.Tight != nil && !c.IsSet("tight") {
		tight = *cfg.Tight
	}
	if cfg.InitOffset != nil && !c.IsSet("init-offset") {
		initOffset = *cfg.InitOffset
	}
}

func applyPackConfig(c *cli.Command, cfg Config, workers, minBytes *int, baselines *string) {
	if cfg.Workers != nil && !c.IsSet("workers") {
		*workers = *cfg.Workers
	}
	if cfg.MinBytes != nil && !c.IsSet("min-bytes") {
		*minBytes = *cfg.MinBytes
	}
	if cfg.Baselines != "" && !c.IsSet("baselines") {
		*baselines = cfg.Baselines
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
