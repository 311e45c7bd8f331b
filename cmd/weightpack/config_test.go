package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	if err != nil || cfg.EngineNum != nil {
		t.Fatalf("missing file: %+v %v", cfg, err)
	}

	path := filepath.Join(dir, "config.yaml")
	body := "mode: B\nchannel: 4\ncompress_type: high\ntight: false\nworkers: 3\nlog_level: debug\nserver_address: 0.0.0.0:9000\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "B" || cfg.Channel == nil || *cfg.Channel != 4 || cfg.CompressType != "high" {
		t.Fatalf("codec fields: %+v", cfg)
	}
	if cfg.Tight == nil || *cfg.Tight || cfg.Workers == nil || *cfg.Workers != 3 {
		t.Fatalf("pointer fields: %+v", cfg)
	}
	if cfg.LogLevel != "debug" || cfg.ServerAddress != "0.0.0.0:9000" {
		t.Fatalf("string fields: %+v", cfg)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("workers: [1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Fatal("expected parse error")
	}
}

// The codec flag variables are package state, so these tests do not run in parallel.
func TestApplyCodecConfigRespectsFlags(t *testing.T) {
	four, ratio := 4, 32
	off := false
	cfg := Config{Mode: "B", Channel: &four, MaxRatio: &ratio, Tight: &off, CompressType: "high"}

	cmd := &cli.Command{
		Name:  "test",
		Flags: codecFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCodecConfig(cmd, cfg)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"test", "--mode", "A", "--compress-type", "low"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if modeName != "A" || compressType != "low" {
		t.Fatalf("explicit flags overridden: mode %q type %q", modeName, compressType)
	}
	if channel != 4 || maxRatio != 32 || tight {
		t.Fatalf("config not applied: channel %d ratio %d tight %v", channel, maxRatio, tight)
	}
}

func parseCodecFlags(t *testing.T, args ...string) {
	t.Helper()
	cmd := &cli.Command{
		Name:   "test",
		Flags:  codecFlags(),
		Action: func(context.Context, *cli.Command) error { return nil },
	}
	if err := cmd.Run(context.Background(), append([]string{"test"}, args...)); err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
}

func TestCodecConfig(t *testing.T) {
	parseCodecFlags(t, "--mode", "b", "--type", "high", "--init-offset", "16")
	cfg, err := codecConfig(false)
	if err != nil {
		t.Fatalf("codecConfig: %v", err)
	}
	if cfg.EngineNum != 1 || cfg.Channel != 4 || cfg.MaxRatio != 32 || !cfg.IsTight || cfg.InitOffset != 16 || cfg.FractalSize != 512 {
		t.Fatalf("config: %+v", cfg)
	}

	parseCodecFlags(t)
	if _, err := codecConfig(false); err == nil {
		t.Fatal("auto should be rejected when not allowed")
	}
	if cfg, err := codecConfig(true); err != nil || cfg.MaxRatio != 64 || cfg.EngineNum != 4 {
		t.Fatalf("auto preset: %+v %v", cfg, err)
	}

	parseCodecFlags(t, "--engine-num", "1", "--channel", "4")
	if cfg, err := codecConfig(true); err != nil || cfg.MaxRatio != 32 {
		t.Fatalf("engine override should pick the mode B ratio: %+v %v", cfg, err)
	}

	parseCodecFlags(t, "--mode", "C")
	if _, err := codecConfig(true); err == nil {
		t.Fatal("expected error for mode C")
	}
}
