package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolvePackOut returns the container path for a pack run. An empty out puts
// <input stem>.wcf next to the input.
func resolvePackOut(in, out string) (string, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		out = trimExt(in) + ".wcf"
	}
	out = filepath.Clean(out)
	if out == filepath.Clean(in) {
		return "", fmt.Errorf("output %q would overwrite the input", out)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	return out, nil
}

// resolveCompressOut returns the index and data paths for a compress run,
// <prefix>.idx and <prefix>.dat. An empty prefix uses the input stem.
func resolveCompressOut(in, prefix string) (string, string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = trimExt(in)
	}
	prefix = filepath.Clean(prefix)
	idx, dat := prefix+".idx", prefix+".dat"
	if c := filepath.Clean(in); idx == c || dat == c {
		return "", "", fmt.Errorf("output %q would overwrite the input", c)
	}
	if err := os.MkdirAll(filepath.Dir(prefix), 0o755); err != nil {
		return "", "", err
	}
	return idx, dat, nil
}

func trimExt(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p))
}
