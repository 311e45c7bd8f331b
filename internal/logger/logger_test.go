package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func plainPretty(buf *bytes.Buffer, level slog.Level) *PrettyHandler {
	h := NewPrettyHandler(buf, &slog.HandlerOptions{Level: level})
	h.color = false
	return h
}

func TestJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo)
	log.Info("packed", "tensor", "w0")

	out := buf.String()
	for _, want := range []string{`"msg":"packed"`, `"tensor":"w0"`, `"level":"INFO"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Text(&buf, slog.LevelWarn)
	log.Info("hidden")
	log.Debug("hidden")
	if buf.Len() > 0 {
		t.Fatalf("unexpected output at warn level: %s", buf.String())
	}
	log.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn record missing: %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	log := Discard()
	log.Error("nothing")
	log.With("k", 1).WithGroup("g").Info("nothing")
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	cases := map[string]Format{
		"":       FormatPretty,
		"pretty": FormatPretty,
		" JSON ": FormatJSON,
		"text":   FormatText,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("ParseFormat(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q): got %q want %q", in, got, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatal("expected error for xml")
	}
}

func TestNewWithFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	NewWithFormat(&buf, FormatJSON, slog.LevelInfo).Info("x")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("json format did not produce json: %s", buf.String())
	}
	buf.Reset()
	NewWithFormat(&buf, FormatText, slog.LevelInfo).Info("x")
	if !strings.Contains(buf.String(), "msg=x") {
		t.Fatalf("text format output: %s", buf.String())
	}
}

func TestWithAndGroup(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo).With("component", "packer").WithGroup("tensor")
	log.Info("done", "name", "w0")
	out := buf.String()
	if !strings.Contains(out, `"component":"packer"`) {
		t.Fatalf("With attr missing: %s", out)
	}
	if !strings.Contains(out, `"tensor":{"name":"w0"}`) {
		t.Fatalf("group missing: %s", out)
	}
}

func TestContext(t *testing.T) {
	t.Parallel()
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext returned nil without a logger")
	}
	want := Discard()
	ctx := WithContext(context.Background(), want)
	if got := FromContext(ctx); got != want {
		t.Fatal("FromContext did not return the stored logger")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): got %v want %v", in, got, want)
		}
	}
}

func TestPrettyLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(plainPretty(&buf, slog.LevelDebug))
	log.Debug("fractal", "index", 3, "took", 2*time.Millisecond, "note", "two words")

	out := buf.String()
	if !strings.HasPrefix(out, "[") || !strings.HasSuffix(out, "\n") {
		t.Fatalf("unexpected framing: %q", out)
	}
	for _, want := range []string{"DEBUG fractal", " index=3", " took=2ms", ` note="two words"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("color codes in plain output: %q", out)
	}
}

func TestPrettyEnabled(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := plainPretty(&buf, slog.LevelWarn)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error disabled at warn level")
	}
	if !NewPrettyHandler(&buf, nil).Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("nil options should default to info")
	}
}

func TestPrettyGroups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := New(plainPretty(&buf, slog.LevelInfo)).With("pack", "p1").WithGroup("a").WithGroup("b")
	log.Info("m", "k", "v", slog.Group("g", "x", 1))

	out := buf.String()
	for _, want := range []string{" pack=p1", " a.b.k=v", " a.b.g.x=1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestPrettyColor(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := plainPretty(&buf, slog.LevelInfo)
	h.color = true
	New(h).Error("boom")
	if !strings.Contains(buf.String(), colorRed) {
		t.Fatalf("error level not red: %q", buf.String())
	}
}

func TestNeedsQuoting(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"":       true,
		"plain":  false,
		"a b":    true,
		"k=v":    true,
		`say"hi`: true,
		"tab\t":  true,
	}
	for in, want := range cases {
		if got := needsQuoting(in); got != want {
			t.Fatalf("needsQuoting(%q): got %v want %v", in, got, want)
		}
	}
}
