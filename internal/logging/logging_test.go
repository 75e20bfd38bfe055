package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewJSONWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("body", "earth")).Info(context.Background(), "placed",
		Float64("mjd", 51544.5),
		Duration("elapsed", 2*time.Millisecond),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if rec["msg"] != "placed" || rec["body"] != "earth" || rec["mjd"] != 51544.5 || rec["error"] != "boom" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("warn logger output:\n%s", out)
	}
}

func TestFromContext(t *testing.T) {
	if _, ok := FromContext(context.Background()).(noopLogger); !ok {
		t.Fatalf("FromContext without a logger should fall back to Noop")
	}

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), New(Config{Output: &buf}))
	FromContext(ctx).Info(ctx, "hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("context logger was not used: %q", buf.String())
	}
}

func TestWithRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx, log := WithRequestLogger(context.Background(), New(Config{Output: &buf}))
	id := RequestIDFromContext(ctx)
	if id == "" {
		t.Fatalf("expected a request ID on the context")
	}
	log.Info(ctx, "rpc")
	if !strings.Contains(buf.String(), "request_id="+id) {
		t.Fatalf("request ID missing from output: %q", buf.String())
	}

	again, sameID := EnsureRequestID(ctx)
	if sameID != id || RequestIDFromContext(again) != id {
		t.Fatalf("EnsureRequestID replaced an existing ID")
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	levels := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range levels {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}

	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Fatalf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Fatalf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
}
