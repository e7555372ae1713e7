package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	z.Info("sent batch",
		String("port", "in-1"),
		Int("packets", 4),
		Int64("bytes", 128),
		Bool("full", false),
		Duration("took", 2*time.Millisecond),
		Err(errors.New("boom")),
	)

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if got["message"] != "sent batch" {
		t.Errorf("message = %v, want sent batch", got["message"])
	}
	if got["port"] != "in-1" {
		t.Errorf("port = %v, want in-1", got["port"])
	}
	if got["packets"] != float64(4) {
		t.Errorf("packets = %v, want 4", got["packets"])
	}
	if got["error"] != "boom" {
		t.Errorf("error = %v, want boom", got["error"])
	}
}

func TestZerologAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	child := z.With(String("component", "scheduler"))
	child.Warn("cycle failed")

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if got["component"] != "scheduler" {
		t.Errorf("component = %v, want scheduler", got["component"])
	}
	if got["level"] != "warn" {
		t.Errorf("level = %v, want warn", got["level"])
	}
}

func TestZerologAdapter_DisabledLevel(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	z.Debug("hidden", Int("n", 1))

	if buf.Len() != 0 {
		t.Errorf("debug output written at info level: %q", buf.String())
	}
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NewNoopLogger()
	l.Info("ignored")
	if l.With(String("k", "v")) == nil {
		t.Fatal("With returned nil")
	}
}
