package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "shouting"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestFieldsRenderTyped(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	event := zl.Info()
	for _, f := range []Field{
		String("symbol", "BTC-USD"),
		Int("bars", 7),
		Float64("alpha", 0.25),
		Bool("gated", true),
		Duration("latency", 1500*time.Millisecond),
		Error(errors.New("boom")),
	} {
		f.addTo(event)
	}
	event.Msg("decision")

	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("log line not JSON: %v", err)
	}
	if out["symbol"] != "BTC-USD" || out["bars"] != float64(7) || out["gated"] != true {
		t.Fatalf("typed fields missing: %v", out)
	}
	if out["error"] != "boom" {
		t.Fatalf("error field not rendered: %v", out["error"])
	}
}

func TestFlatValueNormalizes(t *testing.T) {
	if v := Error(errors.New("down")).flatValue(); v != "down" {
		t.Fatalf("error flatValue = %v", v)
	}
	if v := Duration("d", 2*time.Second).flatValue(); v != "2s" {
		t.Fatalf("duration flatValue = %v", v)
	}
	if v := Int("n", 3).flatValue(); v != 3 {
		t.Fatalf("int flatValue = %v", v)
	}
}

func TestLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "warn", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Info("quiet", String("k", "v"))
	l.Warn("loud", String("k", "v"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "quiet") {
		t.Fatal("info line written despite warn level")
	}
	if !strings.Contains(string(data), "loud") {
		t.Fatal("warn line missing")
	}
}
