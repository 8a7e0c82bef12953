package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"DEBUG": logrus.DebugLevel,
		"warn":  logrus.WarnLevel,
		"ERROR": logrus.ErrorLevel,
		"":      logrus.InfoLevel,
		"LOUD":  logrus.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestInitializeWritesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	Initialize("INFO", dir)
	t.Cleanup(func() { Logger = nil })

	Info("intervention created", map[string]interface{}{"intervention_id": 7})

	data, err := os.ReadFile(filepath.Join(dir, "esilogis.log"))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "intervention created") {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestWithErrorFields(t *testing.T) {
	var buf bytes.Buffer
	Logger = logrus.New()
	Logger.SetOutput(&buf)
	t.Cleanup(func() { Logger = nil })

	WithError(errors.New("db down"), "intervention_service").Error("Failed to load")

	out := buf.String()
	if !strings.Contains(out, "db down") || !strings.Contains(out, "intervention_service") {
		t.Errorf("missing fields in %q", out)
	}
}
