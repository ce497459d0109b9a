package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{"info", INFO},
		{"warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
		{"fatal", FATAL},
		{"", INFO},
		{"bogus", INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") {
		t.Error("debug message should be filtered at WARN level")
	}
	if strings.Contains(out, "info 2") {
		t.Error("info message should be filtered at WARN level")
	}
	if !strings.Contains(out, "warn 3") {
		t.Error("warn message missing")
	}
	if !strings.Contains(out, "error 4") {
		t.Error("error message missing")
	}
}

func TestLevelPrefixes(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG)

	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")

	out := buf.String()
	for _, prefix := range []string{"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]"} {
		if !strings.Contains(out, prefix) {
			t.Errorf("output missing %s prefix", prefix)
		}
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, ERROR)

	l.Info("hidden")
	l.SetLevel(DEBUG)
	l.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("message logged below minimum level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("message missing after SetLevel")
	}
	if l.GetLevel() != DEBUG {
		t.Errorf("GetLevel() = %v, want DEBUG", l.GetLevel())
	}
}

func TestInitRotating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "opsdeck.log")

	if err := InitRotating(path, 1, 1, 1, false); err != nil {
		t.Fatalf("InitRotating() error = %v", err)
	}

	Infof("rotation smoke %s", "test")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "rotation smoke test") {
		t.Error("log file missing written line")
	}
}
