package debug

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(prev) })
	return &buf
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"ON", true},
		{"0", false},
		{"", false},
		{"nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("DEBUG", tt.value)
			if got := Enabled(); got != tt.want {
				t.Errorf("Enabled() with DEBUG=%q = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestDebugOutputGated(t *testing.T) {
	buf := captureLog(t)

	DebugOutput(false, "hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("disabled debug wrote output: %q", buf.String())
	}

	DebugOutput(true, "shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("enabled debug output missing message, got %q", buf.String())
	}
}

func TestDebugTiming(t *testing.T) {
	buf := captureLog(t)

	done := DebugTiming(true, "merge")
	done()

	out := buf.String()
	if !strings.Contains(out, "Starting: merge") || !strings.Contains(out, "Completed: merge") {
		t.Errorf("timing output incomplete: %q", out)
	}
}
