package analyzer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTimingJSONLWritten(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, "8")
	timingPath := filepath.Join(t.TempDir(), "timing.jsonl")

	a := newTestAnalyzer(testConfig(filepath.Join(dir, ".cache"), false))
	a.Timing = true
	a.TimingPath = timingPath
	runForTest(t, a, dir)

	raw, err := os.ReadFile(timingPath)
	if err != nil {
		t.Fatalf("read timing file: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))

	stages := make(map[string]bool)
	analysed := 0
	for _, line := range lines {
		var ev timingEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			t.Fatalf("parse timing event: %v", err)
		}
		if ev.Kind == "stage" {
			stages[ev.Phase] = true
		}
		if ev.Kind == "file" && ev.Phase == "analyze" {
			analysed++
		}
	}
	for _, phase := range []string{"scan", "load", "declarations", "analyze", "facts_validate", "policy", "total"} {
		if !stages[phase] {
			t.Errorf("missing %s stage", phase)
		}
	}
	if analysed != 2 {
		t.Errorf("expected 2 module events, got %d", analysed)
	}
}

func TestResolveTimingPath(t *testing.T) {
	t.Setenv("LUCID_TIMING_JSONL", "")
	t.Setenv("LUCID_TIMING", "")
	dir := t.TempDir()

	a := &Analyzer{}
	if got := a.resolveTimingPath(dir); got != "" {
		t.Errorf("timing off: got %q", got)
	}
	a.Timing = true
	if got, want := a.resolveTimingPath(dir), filepath.Join(dir, "timing.jsonl"); got != want {
		t.Errorf("default path = %q, want %q", got, want)
	}
	t.Setenv("LUCID_TIMING_JSONL", "/tmp/explicit.jsonl")
	if got := a.resolveTimingPath(dir); got != "/tmp/explicit.jsonl" {
		t.Errorf("env path = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "500ns"},
		{20 * time.Microsecond, "20us"},
		{1500 * time.Microsecond, "1.50ms"},
		{2 * time.Second, "2.00s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
