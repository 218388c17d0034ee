package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// timingEvent is one line of the JSONL timing log.
type timingEvent struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	Target     string  `json:"target,omitempty"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

type timingRecorder struct {
	enabled bool
	start   time.Time
	mu      sync.Mutex
	stages  []timingEvent
	file    *os.File
	enc     *json.Encoder
	err     error
}

func newTimingRecorder(start time.Time, path string) *timingRecorder {
	tr := &timingRecorder{start: start}
	if path == "" {
		return tr
	}
	f, err := os.Create(path)
	if err != nil {
		tr.err = err
		return tr
	}
	tr.enabled = true
	tr.file = f
	tr.enc = json.NewEncoder(f)
	return tr
}

func (tr *timingRecorder) Err() error {
	if tr == nil {
		return nil
	}
	return tr.err
}

func (tr *timingRecorder) Close() {
	if tr == nil || tr.file == nil {
		return
	}
	_ = tr.file.Close()
}

func (tr *timingRecorder) record(phase, kind, target, status string, start time.Time, duration time.Duration) {
	if tr == nil {
		return
	}
	startMS := durationToMS(start.Sub(tr.start))
	durationMS := durationToMS(duration)
	event := timingEvent{
		Phase:      phase,
		Kind:       kind,
		Target:     target,
		Status:     status,
		StartMS:    startMS,
		DurationMS: durationMS,
		EndMS:      startMS + durationMS,
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if kind == "stage" {
		tr.stages = append(tr.stages, event)
	}
	if tr.enabled && tr.enc != nil {
		_ = tr.enc.Encode(event)
	}
}

// Stage records a pipeline stage that started at start and ends now.
func (tr *timingRecorder) Stage(phase string, start time.Time, status string) {
	tr.record(phase, "stage", "", status, start, time.Since(start))
}

// File records work done for one file or module.
func (tr *timingRecorder) File(phase, target, status string, start time.Time) {
	tr.record(phase, "file", target, status, start, time.Since(start))
}

// Summary renders the recorded stages in order.
func (tr *timingRecorder) Summary() string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var b strings.Builder
	for _, ev := range tr.stages {
		label := ev.Phase + ":"
		d := time.Duration(ev.DurationMS * float64(time.Millisecond))
		if ev.Status != "" {
			fmt.Fprintf(&b, "  %-13s %s (%s)\n", label, formatDuration(d), ev.Status)
		} else {
			fmt.Fprintf(&b, "  %-13s %s\n", label, formatDuration(d))
		}
	}
	return b.String()
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%.2fm", d.Minutes())
	}
}

func (a *Analyzer) resolveTimingPath(rootPath string) string {
	if envPath := os.Getenv("LUCID_TIMING_JSONL"); envPath != "" {
		return envPath
	}
	if !a.Timing && !envBool("LUCID_TIMING") {
		return ""
	}
	if a.TimingPath != "" {
		return a.TimingPath
	}
	if info, err := os.Stat(rootPath); err == nil && !info.IsDir() {
		rootPath = filepath.Dir(rootPath)
	}
	if rootPath == "" {
		return "timing.jsonl"
	}
	return filepath.Join(rootPath, "timing.jsonl")
}

func envBool(key string) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return val == "1" || val == "true" || val == "yes" || val == "on"
}
