package daemon

import (
	"fmt"
	"sync"
	"time"
)

const rollingWindowSize = 10

// IndexProgress tracks a directory index run. The ETA is computed from the
// throughput of the most recent documents only, so a slow first file does
// not skew it for the whole run.
type IndexProgress struct {
	mu        sync.RWMutex
	total     int
	completed int
	failed    int
	chunks    int
	started   time.Time
	recent    []time.Duration
}

// NewIndexProgress creates a tracker for total documents.
func NewIndexProgress(total int) *IndexProgress {
	return &IndexProgress{
		total:   total,
		started: time.Now(),
		recent:  make([]time.Duration, 0, rollingWindowSize),
	}
}

// Record marks one document as done. Failed documents count as completed
// but contribute no chunks.
func (p *IndexProgress) Record(chunks int, took time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	if err != nil {
		p.failed++
	} else {
		p.chunks += chunks
	}
	if took <= 0 {
		return
	}
	p.recent = append(p.recent, took)
	if len(p.recent) > rollingWindowSize {
		p.recent = p.recent[len(p.recent)-rollingWindowSize:]
	}
}

// ProgressSnapshot is a point-in-time copy of an IndexProgress.
type ProgressSnapshot struct {
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Chunks    int           `json:"chunks"`
	Elapsed   time.Duration `json:"elapsed"`
	ETA       time.Duration `json:"eta"`
}

// Percentage returns the completion percentage; an empty run is complete.
func (s ProgressSnapshot) Percentage() float64 {
	if s.Total == 0 {
		return 100.0
	}
	return float64(s.Completed) / float64(s.Total) * 100.0
}

// Snapshot returns the current counts and ETA.
func (p *IndexProgress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		Total:     p.total,
		Completed: p.completed,
		Failed:    p.failed,
		Chunks:    p.chunks,
		Elapsed:   time.Since(p.started),
		ETA:       p.eta(),
	}
}

// eta needs at least two timings; it returns 0 until then.
func (p *IndexProgress) eta() time.Duration {
	remaining := p.total - p.completed
	if remaining <= 0 || len(p.recent) < 2 {
		return 0
	}
	var sum time.Duration
	for _, d := range p.recent {
		sum += d
	}
	avg := sum / time.Duration(len(p.recent))
	return (avg * time.Duration(remaining)).Round(time.Second)
}

// FormatETA formats an ETA duration for display
func FormatETA(eta time.Duration) string {
	if eta == 0 {
		return "Calculating..."
	}

	seconds := int(eta.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	secs := seconds % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}

	hours := minutes / 60
	mins := minutes % 60
	return fmt.Sprintf("%dh %dm", hours, mins)
}
