// Package progress provides a terminal progress bar for batch report runs.
package progress

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/schollz/progressbar/v3"
)

// ReportStatus represents the current state of a report
type ReportStatus int

const (
	// StatusPending indicates a report is waiting to run
	StatusPending ReportStatus = iota
	// StatusRunning indicates a report is being fetched or rendered
	StatusRunning
	// StatusSuccess indicates a report was written
	StatusSuccess
	// StatusFailed indicates a report failed
	StatusFailed
)

// RunningReport tracks a report in flight
type RunningReport struct {
	Label     string
	StartTime time.Time
	Status    ReportStatus
}

// Manager handles the progress display
type Manager struct {
	enabled   bool
	total     int
	completed int
	passed    int
	failed    int
	running   map[string]*RunningReport
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	out       io.Writer
	startTime time.Time
}

// NewManager creates a new progress manager writing to stderr
func NewManager(total int, enabled bool) *Manager {
	return NewManagerWithWriter(total, enabled, os.Stderr)
}

// NewManagerWithWriter creates a progress manager writing to w
func NewManagerWithWriter(total int, enabled bool, w io.Writer) *Manager {
	m := &Manager{
		enabled:   enabled,
		total:     total,
		running:   make(map[string]*RunningReport),
		out:       w,
		startTime: time.Now(),
	}
	if enabled {
		m.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Rendering reports"),
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "|",
				BarEnd:        "|",
			}),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(w)
			}),
		)
	}
	return m
}

// StartReport marks a report as started
func (m *Manager) StartReport(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.running[label] = &RunningReport{Label: label, StartTime: time.Now(), Status: StatusRunning}
	m.describe()
}

// CompleteReport marks a report as finished
func (m *Manager) CompleteReport(label string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.running, label)
	m.completed++
	if success {
		m.passed++
	} else {
		m.failed++
	}
	if m.bar != nil {
		_ = m.bar.Add(1)
	}
	m.describe()
}

// describe puts the oldest running report into the bar description
func (m *Manager) describe() {
	if m.bar == nil {
		return
	}
	if len(m.running) == 0 {
		m.bar.Describe(fmt.Sprintf("✓ %d ✗ %d", m.passed, m.failed))
		return
	}
	reports := make([]*RunningReport, 0, len(m.running))
	for _, r := range m.running {
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].StartTime.Before(reports[j].StartTime) })
	oldest := reports[0]
	m.bar.Describe(fmt.Sprintf("✓ %d ✗ %d • %s (%s)", m.passed, m.failed,
		truncate(oldest.Label, 30), formatDuration(time.Since(oldest.StartTime))))
}

// PrintAbove prints a message above the progress bar
func (m *Manager) PrintAbove(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bar != nil {
		_ = m.bar.Clear()
	}
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, _ = io.WriteString(m.out, msg)
	if m.bar != nil {
		_ = m.bar.RenderBlank()
	}
}

// Finish completes the bar
func (m *Manager) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bar != nil {
		_ = m.bar.Finish()
	}
}

// Counts returns completed, passed and failed totals
func (m *Manager) Counts() (completed, passed, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed, m.passed, m.failed
}

// IsEnabled returns whether progress display is enabled
func (m *Manager) IsEnabled() bool {
	return m.enabled
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// truncate shortens s to maxLen runes, ending in an ellipsis
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:max(maxLen-3, 0)]) + "..."
}
