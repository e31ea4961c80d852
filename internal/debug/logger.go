// Package debug records every report fetch of a run (requests, responses,
// errors and timing) and writes them as JSON files for troubleshooting.
package debug

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http/httptrace"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

const debugSchemaVersion = 2

const (
	statusRunning   = "running"
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// TimingBreakdown captures HTTP timing using httptrace
type TimingBreakdown struct {
	DNSLookup       time.Duration `json:"dns_lookup"`
	TCPConnection   time.Duration `json:"tcp_connection"`
	TLSHandshake    time.Duration `json:"tls_handshake"`
	TimeToFirstByte time.Duration `json:"time_to_first_byte"`
	TotalDuration   time.Duration `json:"total_duration"`
}

// Logger collects fetch logs for one run
type Logger struct {
	mu          sync.RWMutex
	enabled     bool
	fullCapture bool
	session     *Session
	outputPath  string
}

// Session is the whole debug run
type Session struct {
	SchemaVersion int                 `json:"schema_version"`
	StartTime     time.Time           `json:"start_time"`
	EndTime       *time.Time          `json:"end_time,omitempty"`
	Kinds         map[string]*KindLog `json:"kinds"`
	SystemInfo    map[string]any      `json:"system_info"`
}

// KindLog groups the fetches of one report kind
type KindLog struct {
	SchemaVersion int         `json:"schema_version"`
	Name          string      `json:"name"`
	Fetches       []*FetchLog `json:"fetches"`
}

// FetchLog is the record of a single report fetch and render
type FetchLog struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	ReportID  string         `json:"report_id"`
	Status    string         `json:"status"`
	StartTime time.Time      `json:"start_time"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Requests  []RequestLog   `json:"requests"`
	Response  *ResponseLog   `json:"response,omitempty"`
	Errors    []ErrorLog     `json:"errors"`
	Metadata  map[string]any `json:"metadata"`

	timing *TimingBreakdown
}

// RequestLog captures an outgoing request
type RequestLog struct {
	Timestamp    time.Time         `json:"timestamp"`
	Method       string            `json:"method"`
	URL          string            `json:"url"`
	Headers      map[string]string `json:"headers,omitempty"`
	RetryAttempt int               `json:"retry_attempt,omitempty"`
}

// ResponseLog captures the final response of a fetch
type ResponseLog struct {
	Timestamp   time.Time         `json:"timestamp"`
	StatusCode  int               `json:"status_code"`
	Headers     map[string]string `json:"headers,omitempty"`
	BodyPreview string            `json:"body_preview,omitempty"`
	BodyFull    string            `json:"body_full,omitempty"`
	BodySize    int               `json:"body_size"`
	Duration    time.Duration     `json:"duration"`
	Timing      *TimingBreakdown  `json:"timing,omitempty"`
}

// ErrorLog captures an error with its category
type ErrorLog struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Category  string    `json:"category,omitempty"`
	Context   string    `json:"context,omitempty"`
}

// NewLogger creates a debug logger writing into outputDir/debug.
// fullCapture keeps complete response bodies instead of previews.
func NewLogger(enabled bool, fullCapture bool, outputDir string) *Logger {
	now := time.Now()
	logger := &Logger{
		enabled:     enabled,
		fullCapture: fullCapture,
		session: &Session{
			SchemaVersion: debugSchemaVersion,
			StartTime:     now,
			Kinds:         make(map[string]*KindLog),
			SystemInfo: map[string]any{
				"go_version":   runtime.Version(),
				"timestamp":    now.Format(time.RFC3339),
				"full_capture": fullCapture,
			},
		},
	}
	if enabled {
		logger.outputPath = filepath.Join(outputDir, "debug")
	}
	return logger
}

// IsEnabled returns whether debug logging is enabled. A nil logger is disabled.
func (l *Logger) IsEnabled() bool {
	return l != nil && l.enabled
}

// StartFetch begins the log of one report fetch
func (l *Logger) StartFetch(kind, reportID string) *FetchLog {
	if !l.IsEnabled() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	kindLog, ok := l.session.Kinds[kind]
	if !ok {
		kindLog = &KindLog{SchemaVersion: debugSchemaVersion, Name: kind}
		l.session.Kinds[kind] = kindLog
	}

	fetch := &FetchLog{
		ID:        uuid.NewString(),
		Kind:      kind,
		ReportID:  reportID,
		Status:    statusRunning,
		StartTime: time.Now(),
		Requests:  []RequestLog{},
		Errors:    []ErrorLog{},
		Metadata:  make(map[string]any),
	}
	kindLog.Fetches = append(kindLog.Fetches, fetch)
	return fetch
}

// TraceContext attaches an httptrace to ctx that fills the fetch's timing
func (l *Logger) TraceContext(ctx context.Context, fetch *FetchLog) context.Context {
	if !l.IsEnabled() || fetch == nil {
		return ctx
	}

	timing := &TimingBreakdown{}
	var mu sync.Mutex
	var start, dnsStart, tcpStart, tlsStart time.Time
	start = time.Now()

	trace := &httptrace.ClientTrace{
		DNSStart: func(_ httptrace.DNSStartInfo) {
			mu.Lock()
			dnsStart = time.Now()
			mu.Unlock()
		},
		DNSDone: func(_ httptrace.DNSDoneInfo) {
			mu.Lock()
			timing.DNSLookup = time.Since(dnsStart)
			mu.Unlock()
		},
		ConnectStart: func(_, _ string) {
			mu.Lock()
			tcpStart = time.Now()
			mu.Unlock()
		},
		ConnectDone: func(_, _ string, _ error) {
			mu.Lock()
			timing.TCPConnection = time.Since(tcpStart)
			mu.Unlock()
		},
		TLSHandshakeStart: func() {
			mu.Lock()
			tlsStart = time.Now()
			mu.Unlock()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, _ error) {
			mu.Lock()
			timing.TLSHandshake = time.Since(tlsStart)
			mu.Unlock()
		},
		GotFirstResponseByte: func() {
			mu.Lock()
			timing.TimeToFirstByte = time.Since(start)
			mu.Unlock()
		},
	}

	l.mu.Lock()
	fetch.timing = timing
	l.mu.Unlock()

	return httptrace.WithClientTrace(ctx, trace)
}

// LogRequest records an outgoing request
func (l *Logger) LogRequest(fetch *FetchLog, method, url string, headers map[string]string, attempt int) {
	if !l.IsEnabled() || fetch == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fetch.Requests = append(fetch.Requests, RequestLog{
		Timestamp:    time.Now(),
		Method:       method,
		URL:          url,
		Headers:      redact(headers),
		RetryAttempt: attempt,
	})
}

// LogResponse records the response of the fetch
func (l *Logger) LogResponse(fetch *FetchLog, statusCode int, headers map[string]string, body string, duration time.Duration) {
	if !l.IsEnabled() || fetch == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fetch.Response = &ResponseLog{
		Timestamp:   time.Now(),
		StatusCode:  statusCode,
		Headers:     headers,
		BodyPreview: truncateString(body, 1000),
		BodySize:    len(body),
		Duration:    duration,
		Timing:      fetch.timing,
	}
	if l.fullCapture {
		fetch.Response.BodyFull = body
	}
	if fetch.timing != nil {
		fetch.timing.TotalDuration = duration
	}
}

// LogError records an error and marks the fetch as failed
func (l *Logger) LogError(fetch *FetchLog, message, category, context string) {
	if !l.IsEnabled() || fetch == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fetch.Errors = append(fetch.Errors, ErrorLog{
		Timestamp: time.Now(),
		Message:   message,
		Category:  category,
		Context:   context,
	})
	fetch.Status = statusFailed
}

// SetStatus overrides the fetch status
func (l *Logger) SetStatus(fetch *FetchLog, status string) {
	if !l.IsEnabled() || fetch == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fetch.Status = status
}

// SetMetadata adds metadata to a fetch log
func (l *Logger) SetMetadata(fetch *FetchLog, key string, value any) {
	if !l.IsEnabled() || fetch == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fetch.Metadata[key] = value
}

// EndFetch marks a fetch as complete. A failed status is kept.
func (l *Logger) EndFetch(fetch *FetchLog) {
	if !l.IsEnabled() || fetch == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	fetch.EndTime = &now
	fetch.Duration = now.Sub(fetch.StartTime)
	if fetch.Status == statusRunning {
		fetch.Status = statusCompleted
	}
}

// Finalize writes session.json and one file per report kind
func (l *Logger) Finalize() error {
	if !l.IsEnabled() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.session.EndTime = &now

	if err := os.MkdirAll(l.outputPath, 0750); err != nil {
		return fmt.Errorf("failed to create debug output directory: %w", err)
	}

	kinds := make([]string, 0, len(l.session.Kinds))
	for name := range l.session.Kinds {
		kinds = append(kinds, name)
	}
	sessionData := map[string]any{
		"schema_version": l.session.SchemaVersion,
		"start_time":     l.session.StartTime,
		"end_time":       l.session.EndTime,
		"system_info":    l.session.SystemInfo,
		"kinds":          kinds,
	}
	data, err := json.MarshalIndent(sessionData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.outputPath, "session.json"), data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	for name, kindLog := range l.session.Kinds {
		data, err := json.MarshalIndent(kindLog, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal debug data for %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(l.outputPath, name+".json"), data, 0600); err != nil {
			return fmt.Errorf("failed to write debug file for %s: %w", name, err)
		}
	}

	return nil
}

// GetSessionPath returns the path to session.json
func (l *Logger) GetSessionPath() string {
	if !l.IsEnabled() {
		return ""
	}
	return filepath.Join(l.outputPath, "session.json")
}

// GetKindPath returns the path of the debug file for a report kind
func (l *Logger) GetKindPath(kind string) string {
	if !l.IsEnabled() {
		return ""
	}
	return filepath.Join(l.outputPath, kind+".json")
}

func redact(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if k == "Authorization" {
			v = "[redacted]"
		}
		out[k] = v
	}
	return out
}

// truncateString limits a string to a maximum length with ellipsis
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
