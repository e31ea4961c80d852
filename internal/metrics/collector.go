// Package metrics collects per-report render results and aggregates them
// into run summaries.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Result represents a single report render
type Result struct {
	Report         string        `json:"report"`
	Kind           string        `json:"kind"`
	ReportID       string        `json:"report_id,omitempty"`
	Success        bool          `json:"success"`
	Error          string        `json:"error,omitempty"`
	ErrorCategory  string        `json:"error_category,omitempty"`
	Latency        time.Duration `json:"latency"`
	FetchLatency   time.Duration `json:"fetch_latency,omitempty"`
	Bytes          int           `json:"bytes"`
	Files          []string      `json:"files,omitempty"`
	DroppedMetrics int           `json:"dropped_metrics,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Summary contains aggregated metrics for a kind, or for the whole run
type Summary struct {
	Kind           string         `json:"kind,omitempty"`
	TotalReports   int            `json:"total_reports"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	SuccessRate    float64        `json:"success_rate"`
	TotalLatency   time.Duration  `json:"total_latency"`
	AvgLatency     time.Duration  `json:"avg_latency"`
	MinLatency     time.Duration  `json:"min_latency"`
	MaxLatency     time.Duration  `json:"max_latency"`
	P50Latency     time.Duration  `json:"p50_latency"`
	P95Latency     time.Duration  `json:"p95_latency"`
	TotalBytes     int            `json:"total_bytes"`
	TotalFiles     int            `json:"total_files"`
	DroppedMetrics int            `json:"dropped_metrics"`
	ErrorBreakdown map[string]int `json:"error_breakdown,omitempty"`
}

// Collector handles collection and aggregation of render results
type Collector struct {
	results []Result
	mu      sync.RWMutex
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		results: make([]Result, 0),
	}
}

// AddResult adds a render result to the collector
func (c *Collector) AddResult(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// GetResults returns all collected results
func (c *Collector) GetResults() []Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	results := make([]Result, len(c.results))
	copy(results, c.results)
	return results
}

// GetResultsByKind returns results filtered by report kind
func (c *Collector) GetResultsByKind(kind string) []Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var filtered []Result
	for _, r := range c.results {
		if r.Kind == kind {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Failed reports whether any collected render failed
func (c *Collector) Failed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.results {
		if !r.Success {
			return true
		}
	}
	return false
}

// ComputeSummary computes summary metrics for one kind, or for every result
// when kind is empty.
func (c *Collector) ComputeSummary(kind string) *Summary {
	results := c.GetResults()
	if kind != "" {
		results = c.GetResultsByKind(kind)
	}

	summary := &Summary{Kind: kind, ErrorBreakdown: make(map[string]int)}
	if len(results) == 0 {
		return summary
	}
	summary.TotalReports = len(results)

	latencies := make([]time.Duration, 0, len(results))
	for i, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
			switch {
			case r.ErrorCategory != "":
				summary.ErrorBreakdown[r.ErrorCategory]++
			case r.Error != "":
				summary.ErrorBreakdown["unknown"]++
			}
		}

		summary.TotalLatency += r.Latency
		summary.TotalBytes += r.Bytes
		summary.TotalFiles += len(r.Files)
		summary.DroppedMetrics += r.DroppedMetrics
		latencies = append(latencies, r.Latency)

		if i == 0 || r.Latency < summary.MinLatency {
			summary.MinLatency = r.Latency
		}
		if r.Latency > summary.MaxLatency {
			summary.MaxLatency = r.Latency
		}
	}

	summary.AvgLatency = summary.TotalLatency / time.Duration(len(results))
	summary.SuccessRate = float64(summary.Successful) / float64(len(results)) * 100
	summary.P50Latency = calculatePercentileDuration(latencies, 0.50)
	summary.P95Latency = calculatePercentileDuration(latencies, 0.95)

	return summary
}

// calculatePercentileDuration calculates the percentile of a duration slice
func calculatePercentileDuration(durations []time.Duration, percentile float64) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	index := int(float64(len(sorted)-1) * percentile)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// GetAllKinds returns the sorted list of kinds seen so far
func (c *Collector) GetAllKinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kindMap := make(map[string]bool)
	for _, r := range c.results {
		kindMap[r.Kind] = true
	}

	kinds := make([]string, 0, len(kindMap))
	for k := range kindMap {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
