// Package runner fetches report payloads, validates them, builds their views
// and renders them to disk, one report at a time or as a bounded batch.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lamim/assessment-reports/internal/api"
	"github.com/lamim/assessment-reports/internal/archive"
	"github.com/lamim/assessment-reports/internal/assessment"
	"github.com/lamim/assessment-reports/internal/config"
	"github.com/lamim/assessment-reports/internal/debug"
	"github.com/lamim/assessment-reports/internal/logo"
	"github.com/lamim/assessment-reports/internal/metrics"
	"github.com/lamim/assessment-reports/internal/progress"
	"github.com/lamim/assessment-reports/internal/report"
	"github.com/lamim/assessment-reports/internal/view"
)

// ErrUnknownKind is returned for a report kind the runner cannot build
var ErrUnknownKind = errors.New("unknown report kind")

// Built is a report document ready to render, plus what validation dropped
type Built struct {
	Document report.Document
	Dropped  []assessment.MetricError
	Fetch    time.Duration
}

// Runner builds and renders reports
type Runner struct {
	config      *config.Config
	client      *api.Client
	validator   *assessment.Validator
	logos       *logo.Resolver
	generator   *report.Generator
	archive     *archive.Store
	collector   *metrics.Collector
	progress    *progress.Manager
	debugLogger *debug.Logger
	logger      *zap.Logger
	out         io.Writer
	outMu       sync.Mutex
	now         func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithArchive stores every rendered file in the archive
func WithArchive(store *archive.Store) Option {
	return func(r *Runner) { r.archive = store }
}

// WithLogoResolver looks up missing company logos
func WithLogoResolver(res *logo.Resolver) Option {
	return func(r *Runner) { r.logos = res }
}

// WithProgress reports batch progress
func WithProgress(prog *progress.Manager) Option {
	return func(r *Runner) { r.progress = prog }
}

// WithDebugLogger records every fetch in the debug session
func WithDebugLogger(l *debug.Logger) Option {
	return func(r *Runner) { r.debugLogger = l }
}

// WithLogger sets the operational logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithOutput sets where plain progress lines go when the bar is off
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a runner for cfg using client to reach the report API
func New(cfg *config.Config, client *api.Client, opts ...Option) (*Runner, error) {
	mode, err := assessment.ParseMode(cfg.Validation.Mode)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		config:    cfg,
		client:    client,
		validator: assessment.NewValidator(mode),
		generator: report.NewGenerator(cfg.General.OutputDir),
		collector: metrics.NewCollector(),
		logger:    zap.NewNop(),
		out:       os.Stdout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Collector returns the results recorded so far
func (r *Runner) Collector() *metrics.Collector {
	return r.collector
}

// Generator returns the file writer the runner renders with
func (r *Runner) Generator() *report.Generator {
	return r.generator
}

// Archive returns the snapshot store, or nil when archiving is off
func (r *Runner) Archive() *archive.Store {
	return r.archive
}

// Run renders every configured report. Failures are recorded in the
// collector, not returned; the error is only set when ctx ends the run.
func (r *Runner) Run(ctx context.Context) error {
	return r.RunReports(ctx, r.config.Reports)
}

// RunReports renders reports with at most general.concurrency in flight
func (r *Runner) RunReports(ctx context.Context, reports []config.ReportConfig) error {
	if r.progress != nil && r.progress.IsEnabled() {
		fmt.Fprintln(r.out, "Rendering reports...")
	} else {
		fmt.Fprintf(r.out, "Rendering %d reports\n", len(reports))
		fmt.Fprintf(r.out, "Concurrency: %d, Timeout: %s\n\n", r.config.General.Concurrency, r.config.General.Timeout)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.config.General.Concurrency, 1))
	for _, rc := range reports {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			r.renderOne(gctx, rc)
			return nil
		})
	}
	err := g.Wait()

	if r.progress != nil {
		r.progress.Finish()
	}
	if r.debugLogger.IsEnabled() {
		if ferr := r.debugLogger.Finalize(); ferr != nil {
			r.logger.Warn("failed to write debug session", zap.Error(ferr))
		}
	}
	return err
}

func (r *Runner) renderOne(ctx context.Context, rc config.ReportConfig) {
	label := rc.Label()
	result := metrics.Result{
		Report:    label,
		Kind:      rc.Kind,
		ReportID:  rc.ID,
		Timestamp: r.now(),
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.General.TimeoutDuration())
	defer cancel()

	if r.progress != nil {
		r.progress.StartReport(label)
	}
	if r.progress == nil || !r.progress.IsEnabled() {
		r.printf("[%s] Rendering '%s'...\n", rc.Kind, label)
	}

	start := time.Now()
	var (
		built Built
		err   error
	)
	if rc.Kind == config.KindInvoice {
		built, err = r.BuildInvoiceFile(rc.Input)
	} else {
		built, err = r.Build(ctx, rc.Kind, rc.ID)
	}
	var outputs []report.Output
	if err == nil {
		outputs, err = r.write(ctx, built.Document)
	}
	result.Latency = time.Since(start)
	result.FetchLatency = built.Fetch
	result.DroppedMetrics = len(built.Dropped)

	if err != nil {
		category, _ := api.CategorizeError(err)
		result.Error = err.Error()
		result.ErrorCategory = category.String()
		r.say("  ✗ %s failed: %v", label, err)
	} else {
		result.Success = true
		for _, o := range outputs {
			result.Bytes += o.Size
			result.Files = append(result.Files, o.Path)
		}
		if n := len(built.Dropped); n > 0 {
			r.say("  ! %s: dropped %d metrics with bad values", label, n)
		}
		if r.progress == nil || !r.progress.IsEnabled() {
			r.printf("  ✓ %s (%d files, %s)\n", label, len(outputs), result.Latency.Round(time.Millisecond))
		}
	}

	if r.progress != nil {
		r.progress.CompleteReport(label, result.Success)
	}
	r.collector.AddResult(result)
}

// say prints above the bar when it is shown, plainly otherwise
func (r *Runner) say(format string, args ...any) {
	if r.progress != nil && r.progress.IsEnabled() {
		r.progress.PrintAbove(format, args...)
		return
	}
	r.printf(format+"\n", args...)
}

func (r *Runner) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// write renders doc in the configured formats and archives the files
func (r *Runner) write(ctx context.Context, doc report.Document) ([]report.Output, error) {
	outputs, err := r.generator.Render(doc, r.config.General.Formats)
	if err != nil {
		return outputs, err
	}
	if r.archive == nil {
		return outputs, nil
	}
	for _, o := range outputs {
		// #nosec G304 - path was produced by the generator
		payload, err := os.ReadFile(o.Path)
		if err != nil {
			return outputs, fmt.Errorf("failed to read %s for archiving: %w", o.Path, err)
		}
		if _, err := r.archive.Save(ctx, archive.Snapshot{
			Kind:        doc.Kind,
			ReportID:    doc.ID,
			Format:      o.Format,
			GeneratedAt: doc.GeneratedAt,
			Payload:     payload,
		}); err != nil {
			return outputs, fmt.Errorf("failed to archive %s: %w", filepath.Base(o.Path), err)
		}
	}
	return outputs, nil
}

// Build fetches, validates and shapes one report fetched from the API
func (r *Runner) Build(ctx context.Context, kind, id string) (Built, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == config.KindInvoice || !slices.Contains(config.Kinds, kind) {
		return Built{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if strings.TrimSpace(id) == "" {
		return Built{}, api.ErrMissingID
	}

	var fetchLog *debug.FetchLog
	if r.debugLogger.IsEnabled() {
		fetchLog = r.debugLogger.StartFetch(kind, id)
		ctx = debug.WithLogger(ctx, r.debugLogger)
		ctx = debug.WithFetch(ctx, fetchLog)
		defer r.debugLogger.EndFetch(fetchLog)
	}

	now := r.now()
	var (
		built Built
		err   error
		start = time.Now()
	)
	switch kind {
	case config.KindStandard:
		built, err = r.buildStandard(ctx, id, now, start)
	case config.KindCompany:
		built, err = r.buildCompany(ctx, id, now, start)
	case config.KindComparison:
		built, err = r.buildComparison(ctx, id, now, start)
	case config.KindIndividual:
		built, err = r.buildIndividual(ctx, id, now, start)
	}
	if err != nil {
		if fetchLog != nil {
			category, _ := api.CategorizeError(err)
			r.debugLogger.LogError(fetchLog, err.Error(), category.String(), kind+" build")
		}
		return built, err
	}

	r.debugLogger.SetMetadata(fetchLog, "dropped_metrics", len(built.Dropped))
	built.Document.GeneratedAt = now
	return built, nil
}

func (r *Runner) buildStandard(ctx context.Context, id string, now time.Time, start time.Time) (Built, error) {
	a, err := r.client.FetchAssessment(ctx, id)
	fetched := time.Since(start)
	if err != nil {
		return Built{Fetch: fetched}, err
	}
	clean, dropped, err := r.validator.Assessment(*a)
	if err != nil {
		return Built{Fetch: fetched}, err
	}
	r.logos.Apply(ctx, &clean.CompanyInformation)
	return Built{
		Document: report.NewDocument(config.KindStandard, id, view.BuildStandard(clean, now)),
		Dropped:  dropped,
		Fetch:    fetched,
	}, nil
}

func (r *Runner) buildCompany(ctx context.Context, id string, now time.Time, start time.Time) (Built, error) {
	rep, err := r.client.FetchCompanyReport(ctx, id)
	fetched := time.Since(start)
	if err != nil {
		return Built{Fetch: fetched}, err
	}
	clean, dropped, err := r.validator.CompanyReport(*rep)
	if err != nil {
		return Built{Fetch: fetched}, err
	}
	r.logos.Apply(ctx, &clean.CompanyInformation)
	return Built{
		Document: report.NewDocument(config.KindCompany, id, view.BuildCompanyAverage(clean, now)),
		Dropped:  dropped,
		Fetch:    fetched,
	}, nil
}

func (r *Runner) buildComparison(ctx context.Context, id string, now time.Time, start time.Time) (Built, error) {
	rep, err := r.client.FetchComparisonReport(ctx, id)
	fetched := time.Since(start)
	if err != nil {
		return Built{Fetch: fetched}, err
	}
	clean, dropped, err := r.validator.ComparisonReport(*rep)
	if err != nil {
		return Built{Fetch: fetched}, err
	}
	return Built{
		Document: report.NewDocument(config.KindComparison, id, view.BuildComparison(clean, id, now)),
		Dropped:  dropped,
		Fetch:    fetched,
	}, nil
}

func (r *Runner) buildIndividual(ctx context.Context, id string, now time.Time, start time.Time) (Built, error) {
	rep, err := r.client.FetchIndividualReport(ctx, id)
	fetched := time.Since(start)
	if err != nil {
		return Built{Fetch: fetched}, err
	}
	clean, dropped, err := r.validator.IndividualReport(*rep)
	if err != nil {
		return Built{Fetch: fetched}, err
	}
	return Built{
		Document: report.NewDocument(config.KindIndividual, id, view.BuildIndividual(clean, id, now)),
		Dropped:  dropped,
		Fetch:    fetched,
	}, nil
}

// BuildInvoiceFile reads an invoice JSON file and shapes it
func (r *Runner) BuildInvoiceFile(path string) (Built, error) {
	// #nosec G304 - invoice path comes from the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return Built{}, fmt.Errorf("failed to read invoice: %w", err)
	}
	var inv assessment.Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return Built{}, fmt.Errorf("%w: %v", api.ErrDecode, err)
	}
	return r.BuildInvoice(inv)
}

// BuildInvoice validates inv and shapes it
func (r *Runner) BuildInvoice(inv assessment.Invoice) (Built, error) {
	clean, err := r.validator.Invoice(inv)
	if err != nil {
		return Built{}, err
	}
	doc := report.NewDocument(config.KindInvoice, clean.Number, view.BuildInvoice(clean))
	doc.GeneratedAt = r.now()
	return Built{Document: doc}, nil
}

// RenderInvoice renders an invoice file outside of a batch
func (r *Runner) RenderInvoice(ctx context.Context, path string) error {
	return r.RunReports(ctx, []config.ReportConfig{{Kind: config.KindInvoice, Input: path}})
}

