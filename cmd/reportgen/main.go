// Package main provides the entry point for the assessment report generator.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lamim/assessment-reports/internal/api"
	"github.com/lamim/assessment-reports/internal/archive"
	"github.com/lamim/assessment-reports/internal/config"
	"github.com/lamim/assessment-reports/internal/debug"
	"github.com/lamim/assessment-reports/internal/logo"
	"github.com/lamim/assessment-reports/internal/metrics"
	"github.com/lamim/assessment-reports/internal/progress"
	"github.com/lamim/assessment-reports/internal/report"
	"github.com/lamim/assessment-reports/internal/runner"
	"github.com/lamim/assessment-reports/internal/server"
)

const defaultConfigPath = "config.toml"

// errReportsFailed makes the process exit non-zero after the summary
var errReportsFailed = errors.New("one or more reports failed")

type cliFlags struct {
	configPath string
	outputDir  string
	format     string
	noProgress bool
	debugMode  bool
	debugFull  bool
	kind       string
	id         string
	input      string
	addr       string
	limit      int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:           "reportgen",
		Short:         "Render assessment reports as HTML, Markdown and JSON",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadEnvFile(".env")
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath, "Path to configuration file (TOML or YAML)")
	root.PersistentFlags().StringVar(&flags.outputDir, "output", "", "Output directory for reports (overrides config)")
	root.PersistentFlags().StringVar(&flags.format, "format", "", "Report formats: all, or a list of html,md,json (overrides config)")
	root.PersistentFlags().BoolVar(&flags.debugMode, "debug", false, "Record every report fetch in a debug session")
	root.PersistentFlags().BoolVar(&flags.debugFull, "debug-full", false, "Like --debug, with complete response bodies")

	render := &cobra.Command{
		Use:   "render",
		Short: "Render one report, or every report listed in the configuration",
		Example: `  reportgen render
  reportgen render --kind standard --id 64f1c0ffee --format html
  reportgen render --kind comparison --id 65a0 --no-progress`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd.Context(), cmd, flags)
		},
	}
	render.Flags().StringVar(&flags.kind, "kind", "", "Report kind: standard, company, comparison, individual")
	render.Flags().StringVar(&flags.id, "id", "", "Report or assessment id")
	render.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable progress bar (useful for CI)")

	invoice := &cobra.Command{
		Use:   "invoice",
		Short: "Render an invoice from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInvoice(cmd.Context(), cmd, flags)
		},
	}
	invoice.Flags().StringVar(&flags.input, "input", "", "Invoice JSON file")
	_ = invoice.MarkFlagRequired("input")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Render reports on demand over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	serve.Flags().StringVar(&flags.addr, "addr", "", "Listen address (overrides config)")

	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived report snapshots",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runArchiveList(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
	list.Flags().IntVar(&flags.limit, "limit", 20, "Number of snapshots to list")
	archiveCmd.AddCommand(list)

	root.AddCommand(render, invoice, serve, archiveCmd)
	return root
}

// loadEnvFile reads .env when present. Variables already set win.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadConfig reads the configuration file. The default file is optional so
// a single report can be rendered from flags and environment alone.
func loadConfig(flags *cliFlags) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(flags.configPath); err != nil && flags.configPath == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
		cfg.ApplyEnv()
	} else {
		cfg, err = config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
	}

	if flags.outputDir != "" {
		cfg.General.OutputDir = flags.outputDir
	}
	if flags.format != "" {
		formats, err := parseFormats(flags.format)
		if err != nil {
			return nil, err
		}
		cfg.General.Formats = formats
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseFormats(s string) ([]string, error) {
	if strings.TrimSpace(s) == "all" {
		return slices.Clone(report.Formats), nil
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "markdown" {
			f = report.FormatMarkdown
		}
		if !slices.Contains(report.Formats, f) {
			return nil, fmt.Errorf("%w: %q", report.ErrUnknownFormat, f)
		}
		if !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}
	return formats, nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}

func newClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	retry := api.DefaultRetryConfig()
	retry.MaxRetries = cfg.API.Retries()
	return api.NewClient(cfg.API.BaseURL,
		api.WithToken(cfg.API.Token),
		api.WithRetry(retry),
		api.WithRateLimiter(api.NewRateLimiter(cfg.API.RatePerSecond, cfg.API.Burst)),
		api.WithLogger(logger),
	)
}

func openArchive(ctx context.Context, cfg *config.Config) (*archive.Store, error) {
	if cfg.Archive.DSN == "" {
		return nil, nil
	}
	return archive.Open(ctx, cfg.Archive.Driver, cfg.Archive.DSN)
}

// newRunner wires the runner and returns a cleanup for the archive
func newRunner(ctx context.Context, cfg *config.Config, flags *cliFlags, out io.Writer, total int) (*runner.Runner, func(), error) {
	level := zapcore.WarnLevel
	if flags.debugMode || flags.debugFull {
		level = zapcore.DebugLevel
	}
	logger, err := newLogger(level)
	if err != nil {
		return nil, nil, err
	}

	store, err := openArchive(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = logger.Sync()
		if store != nil {
			_ = store.Close()
		}
	}

	opts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithOutput(out),
		runner.WithLogoResolver(logo.NewResolver(cfg.Logo.Enabled, cfg.Logo.TimeoutDuration(), cfg.Logo.UserAgent, logger)),
		runner.WithProgress(progress.NewManager(total, !flags.noProgress)),
		runner.WithDebugLogger(debug.NewLogger(flags.debugMode || flags.debugFull, flags.debugFull, cfg.General.OutputDir)),
	}
	if store != nil {
		opts = append(opts, runner.WithArchive(store))
	}
	r, err := runner.New(cfg, newClient(cfg, logger), opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return r, cleanup, nil
}

func runRender(ctx context.Context, cmd *cobra.Command, flags *cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	reports := cfg.Reports
	if flags.kind != "" || flags.id != "" {
		if flags.kind == "" || strings.TrimSpace(flags.id) == "" {
			return errors.New("--kind and --id must be given together")
		}
		if flags.kind == config.KindInvoice {
			return errors.New("invoices are rendered with the invoice command")
		}
		reports = []config.ReportConfig{{Kind: strings.ToLower(flags.kind), ID: flags.id}}
		cfg.Reports = reports
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if len(reports) == 0 {
		return errors.New("no reports to render: pass --kind and --id or list [[reports]] in the configuration")
	}
	for _, rc := range reports {
		if rc.Kind != config.KindInvoice && cfg.API.BaseURL == "" {
			return fmt.Errorf("api.base_url is not set; configure it or export %s", config.EnvBaseURL)
		}
	}

	out := cmd.OutOrStdout()
	r, cleanup, err := newRunner(ctx, cfg, flags, out, len(reports))
	if err != nil {
		return err
	}
	defer cleanup()

	printBanner(out)
	if err := r.Run(ctx); err != nil {
		return fmt.Errorf("render interrupted: %w", err)
	}
	return finish(out, r.Collector(), r.Generator().OutputDir())
}

func runInvoice(ctx context.Context, cmd *cobra.Command, flags *cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	flags.noProgress = true
	r, cleanup, err := newRunner(ctx, cfg, flags, out, 1)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := r.RenderInvoice(ctx, flags.input); err != nil {
		return err
	}
	return finish(out, r.Collector(), r.Generator().OutputDir())
}

func runServe(ctx context.Context, flags *cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is not set; configure it or export %s", config.EnvBaseURL)
	}
	logger, err := newLogger(zapcore.InfoLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	opts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithLogoResolver(logo.NewResolver(cfg.Logo.Enabled, cfg.Logo.TimeoutDuration(), cfg.Logo.UserAgent, logger)),
	}
	var archived server.Archive
	if store != nil {
		defer func() {
			_ = store.Close()
		}()
		archived = store
	}
	client := newClient(cfg, logger)
	logger.Info("report api configured", zap.String("base_url", client.BaseURL()))
	r, err := runner.New(cfg, client, opts...)
	if err != nil {
		return err
	}
	return server.New(r, archived, logger).ListenAndServe(ctx, cfg.Server.Addr)
}

func runArchiveList(ctx context.Context, out io.Writer, flags *cliFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if cfg.Archive.DSN == "" {
		return fmt.Errorf("archive is not configured; set [archive] dsn or export %s", config.EnvArchiveDSN)
	}
	store, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	snaps, err := store.List(ctx, flags.limit)
	if err != nil {
		return err
	}
	printSnapshots(out, snaps)
	return nil
}

func printSnapshots(out io.Writer, snaps []archive.Snapshot) {
	if len(snaps) == 0 {
		fmt.Fprintln(out, "No archived reports.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tREPORT\tFORMAT\tSIZE\tGENERATED")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Kind, s.ReportID, s.Format,
			humanize.Bytes(uint64(max(s.Size, 0))),
			humanize.Time(s.GeneratedAt))
	}
	_ = tw.Flush()
}

func printBanner(out io.Writer) {
	fmt.Fprintln(out, `
╔══════════════════════════════════════════════════════════════╗
║                 Assessment Report Generator                  ║
║   Standard, company, comparison, individual and invoices     ║
╚══════════════════════════════════════════════════════════════╝`)
	fmt.Fprintln(out)
}

// finish prints the run summary and reports whether anything failed
func finish(out io.Writer, collector *metrics.Collector, outputDir string) error {
	printSummary(out, collector, outputDir)
	if collector.Failed() {
		return errReportsFailed
	}
	return nil
}

func printSummary(out io.Writer, collector *metrics.Collector, outputDir string) {
	fmt.Fprintln(out, "\n═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(out, "                        RENDER SUMMARY")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")

	for _, kind := range collector.GetAllKinds() {
		s := collector.ComputeSummary(kind)
		fmt.Fprintf(out, "\n%s:\n", strings.ToUpper(kind))
		fmt.Fprintf(out, "  Reports: %d (%.1f%% success)\n", s.TotalReports, s.SuccessRate)
		fmt.Fprintf(out, "  Avg Latency: %s (p95 %s)\n", formatLatency(s.AvgLatency.Milliseconds()), formatLatency(s.P95Latency.Milliseconds()))
		fmt.Fprintf(out, "  Written: %s in %s\n", humanize.Bytes(uint64(max(s.TotalBytes, 0))), pluralFiles(s.TotalFiles))
		if s.DroppedMetrics > 0 {
			fmt.Fprintf(out, "  Dropped metrics: %s\n", humanize.Comma(int64(s.DroppedMetrics)))
		}
		for _, category := range slices.Sorted(maps.Keys(s.ErrorBreakdown)) {
			fmt.Fprintf(out, "  Errors (%s): %d\n", category, s.ErrorBreakdown[category])
		}
	}

	total := collector.ComputeSummary("")
	if total.TotalReports == 0 {
		fmt.Fprintln(out, "\nNo reports were rendered.")
		return
	}
	fmt.Fprintf(out, "\n%d of %d reports rendered. Output: %s\n", total.Successful, total.TotalReports, outputDir)
}

func formatLatency(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.2fs", float64(ms)/1000)
}

func pluralFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return humanize.Comma(int64(n)) + " files"
}
