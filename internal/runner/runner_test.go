package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamim/assessment-reports/internal/api"
	"github.com/lamim/assessment-reports/internal/archive"
	"github.com/lamim/assessment-reports/internal/config"
	"github.com/lamim/assessment-reports/internal/debug"
	"github.com/lamim/assessment-reports/internal/progress"
	"github.com/lamim/assessment-reports/internal/testutil"
)

const standardPayload = `{
	"AssessmentResult": {
		"businessOverview": [{"name": "Business Overview", "yes": 3, "no": 1, "unsure": 0, "yesPercentage": "75", "noPercentage": "25", "unsurePercentage": "0"}],
		"block": [
			{"name": "Strategy", "yes": 2, "no": 0, "unsure": 0, "yesPercentage": 100, "noPercentage": 0, "unsurePercentage": 0},
			{"name": "Finance", "yes": 1, "no": 1, "unsure": 0, "yesPercentage": "NaN", "noPercentage": 50, "unsurePercentage": 0}
		],
		"subblock1": [{"name": "Vision", "block": "Strategy", "yes": 1, "no": 0, "unsure": 0, "yesPercentage": 100, "noPercentage": 0, "unsurePercentage": 0}]
	},
	"UserInformation": {"first_name": "Ana", "last_name": "Reyes"},
	"CompanyInformation": {"companyName": "Acme"}
}`

const comparisonPayload = `{
	"ReportData": [
		{"userName": "ann", "blocks": [{"blockName": "Sales", "yesPercentage": 80}]},
		{"userName": "bob", "blocks": [{"blockName": "Sales", "yesPercentage": 60}]}
	],
	"ReportData2": {"Blocks": [{"block": "Sales", "ann": 80, "bob": 60}], "Subblock1": []}
}`

var fixedNow = time.Date(2025, 5, 7, 12, 0, 0, 0, time.UTC)

func reportAPI(t *testing.T) *testutil.Server {
	t.Helper()
	return testutil.NewReportAPI(t, testutil.ReportAPI{
		Assessments: map[string]string{"a1": standardPayload},
		StandardReports: map[string]string{
			"c1":     comparisonPayload,
			"broken": `{"ReportData": [`,
		},
	})
}

func testConfig(t *testing.T, reports ...config.ReportConfig) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.General.OutputDir = t.TempDir()
	cfg.General.Timeout = "5s"
	cfg.General.Concurrency = 2
	cfg.Reports = reports
	return cfg
}

func newRunner(t *testing.T, cfg *config.Config, srv *testutil.Server, opts ...Option) (*Runner, *bytes.Buffer) {
	t.Helper()
	retry := api.DefaultRetryConfig()
	retry.MaxRetries = 0
	client := api.NewClient(srv.URL, api.WithRetry(retry))

	var out bytes.Buffer
	opts = append([]Option{WithOutput(&out), WithClock(func() time.Time { return fixedNow })}, opts...)
	r, err := New(cfg, client, opts...)
	require.NoError(t, err)
	return r, &out
}

func TestRun_RendersEveryReport(t *testing.T) {
	srv := reportAPI(t)
	cfg := testConfig(t,
		config.ReportConfig{Kind: config.KindStandard, ID: "a1", Name: "Acme standard"},
		config.ReportConfig{Kind: config.KindComparison, ID: "c1"},
		config.ReportConfig{Kind: config.KindCompany, ID: "missing"},
	)
	r, out := newRunner(t, cfg, srv)

	require.NoError(t, r.Run(context.Background()))

	results := r.Collector().GetResults()
	require.Len(t, results, 3)

	byReport := map[string]bool{}
	for _, res := range results {
		byReport[res.Report] = res.Success
		if res.Report == "company/missing" {
			assert.Equal(t, "not_found", res.ErrorCategory)
			assert.Contains(t, res.Error, "API Error: 404")
		}
		if res.Success {
			assert.Len(t, res.Files, 3)
			assert.Positive(t, res.Bytes)
		}
	}
	assert.True(t, byReport["Acme standard"])
	assert.True(t, byReport["comparison/c1"])
	assert.False(t, byReport["company/missing"])
	assert.True(t, r.Collector().Failed())
	assert.Equal(t, 1, srv.Hits("/api/standard-reports/missing"), "404 must not be retried")

	require.Equal(t, cfg.General.OutputDir, r.Generator().OutputDir())
	for _, name := range []string{"standard-a1.html", "standard-a1.md", "standard-a1.json", "comparison-c1.html"} {
		_, err := os.Stat(filepath.Join(r.Generator().OutputDir(), name))
		assert.NoError(t, err, name)
	}
	assert.Contains(t, out.String(), "Rendering 3 reports")
	assert.Contains(t, out.String(), "✗ company/missing failed")
}

func TestBuild_StrictModeDropsBadMetrics(t *testing.T) {
	srv := reportAPI(t)
	cfg := testConfig(t)
	cfg.Validation.Mode = "strict"
	r, _ := newRunner(t, cfg, srv)

	built, err := r.Build(context.Background(), "standard", "a1")
	require.NoError(t, err)
	require.Len(t, built.Dropped, 1)
	assert.Equal(t, "Finance", built.Dropped[0].Name)
	assert.Equal(t, fixedNow, built.Document.GeneratedAt)

	cfg.Validation.Mode = "lenient"
	lenient, _ := newRunner(t, cfg, srv)
	built, err = lenient.Build(context.Background(), "standard", "a1")
	require.NoError(t, err)
	assert.Empty(t, built.Dropped)
}

func TestBuild_Errors(t *testing.T) {
	srv := reportAPI(t)
	r, _ := newRunner(t, testConfig(t), srv)
	ctx := context.Background()

	_, err := r.Build(ctx, "weekly", "a1")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = r.Build(ctx, "invoice", "a1")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = r.Build(ctx, "standard", "  ")
	assert.ErrorIs(t, err, api.ErrMissingID)

	_, err = r.Build(ctx, "comparison", "broken")
	assert.ErrorIs(t, err, api.ErrDecode)

	_, err = r.Build(ctx, "individual", "nope")
	assert.True(t, api.IsNotFound(err), "expected upstream 404, got %v", err)
}

func TestRun_ArchivesAndLogsDebugSession(t *testing.T) {
	srv := reportAPI(t)
	cfg := testConfig(t, config.ReportConfig{Kind: config.KindStandard, ID: "a1"})
	cfg.General.Formats = []string{"json"}

	store, err := archive.Open(context.Background(), archive.DriverSQLite, filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	dbg := debug.NewLogger(true, false, cfg.General.OutputDir)
	var bar bytes.Buffer
	r, out := newRunner(t, cfg, srv,
		WithArchive(store),
		WithDebugLogger(dbg),
		WithProgress(progress.NewManagerWithWriter(1, true, &bar)),
	)

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, out.String(), "Rendering reports...")

	snap, err := store.Latest(context.Background(), "standard", "a1", "json")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(snap.Payload), `"prepared_for": "Prepared for Ana Reyes"`))

	_, err = os.Stat(dbg.GetSessionPath())
	assert.NoError(t, err)
}

func TestRenderInvoice(t *testing.T) {
	srv := reportAPI(t)
	cfg := testConfig(t)
	cfg.General.Formats = []string{"html"}
	r, _ := newRunner(t, cfg, srv)

	input := filepath.Join(t.TempDir(), "invoice.json")
	require.NoError(t, os.WriteFile(input, []byte(`{
		"invoiceNumber": "INV-9", "invoiceDate": "2025-02-01", "plan": "pro", "price": 99.5, "billingCycle": "yearly",
		"billedTo": {"addressLine1": "1 Main St", "city": "Austin", "country": "USA", "company": "Beta"}
	}`), 0o600))

	require.NoError(t, r.RenderInvoice(context.Background(), input))
	results := r.Collector().GetResults()
	require.Len(t, results, 1)
	require.True(t, results[0].Success, results[0].Error)

	page, err := os.ReadFile(filepath.Join(cfg.General.OutputDir, "invoice-INV-9.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "$109.45")
}

func TestBuildInvoice_Invalid(t *testing.T) {
	r, _ := newRunner(t, testConfig(t), reportAPI(t))
	_, err := r.BuildInvoiceFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)

	input := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"invoiceNumber": "INV-1", "invoiceDate": "01/02/2025"}`), 0o600))
	_, err = r.BuildInvoiceFile(input)
	require.Error(t, err)
	category, _ := api.CategorizeError(err)
	assert.Equal(t, api.ErrValidation, category)
}

func TestRun_CanceledContext(t *testing.T) {
	srv := reportAPI(t)
	cfg := testConfig(t, config.ReportConfig{Kind: config.KindStandard, ID: "a1"})
	r, _ := newRunner(t, cfg, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
