package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lamim/assessment-reports/internal/archive"
	"github.com/lamim/assessment-reports/internal/config"
	"github.com/lamim/assessment-reports/internal/metrics"
	"github.com/lamim/assessment-reports/internal/report"
	"github.com/lamim/assessment-reports/internal/testutil"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"all", []string{"html", "md", "json"}, false},
		{"html", []string{"html"}, false},
		{"json, markdown,json", []string{"json", "md"}, false},
		{"pdf", nil, true},
	}
	for _, tt := range tests {
		got, err := parseFormats(tt.in)
		if tt.wantErr {
			if !errors.Is(err, report.ErrUnknownFormat) {
				t.Errorf("parseFormats(%q) expected ErrUnknownFormat, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseFormats(%q) error = %v", tt.in, err)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadEnvFile_FileNotFound(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestLoadEnvFile_ParsesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# report api\nREPORT_API_TOKEN=\"secret-token\"\n\nARCHIVE_DSN=file.db\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvArchiveDSN, "preset.db")
	_ = os.Unsetenv(config.EnvToken)

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}
	if got := os.Getenv(config.EnvToken); got != "secret-token" {
		t.Errorf("expected token from .env, got %q", got)
	}
	if got := os.Getenv(config.EnvArchiveDSN); got != "preset.db" {
		t.Errorf("existing variables must win, got %q", got)
	}
}

func TestLoadConfig_DefaultFileIsOptional(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvBaseURL, "https://api.example.com")

	cfg, err := loadConfig(&cliFlags{configPath: defaultConfigPath, format: "json", outputDir: "out"})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("expected base url from env, got %q", cfg.API.BaseURL)
	}
	if len(cfg.General.Formats) != 1 || cfg.General.Formats[0] != "json" || cfg.General.OutputDir != "out" {
		t.Errorf("flags not applied: %+v", cfg.General)
	}

	if _, err := loadConfig(&cliFlags{configPath: "other.toml"}); err == nil {
		t.Error("an explicit missing config file should fail")
	}
}

func TestPrintSummary(t *testing.T) {
	c := metrics.NewCollector()
	c.AddResult(metrics.Result{Kind: "standard", Success: true, Latency: 1500 * time.Millisecond, Bytes: 2048, Files: []string{"a.html"}})
	c.AddResult(metrics.Result{Kind: "company", Error: "API Error: 404", ErrorCategory: "not_found", Latency: 20 * time.Millisecond})

	var buf bytes.Buffer
	err := finish(&buf, c, "./reports")
	if !errors.Is(err, errReportsFailed) {
		t.Errorf("expected errReportsFailed, got %v", err)
	}
	out := buf.String()
	for _, want := range []string{"STANDARD:", "COMPANY:", "2.0 kB in 1 file", "Errors (not_found): 1", "1 of 2 reports rendered"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSummary_ErrorCategoriesSorted(t *testing.T) {
	c := metrics.NewCollector()
	for _, cat := range []string{"upstream", "decode", "not_found", "timeout", "decode"} {
		c.AddResult(metrics.Result{Kind: "company", Error: "failed", ErrorCategory: cat})
	}

	for range 5 {
		var buf bytes.Buffer
		printSummary(&buf, c, ".")
		out := buf.String()
		last := -1
		for _, want := range []string{"Errors (decode): 2", "Errors (not_found): 1", "Errors (timeout): 1", "Errors (upstream): 1"} {
			i := strings.Index(out, want)
			if i < 0 || i < last {
				t.Fatalf("expected %q in sorted position:\n%s", want, out)
			}
			last = i
		}
	}
}

func TestPrintSummary_EmptyCollector(t *testing.T) {
	var buf bytes.Buffer
	if err := finish(&buf, metrics.NewCollector(), "."); err != nil {
		t.Errorf("empty run should not fail, got %v", err)
	}
	if !strings.Contains(buf.String(), "No reports were rendered.") {
		t.Errorf("unexpected summary:\n%s", buf.String())
	}
}

func TestPrintSnapshots(t *testing.T) {
	var buf bytes.Buffer
	printSnapshots(&buf, nil)
	if !strings.Contains(buf.String(), "No archived reports.") {
		t.Errorf("unexpected output %q", buf.String())
	}

	buf.Reset()
	printSnapshots(&buf, []archive.Snapshot{{Kind: "standard", ReportID: "a1", Format: "html", Size: 4096, GeneratedAt: time.Now()}})
	if !strings.Contains(buf.String(), "standard") || !strings.Contains(buf.String(), "4.1 kB") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}

const assessmentBody = `{
	"AssessmentResult": {
		"businessOverview": [{"name": "Business Overview", "yes": 1, "no": 1, "unsure": 0, "yesPercentage": 50, "noPercentage": 50, "unsurePercentage": 0}],
		"block": [], "subblock1": []
	},
	"UserInformation": {"first_name": "Ana"},
	"CompanyInformation": {"companyName": "Acme"}
}`

func TestRenderCommand(t *testing.T) {
	srv := testutil.NewReportAPI(t, testutil.ReportAPI{Assessments: map[string]string{"a1": assessmentBody}})

	t.Chdir(t.TempDir())
	t.Setenv(config.EnvBaseURL, srv.URL)
	t.Setenv(config.EnvArchiveDSN, "")
	outDir := filepath.Join(t.TempDir(), "reports")

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"render", "--kind", "standard", "--id", "a1", "--format", "html,json", "--output", outDir, "--no-progress"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("render failed: %v\n%s", err, out.String())
	}
	for _, name := range []string{"standard-a1.html", "standard-a1.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "1 of 1 reports rendered") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	if got := srv.Hits("/api/assessment/a1"); got != 1 {
		t.Errorf("expected one fetch for both formats, got %d", got)
	}

	out.Reset()
	cmd = newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"render", "--kind", "company", "--id", "gone", "--output", outDir, "--no-progress"})
	if err := cmd.Execute(); !errors.Is(err, errReportsFailed) {
		t.Errorf("expected errReportsFailed for an upstream 404, got %v", err)
	}
}

func TestRenderCommand_FlagErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	tests := [][]string{
		{"render", "--kind", "standard"},
		{"render", "--kind", "invoice", "--id", "x"},
		{"render", "--kind", "weekly", "--id", "x"},
		{"render"},
	}
	for _, args := range tests {
		var out bytes.Buffer
		cmd := newRootCmd(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err == nil {
			t.Errorf("expected %v to fail", args)
		}
	}
}

func TestInvoiceCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvArchiveDSN, "")

	input := filepath.Join(t.TempDir(), "invoice.json")
	body := `{
		"invoiceNumber": "INV-3", "invoiceDate": "2025-03-01", "plan": "basic", "price": 10, "billingCycle": "monthly",
		"billedTo": {"addressLine1": "9 Elm St", "city": "Leeds", "country": "UK", "company": "Gamma"}
	}`
	if err := os.WriteFile(input, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(t.TempDir(), "invoices")

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"invoice", "--input", input, "--format", "html", "--output", outDir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("invoice failed: %v\n%s", err, out.String())
	}
	if _, err := os.Stat(filepath.Join(outDir, "invoice-INV-3.html")); err != nil {
		t.Errorf("expected rendered invoice: %v", err)
	}
	if !strings.Contains(out.String(), "1 of 1 reports rendered. Output: "+outDir) {
		t.Errorf("unexpected summary:\n%s", out.String())
	}

	out.Reset()
	cmd = newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"invoice"})
	if err := cmd.Execute(); err == nil {
		t.Error("invoice without --input should fail")
	}
}
