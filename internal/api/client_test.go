package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/lamim/assessment-reports/internal/debug"
	"github.com/lamim/assessment-reports/internal/testutil"
)

func fastRetry() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestFetchAssessment_UsesAssessmentRoute(t *testing.T) {
	server := testutil.NewIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/assessment/abc123" {
			t.Errorf("expected /api/assessment/abc123 path, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected GET method, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"AssessmentResult": {"businessOverview": [{"yes": 1, "no": 1, "unsure": 0, "yesPercentage": "50", "noPercentage": "50", "unsurePercentage": "0"}], "block": [], "subblock1": []},
			"UserInformation": {"first_name": "Ana", "last_name": "Reyes"},
			"CompanyInformation": {"companyName": "Acme"}
		}`))
	}))

	client := NewClient(server.URL+"/", WithToken("tok"), WithLogger(zaptest.NewLogger(t)))
	if client.BaseURL() != server.URL {
		t.Errorf("expected trailing slash trimmed, got %q", client.BaseURL())
	}
	got, err := client.FetchAssessment(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("FetchAssessment() error = %v", err)
	}
	if got.UserInformation.FullName() != "Ana Reyes" {
		t.Fatalf("unexpected user: %+v", got.UserInformation)
	}
	if got.AssessmentResult.BusinessOverview[0].YesPercentage.Float() != 50 {
		t.Fatalf("unexpected overview: %+v", got.AssessmentResult.BusinessOverview[0])
	}
}

func TestFetchStandardReports_UseStandardReportsRoute(t *testing.T) {
	var paths []string
	server := testutil.NewIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id": "r1", "report_name": "Q1", "ReportData": {}}`))
	}))

	client := NewClient(server.URL)
	ctx := context.Background()
	if _, err := client.FetchCompanyReport(ctx, "r1"); err != nil {
		t.Fatalf("FetchCompanyReport() error = %v", err)
	}
	if _, err := client.FetchIndividualReport(ctx, "r2"); err != nil {
		t.Fatalf("FetchIndividualReport() error = %v", err)
	}
	if _, err := client.FetchComparisonReport(ctx, "r3"); err == nil {
		t.Fatal("expected decode error for mismatched comparison payload")
	} else if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}

	want := []string{"/api/standard-reports/r1", "/api/standard-reports/r2", "/api/standard-reports/r3"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d requests, got %d (%v)", len(want), len(paths), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("request %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}

func TestFetch_MissingID(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	_, err := client.FetchAssessment(context.Background(), "  ")
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if err.Error() != "missing report ID" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestFetch_StatusErrorIsNotRetriedFor404(t *testing.T) {
	var calls atomic.Int32
	server := testutil.NewIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	}))

	client := NewClient(server.URL, WithRetry(fastRetry()))
	_, err := client.FetchCompanyReport(context.Background(), "nope")

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Error() != "API Error: 404 — Not Found" {
		t.Fatalf("unexpected message %q", se.Error())
	}
	if !IsNotFound(err) {
		t.Fatal("expected IsNotFound")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := testutil.NewIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ReportData": {"Blocks": [{"block": "Finance", "Ana": 50}], "Subblock1": []}}`))
	}))

	client := NewClient(server.URL, WithRetry(fastRetry()))
	got, err := client.FetchIndividualReport(context.Background(), "x")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if len(got.ReportData.Blocks) != 1 {
		t.Fatalf("unexpected blocks: %+v", got.ReportData.Blocks)
	}
}

func TestFetch_NoResponse(t *testing.T) {
	cfg := fastRetry()
	cfg.MaxRetries = 0
	client := NewClient("http://127.0.0.1:1", WithRetry(cfg))

	_, err := client.FetchAssessment(context.Background(), "x")
	var nre *NoResponseError
	if !errors.As(err, &nre) {
		t.Fatalf("expected NoResponseError, got %v", err)
	}
	if err.Error() != "API Error: No response received from server." {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestFetch_RecordsDebugSession(t *testing.T) {
	server := testutil.NewIPv4Server(t, testutil.JSONHandler(http.StatusInternalServerError, `{"error":"boom"}`))

	logger := debug.NewLogger(true, false, t.TempDir())
	fetch := logger.StartFetch("standard", "x")
	ctx := debug.WithFetch(debug.WithLogger(context.Background(), logger), fetch)

	cfg := fastRetry()
	cfg.MaxRetries = 1
	client := NewClient(server.URL, WithRetry(cfg))
	if _, err := client.FetchAssessment(ctx, "x"); err == nil {
		t.Fatal("expected error")
	}
	logger.EndFetch(fetch)

	if len(fetch.Requests) != 2 {
		t.Fatalf("expected 2 logged requests, got %d", len(fetch.Requests))
	}
	if fetch.Response == nil || fetch.Response.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected logged 500 response, got %+v", fetch.Response)
	}
	if len(fetch.Errors) != 1 || fetch.Errors[0].Category != "server_error" {
		t.Fatalf("expected one server_error entry, got %+v", fetch.Errors)
	}
	if fetch.Status != "failed" {
		t.Fatalf("expected failed status, got %q", fetch.Status)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	server := testutil.NewIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(server.URL, WithRetry(fastRetry()))
	_, err := client.FetchAssessment(ctx, "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
