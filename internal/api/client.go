// Package api fetches report payloads from the assessment report API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lamim/assessment-reports/internal/assessment"
	"github.com/lamim/assessment-reports/internal/debug"
)

const maxBodySize = 16 << 20

// Client talks to the report API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryCfg   RetryConfig
	limiter    *RateLimiter
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends the token as a bearer Authorization header
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetry replaces the retry configuration
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// WithRateLimiter sets the outgoing request limiter
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithLogger sets the operational logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryCfg: DefaultRetryConfig(),
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("github.com/lamim/assessment-reports/internal/api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchAssessment fetches the payload of a standard report
func (c *Client) FetchAssessment(ctx context.Context, id string) (*assessment.Assessment, error) {
	var out assessment.Assessment
	if err := c.fetch(ctx, "standard", "/api/assessment/", id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchCompanyReport fetches the payload of a company average report
func (c *Client) FetchCompanyReport(ctx context.Context, id string) (*assessment.CompanyReport, error) {
	var out assessment.CompanyReport
	if err := c.fetch(ctx, "company", "/api/standard-reports/", id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchComparisonReport fetches the payload of a user comparison report
func (c *Client) FetchComparisonReport(ctx context.Context, id string) (*assessment.ComparisonReport, error) {
	var out assessment.ComparisonReport
	if err := c.fetch(ctx, "comparison", "/api/standard-reports/", id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchIndividualReport fetches the payload of an individual company report
func (c *Client) FetchIndividualReport(ctx context.Context, id string) (*assessment.IndividualReport, error) {
	var out assessment.IndividualReport
	if err := c.fetch(ctx, "individual", "/api/standard-reports/", id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) fetch(ctx context.Context, kind, route, id string, out any) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	endpoint := c.baseURL + route + url.PathEscape(id)

	ctx, span := c.tracer.Start(ctx, "report.fetch",
		trace.WithAttributes(
			attribute.String("report.kind", kind),
			attribute.String("report.id", id),
			attribute.String("http.url", endpoint),
		))
	defer span.End()

	dbg := debug.LoggerFromContext(ctx)
	fetchLog := debug.FetchFromContext(ctx)
	ctx = dbg.TraceContext(ctx, fetchLog)

	var body []byte
	err := c.retryCfg.DoWithRetry(ctx, func(attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		body, err = c.get(ctx, endpoint, attempt, dbg, fetchLog)
		if err != nil && attempt < c.retryCfg.MaxRetries {
			c.logger.Debug("report fetch attempt failed",
				zap.String("kind", kind),
				zap.String("id", id),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	})
	if err == nil {
		if decodeErr := json.Unmarshal(body, out); decodeErr != nil {
			err = fmt.Errorf("%w: %v", ErrDecode, decodeErr)
		}
	}

	if err != nil {
		category, _ := CategorizeError(err)
		dbg.LogError(fetchLog, err.Error(), category.String(), kind+" fetch")
		span.RecordError(err)
		span.SetStatus(codes.Error, category.String())
		return err
	}

	span.SetAttributes(attribute.Int("http.response_size", len(body)))
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, attempt int, dbg *debug.Logger, fetchLog *debug.FetchLog) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	dbg.LogRequest(fetchLog, req.Method, endpoint, debug.HeadersToMap(req.Header), attempt)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NoResponseError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NoResponseError{Err: fmt.Errorf("failed to read response: %w", err)}
	}
	dbg.LogResponse(fetchLog, resp.StatusCode, debug.HeadersToMap(resp.Header), string(body), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}
	return body, nil
}
