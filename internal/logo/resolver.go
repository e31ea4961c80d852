// Package logo finds a company logo on the company website.
package logo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/lamim/assessment-reports/internal/assessment"
)

const defaultUserAgent = "Assessment-Reports/1.0 (Logo Resolver)"

// Resolver crawls a company website once and remembers the outcome, including
// a failed lookup.
type Resolver struct {
	enabled   bool
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger

	mu    sync.Mutex
	cache map[string]lookup
}

type lookup struct {
	logo string
	err  error
}

// NewResolver creates a resolver. A disabled resolver never crawls.
func NewResolver(enabled bool, timeout time.Duration, userAgent string, logger *zap.Logger) *Resolver {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		enabled:   enabled,
		timeout:   timeout,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]lookup),
	}
}

// Apply fills in CompanyLogo when it is empty. Failures leave it empty so
// the report falls back to the default logo.
func (r *Resolver) Apply(ctx context.Context, c *assessment.CompanyInformation) {
	if r == nil || !r.enabled || c == nil || c.CompanyLogo != "" || strings.TrimSpace(c.Website) == "" {
		return
	}
	logo, err := r.Resolve(ctx, c.Website)
	if err != nil {
		r.logger.Warn("logo lookup failed", zap.String("website", c.Website), zap.Error(err))
		return
	}
	c.CompanyLogo = logo
}

// Resolve returns the absolute URL of the site's og:image, or of its icon
// when there is no og:image. Lookups cut short by ctx are not remembered.
func (r *Resolver) Resolve(ctx context.Context, website string) (string, error) {
	site := normalize(website)

	r.mu.Lock()
	if l, ok := r.cache[site]; ok {
		r.mu.Unlock()
		return l.logo, l.err
	}
	r.mu.Unlock()

	logo, err := r.crawl(ctx, site)
	if ctx.Err() != nil {
		return logo, err
	}

	r.mu.Lock()
	r.cache[site] = lookup{logo: logo, err: err}
	r.mu.Unlock()
	return logo, err
}

func (r *Resolver) crawl(ctx context.Context, site string) (string, error) {
	var (
		ogImage  string
		icon     string
		visitErr error
	)

	collector := colly.NewCollector(
		colly.UserAgent(r.userAgent),
		colly.MaxDepth(1),
	)
	if r.timeout > 0 {
		collector.SetRequestTimeout(r.timeout)
	}

	collector.OnRequest(func(req *colly.Request) {
		select {
		case <-ctx.Done():
			req.Abort()
			visitErr = ctx.Err()
		default:
		}
	})
	collector.OnHTML(`meta[property="og:image"]`, func(e *colly.HTMLElement) {
		if ogImage == "" {
			ogImage = e.Request.AbsoluteURL(strings.TrimSpace(e.Attr("content")))
		}
	})
	collector.OnHTML(`link[rel~="icon"]`, func(e *colly.HTMLElement) {
		if icon == "" {
			icon = e.Request.AbsoluteURL(strings.TrimSpace(e.Attr("href")))
		}
	})
	collector.OnError(func(resp *colly.Response, e error) {
		if visitErr == nil {
			visitErr = fmt.Errorf("HTTP %d: %w", resp.StatusCode, e)
		}
	})

	if err := collector.Visit(site); err != nil {
		return "", fmt.Errorf("failed to visit %s: %w", site, err)
	}
	if visitErr != nil {
		return "", visitErr
	}

	logo := ogImage
	if logo == "" {
		logo = icon
	}
	if logo == "" {
		return "", fmt.Errorf("no logo found on %s", site)
	}
	return logo, nil
}

func normalize(website string) string {
	site := strings.TrimSpace(website)
	if !strings.Contains(site, "://") {
		site = "https://" + site
	}
	return site
}
