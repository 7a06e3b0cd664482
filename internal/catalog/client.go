package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/tracing"
)

// ServiceName labels feed errors and the feed circuit breaker.
const ServiceName = "product-feed"

// maxBodySize caps the feed response read into memory.
const maxBodySize = 8 << 20

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy it.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Fetcher loads the product catalog.
type Fetcher interface {
	FetchCatalog(ctx context.Context) (*domain.Catalog, error)
}

// Client fetches the catalog from the product feed. It keeps no state
// between calls: every FetchCatalog issues a new request.
type Client struct {
	http    HTTPDoer
	url     string
	timeout time.Duration
	logger  *slog.Logger
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a feed client for url. A positive timeout bounds each
// call in addition to the caller's context.
func NewClient(doer HTTPDoer, url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		url:     url,
		timeout: timeout,
		logger:  logger,
	}
}

// NewFeedDoer builds the default transport for the feed: a pooled client with
// the given timeout and retry count behind a circuit breaker.
func NewFeedDoer(timeout time.Duration, maxRetries int, logger *slog.Logger) *httpclient.CircuitBreakerClient {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = timeout
	cfg.MaxRetries = maxRetries

	return httpclient.NewCircuitBreakerClient(
		httpclient.New(cfg),
		httpclient.DefaultCircuitBreakerConfig(ServiceName),
		logger,
	)
}

// FetchCatalog retrieves and decodes the feed. Any failure, including a
// non-2xx status, an open breaker or an undecodable body, is reported as
// apperrors.ErrUpstreamUnavailable.
func (c *Client) FetchCatalog(ctx context.Context) (_ *domain.Catalog, err error) {
	ctx, span := tracing.StartSpan(ctx, "catalog", "catalog.fetch",
		attribute.String("http.url", c.url),
	)
	defer func() { tracing.End(span, err) }()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable(fmt.Errorf("create feed request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable(fmt.Errorf("fetch catalog: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.UpstreamUnavailable(httpclient.ParseResponseError(resp, ServiceName))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apperrors.UpstreamUnavailable(fmt.Errorf("read catalog: %w", err))
	}

	catalog, err := domain.ParseCatalog(body)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable(err)
	}

	span.SetAttributes(attribute.Int("catalog.products", len(catalog.Products)))
	c.logger.DebugContext(ctx, "catalog fetched",
		slog.Int("products", len(catalog.Products)),
		slog.Duration("duration", time.Since(start)),
	)
	return catalog, nil
}
