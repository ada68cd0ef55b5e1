package load

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// leveledSlog adapts slog to the retryablehttp leveled logger. Intermediate
// failures are retried, so errors are reported as warnings.
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...any) { l.inner.Warn(msg, keysAndValues...) }
func (l leveledSlog) Warn(msg string, keysAndValues ...any)  { l.inner.Warn(msg, keysAndValues...) }
func (l leveledSlog) Info(msg string, keysAndValues ...any)  { l.inner.Info(msg, keysAndValues...) }
func (l leveledSlog) Debug(msg string, keysAndValues ...any) { l.inner.Debug(msg, keysAndValues...) }

// FetchOption configures the HTTP client used by Fetch.
type FetchOption func(*retryablehttp.Client)

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) FetchOption {
	return func(c *retryablehttp.Client) {
		c.RetryMax = n
	}
}

// WithRetryWait sets the minimum and maximum wait between retries.
func WithRetryWait(lo, hi time.Duration) FetchOption {
	return func(c *retryablehttp.Client) {
		c.RetryWaitMin = lo
		c.RetryWaitMax = hi
	}
}

// WithLogger routes retry diagnostics to logger.
func WithLogger(logger *slog.Logger) FetchOption {
	return func(c *retryablehttp.Client) {
		c.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: logger})
	}
}

// WithTransport sets the transport of the underlying HTTP client.
func WithTransport(rt http.RoundTripper) FetchOption {
	return func(c *retryablehttp.Client) {
		c.HTTPClient.Transport = rt
	}
}

// Fetch downloads the schema document at url and parses it. Connection
// errors and 5xx responses are retried.
func Fetch(ctx context.Context, url string, opts ...FetchOption) ([]*Entry, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: slog.Default().With("subsystem", "load")})
	for _, opt := range opts {
		opt(client)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("load: build request: %w", err)
	}
	req.Header.Set("Accept", "application/fhir+json, application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("load: fetch %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("load: read %s: %w", url, err)
	}
	return Parse(data)
}
