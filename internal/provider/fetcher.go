package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"gold-pulse/internal/domain"
)

// DefaultSourceTimeout bounds a single provider request.
const DefaultSourceTimeout = 12 * time.Second

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 8 << 20

// HTTPFetcher performs GET requests for one named source. Every request runs
// under its own timeout and failures come back as *domain.SourceError.
type HTTPFetcher struct {
	source  string
	client  *http.Client
	timeout time.Duration
	limiter *RateLimiter
	header  http.Header
}

func NewHTTPFetcher(source string, timeout time.Duration, limiter *RateLimiter) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &HTTPFetcher{
		source:  source,
		client:  &http.Client{},
		timeout: timeout,
		limiter: limiter,
		header:  make(http.Header),
	}
}

// SetHeader adds a header sent with every request.
func (f *HTTPFetcher) SetHeader(key, value string) {
	f.header.Set(key, value)
}

// Get returns the body of a 200 response.
func (f *HTTPFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, f.classify(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewSourceError(domain.KindNetworkFailure, f.source, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range f.header {
		req.Header[k] = v
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, f.classify(fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewSourceError(domain.KindNetworkFailure, f.source,
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}
	if len(body) == 0 {
		return nil, domain.NewSourceError(domain.KindEmptyPayload, f.source, nil)
	}
	return body, nil
}

// GetJSON decodes a 200 response into v.
func (f *HTTPFetcher) GetJSON(ctx context.Context, url string, v any) error {
	body, err := f.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewSourceError(domain.KindMalformedPayload, f.source, err)
	}
	return nil
}

func (f *HTTPFetcher) classify(err error) error {
	if isTimeout(err) {
		return domain.NewSourceError(domain.KindTimeout, f.source, err)
	}
	return domain.NewSourceError(domain.KindNetworkFailure, f.source, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
