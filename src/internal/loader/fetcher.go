package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/maksimkurb/blocklists-aggregator/src/internal/log"
	"github.com/maksimkurb/blocklists-aggregator/src/internal/utils"
)

const (
	DefaultFetchTimeout = 30 * time.Second
	maxFeedSize         = 64 << 20
)

// Fetcher retrieves the raw body of a feed. One call is one attempt.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads feeds over HTTP(S). file:// URLs are served from the
// local filesystem, which makes local mirrors usable as source overrides.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer utils.CloseOrWarn(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxFeedSize {
		return nil, fmt.Errorf("response exceeds %d bytes", maxFeedSize)
	}

	log.Debugf("Downloaded %d bytes from %s in %s", len(body), url, time.Since(start).Round(time.Millisecond))
	return body, nil
}
