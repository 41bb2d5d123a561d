package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPStore downloads artifacts relative to a base URL, the way a browser
// front end fetches them from a static file server.
type HTTPStore struct {
	kindStore
	base   *url.URL
	client *http.Client
}

// NewHTTPStore creates a store for baseURL. A nil client gets a pooled
// default with the given timeout.
func NewHTTPStore(baseURL string, client *http.Client, timeout time.Duration) (*HTTPStore, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact url '%s': %w", baseURL, err)
	}
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	s := &HTTPStore{base: base, client: client}
	s.kindStore = kindStore{fetch: s.download}
	return s, nil
}

func (s *HTTPStore) download(ctx context.Context, _ Kind, location string) ([]byte, error) {
	ref, err := url.Parse(strings.TrimPrefix(location, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid location: %w", err)
	}
	target := s.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, target)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// Close releases idle connections.
func (s *HTTPStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
