package identity

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	courier_errors "courier-engine/pkg/errors"
)

// httpClient is the shared plumbing for the upstream identity backends:
// a bounded-timeout client, base URL normalization and PSK bearer auth.
type httpClient struct {
	client  *http.Client
	baseURL string
	token   string
}

func newHTTPClient(baseURL, token string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: normalizeBaseURL(baseURL),
		token:   token,
	}
}

func normalizeBaseURL(baseURL string) string {
	addr := baseURL
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}

// get performs a GET and returns the body and status code. Transport-level
// failures surface as ErrUpstreamUnavailable so resolution never mistakes an
// unreachable backend for an empty result.
func (c *httpClient) get(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", courier_errors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %v", courier_errors.ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return body, resp.StatusCode, fmt.Errorf("%w: %s returned %d", courier_errors.ErrUpstreamUnavailable, path, resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}
