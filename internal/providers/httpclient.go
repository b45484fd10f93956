package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// httpClient is a small retrying GET-JSON client shared by the adapters.
// Every request carries the configured timeout; retries use exponential
// backoff so a flaky upstream can't stall a pipeline run for long.
type httpClient struct {
	client  *http.Client
	retries int
	backoff time.Duration
}

func newHTTPClient(timeout time.Duration, retries int, backoff time.Duration) *httpClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	if backoff == 0 {
		backoff = 300 * time.Millisecond
	}
	return &httpClient{client: &http.Client{Timeout: timeout}, retries: retries, backoff: backoff}
}

var errNotJSON = errors.New("response is not JSON")

// getJSON issues a GET and returns the raw body after checking status and
// content type. A non-2xx status or an HTML body (a misconfigured endpoint
// usually serves its documentation page) is an error, never a partial read.
func (c *httpClient) getJSON(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var lastErr error
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		body, err := c.getOnce(ctx, url, headers)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if errors.Is(err, errNotJSON) {
			break // retrying won't change the content type
		}
		if attempt < tries-1 {
			select {
			case <-time.After(c.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (c *httpClient) getOnce(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return nil, fmt.Errorf("%w: content-type %q", errNotJSON, ct)
	}
	return io.ReadAll(resp.Body)
}
