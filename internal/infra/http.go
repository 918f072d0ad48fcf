package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "oakdash/1.0 (+https://github.com/blueoak/oakdash)"

// ErrHTTP wraps a non-2xx HTTP response with its status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// NewHTTPClient returns an HTTP client with the given total request timeout.
// Every outbound call carries this timeout so a hung provider cannot wedge
// the call queue.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// DoGet performs a GET request and returns the response body. The caller is
// responsible for closing the returned ReadCloser. Responses with status
// >= 400 are converted to *ErrHTTP with the first 1KiB of the body attached.
func DoGet(ctx context.Context, hc *http.Client, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, */*")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}

// GetJSON performs a GET request and decodes a JSON response into out.
func GetJSON(ctx context.Context, hc *http.Client, url string, out any) error {
	body, _, err := DoGet(ctx, hc, url, nil)
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
