// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/catalogsearch/backoff"
	"github.com/poiesic/catalogsearch/storage"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultRateLimit = 20.0
	defaultRateBurst = 10
	maxErrorBody     = 512
)

// ErrNotFound is returned for a 404 response.
var ErrNotFound = errors.New("resource not found")

// Config configures a Client.
type Config struct {
	// BaseURL is prefixed to every request path. A missing scheme means https.
	BaseURL string

	// Headers are sent with every request.
	Headers map[string]string

	// Timeout for individual requests (default: 30s).
	Timeout time.Duration

	// RateLimit in requests per second (default: 20). Negative disables it.
	RateLimit float64

	// RateBurst maximum burst size (default: 10).
	RateBurst int

	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client
}

// Client issues JSON requests against one base URL.
type Client struct {
	baseURL string
	headers map[string]string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client from config, filling in defaults.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = defaultRateLimit
	}
	if config.RateBurst == 0 {
		config.RateBurst = defaultRateBurst
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}

	return &Client{
		baseURL: WithScheme(strings.TrimSuffix(config.BaseURL, "/")),
		headers: config.Headers,
		http:    httpClient,
		limiter: limiter,
	}
}

// WithScheme prepends https:// to host when it carries no scheme.
func WithScheme(host string) string {
	if host == "" || strings.Contains(host, "://") {
		return host
	}
	return "https://" + host
}

// BaseURL returns the URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends in as a JSON body (when non-nil) and decodes the response into
// out (when non-nil).
//
// Status mapping:
//   - 2xx: success
//   - 404: ErrNotFound, permanent
//   - other 4xx except 408 and 429: storage.ErrUnexpectedStatus, permanent
//   - anything else: storage.ErrUnexpectedStatus, retryable
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimPrefix(path, "/"), body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func statusError(method, path string, code int, body string) error {
	if code == http.StatusNotFound {
		return backoff.Permanent(fmt.Errorf("%w: %s %s", ErrNotFound, method, path))
	}
	err := fmt.Errorf("%w: %s %s returned %d: %s", storage.ErrUnexpectedStatus, method, path, code, body)
	if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}
