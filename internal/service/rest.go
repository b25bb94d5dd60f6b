package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/toolrelay/toolrelay/internal/result"
)

const maxErrorBody = 300

// Option customizes an HTTP-backed adapter.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points an adapter at a different API root, e.g. a regional
// endpoint or a test server.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout sets the timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if o.httpClient == nil {
			o.httpClient = &http.Client{}
		}
		o.httpClient.Timeout = d
	}
}

func buildOptions(defaultBase string, opts []Option) options {
	o := options{baseURL: defaultBase}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return o
}

// restClient performs JSON requests against one provider and turns non-2xx
// responses into provider_error failures.
type restClient struct {
	provider string
	baseURL  string
	http     *http.Client
	header   http.Header
}

func newRESTClient(provider string, o options, header http.Header) *restClient {
	if header == nil {
		header = http.Header{}
	}
	return &restClient{provider: provider, baseURL: o.baseURL, http: o.httpClient, header: header}
}

// do sends in as the JSON body (when non-nil) and decodes the response into
// out (when non-nil). It returns the response headers on success.
func (c *restClient) do(ctx context.Context, method, path string, query url.Values, in, out any) (http.Header, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", c.provider, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		// *url.Error prints the full URL, and some providers take their key
		// in the query string.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%s: %s %s: %w", c.provider, method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", c.provider, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, result.ProviderFailure(c.provider, res.StatusCode,
			fmt.Sprintf("%s returned %d: %s", c.provider, res.StatusCode, errorText(raw)))
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", c.provider, err)
		}
	}
	return res.Header, nil
}

// errorText pulls the most useful message out of a provider error body.
func errorText(raw []byte) string {
	var body any
	if err := json.Unmarshal(raw, &body); err == nil {
		if msg := findMessage(body); msg != "" {
			return msg
		}
	}
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "empty response"
	}
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

func findMessage(v any) string {
	switch b := v.(type) {
	case map[string]any:
		for _, key := range []string{"message", "error_description", "detail", "error", "title", "errors"} {
			if msg := findMessage(b[key]); msg != "" {
				return msg
			}
		}
	case []any:
		if len(b) > 0 {
			return findMessage(b[0])
		}
	case string:
		return b
	}
	return ""
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
