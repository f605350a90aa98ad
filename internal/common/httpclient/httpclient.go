// Package httpclient provides a small HTTP client for talking to a running specstudio
// server. Error responses in the standard envelope are decoded into HTTPError.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds a request when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// HTTPError represents an error response from the server with HTTP status code and message.
type HTTPError struct {
	StatusCode int    // HTTP status code of the error
	Message    string // Error message or response body
	Kind       string // Failure kind, when the server reported one
	Detail     string // Diagnostic text such as compiler output
}

// Error implements the error interface for HTTPError.
func (e *HTTPError) Error() string {
	if e.Kind != "" {
		return e.Kind + ": " + e.Message
	}
	return e.Message
}

// HTTPClient represents a client for making HTTP requests to a specstudio server.
type HTTPClient struct {
	serverURL  string
	httpClient *http.Client
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	DisableCertValidation bool // If true, skips SSL certificate validation
	Timeout               time.Duration
}

// NewClient creates a client for the server at serverURL.
func NewClient(serverURL string, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}
	if clientOpts.Timeout <= 0 {
		clientOpts.Timeout = DefaultTimeout
	}
	httpClient := &http.Client{Timeout: clientOpts.Timeout}
	if clientOpts.DisableCertValidation {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}
	return &HTTPClient{
		serverURL:  strings.TrimSuffix(serverURL, "/"),
		httpClient: httpClient,
	}
}

// RequestOptions contains options for making HTTP requests.
type RequestOptions struct {
	Method      string            // HTTP method (GET, POST)
	Path        string            // API endpoint path
	QueryParams map[string]string // Optional query parameters
	Body        []byte            // Optional request body
	ContentType string            // Defaults to application/json when Body is set
}

// DoRequest makes an HTTP request with the given options and returns the response body.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %v", err)
	}
	u.Path = path.Join(u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewReader(opts.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	if len(opts.Body) > 0 {
		ct := opts.ContentType
		if ct == "" {
			ct = "application/json"
		}
		req.Header.Set("Content-Type", ct)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		return nil, responseError(resp.StatusCode, body)
	}
	return body, nil
}

// Get issues a GET request for p.
func (c *HTTPClient) Get(ctx context.Context, p string, queryParams map[string]string) ([]byte, error) {
	return c.DoRequest(ctx, RequestOptions{
		Method:      http.MethodGet,
		Path:        p,
		QueryParams: queryParams,
	})
}

func responseError(status int, body []byte) *HTTPError {
	if gjson.ValidBytes(body) {
		env := gjson.ParseBytes(body)
		if msg := env.Get("error").String(); msg != "" {
			return &HTTPError{
				StatusCode: status,
				Message:    msg,
				Kind:       env.Get("kind").String(),
				Detail:     env.Get("detail").String(),
			}
		}
	}
	if status == http.StatusNotFound {
		return &HTTPError{
			StatusCode: status,
			Message:    "server doesn't implement this endpoint",
		}
	}
	return &HTTPError{
		StatusCode: status,
		Message:    strings.TrimSpace(string(body)),
	}
}
