// Package apiclient talks to the storefront REST API. Every path is
// relative to the configured base URL.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// ErrTransport marks a request that never got an HTTP response.
var ErrTransport = errors.New("transport failure")

// TokenSource supplies the anti-forgery token for state-changing calls.
type TokenSource interface {
	Token() string
}

type Client struct {
	base string
	http *http.Client
	csrf TokenSource
	log  *zap.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithLogger(l *zap.Logger) Option      { return func(c *Client) { c.log = l } }
func WithCSRF(ts TokenSource) Option       { return func(c *Client) { c.csrf = ts } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetToken sets the bearer credential sent on every call.
func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

func (c *Client) ClearToken() { c.SetToken("") }

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type callOpts struct {
	bearer *string
	csrf   bool
}

type CallOption func(*callOpts)

// Bearer replaces the client credential for one call. An empty token sends none.
func Bearer(tok string) CallOption { return func(o *callOpts) { o.bearer = &tok } }

// CSRF attaches the X-CSRF-Token header.
func CSRF() CallOption { return func(o *callOpts) { o.csrf = true } }

func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do sends one request. A non-2xx status or a body with "success": false
// comes back as *APIError; anything else that goes wrong is a transport error.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...CallOption) error {
	var o callOpts
	for _, fn := range opts {
		fn(&o)
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tok := c.Token()
	if o.bearer != nil {
		tok = *o.bearer
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if o.csrf && c.csrf != nil {
		req.Header.Set("X-CSRF-Token", c.csrf.Token())
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("api transport", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	var env struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &env)

	if res.StatusCode < 200 || res.StatusCode > 299 || (env.Success != nil && !*env.Success) {
		apiErr := &APIError{StatusCode: res.StatusCode, Message: env.Message, Method: method, Path: path}
		c.log.Warn("api rejected", zap.String("method", method), zap.String("path", path),
			zap.Int("status", res.StatusCode), zap.String("message", env.Message))
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

// APIError is a response the server answered but did not accept.
type APIError struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.StatusCode)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsTransport reports whether err came from a call that got no response.
// Rejections and undecodable bodies are not transport errors.
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

// Message picks the server-provided message for display, else fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
