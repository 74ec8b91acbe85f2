/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/humaidq/medtimeline/logging"
)

var logger = logging.Logger(logging.SourceBackend)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 64 << 20

// Client calls the Medical Timeline backend. It never retries and sets no
// timeout of its own; the backend bounds long requests.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type cookiesKey struct{}

// WithCookies attaches backend session cookies to the calls made with ctx.
func WithCookies(ctx context.Context, cookies []*http.Cookie) context.Context {
	if len(cookies) == 0 {
		return ctx
	}
	return context.WithValue(ctx, cookiesKey{}, cookies)
}

func cookiesFrom(ctx context.Context) []*http.Cookie {
	cookies, _ := ctx.Value(cookiesKey{}).([]*http.Cookie)
	return cookies
}

func (c *Client) newJSONRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}

type response struct {
	status  int
	header  http.Header
	cookies []*http.Cookie
	body    []byte
}

// send performs req and reads the whole body. Network and read failures are
// reported as transport errors.
func (c *Client) send(op, fallback string, req *http.Request) (*response, *Error) {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	for _, cookie := range cookiesFrom(req.Context()) {
		req.AddCookie(cookie)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("Backend request failed", "op", op, "request_id", requestID, "error", err)
		return nil, transportError(op, fallback, errUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		logger.Warn("Failed to read backend response", "op", op, "request_id", requestID, "error", err)
		return nil, transportError(op, fallback, errUnreachable, err)
	}

	logger.Debug("Backend request",
		"op", op,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &response{
		status:  resp.StatusCode,
		header:  resp.Header,
		cookies: resp.Cookies(),
		body:    body,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, op, fallback, path string, payload any) (*response, *Error) {
	req, err := c.newJSONRequest(ctx, path, payload)
	if err != nil {
		return nil, transportError(op, fallback, errUnreachable, err)
	}
	return c.send(op, fallback, req)
}

type errorBody struct {
	Error string `json:"error"`
}

func successStatus(status int) bool {
	return status >= 200 && status < 300
}

// decode classifies a JSON response and unmarshals it into out. A non-2xx
// status or an error field is a server error; an unparseable 2xx body is a
// transport error.
func decode(op, fallback string, resp *response, out any) *Error {
	var eb errorBody
	jsonErr := json.Unmarshal(resp.body, &eb)
	serverMessage := strings.TrimSpace(eb.Error)

	if !successStatus(resp.status) {
		return serverError(op, fallback, resp.status, serverMessage)
	}
	if jsonErr != nil {
		return transportError(op, fallback, errInvalidResponse, jsonErr)
	}
	if serverMessage != "" {
		return serverError(op, fallback, resp.status, serverMessage)
	}

	if out != nil {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return transportError(op, fallback, errInvalidResponse, err)
		}
	}

	return nil
}
