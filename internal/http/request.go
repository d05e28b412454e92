package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request describes a call relative to the client's base URL.
type Request struct {
	Method string
	// Path is joined to the base URL path; a leading slash is ignored.
	Path        string
	QueryParams url.Values
	Headers     map[string]string
	// Body, when set, is sent as JSON.
	Body interface{}
}

// NewRequest creates a request for method and path.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:      method,
		Path:        path,
		QueryParams: make(url.Values),
		Headers:     make(map[string]string),
	}
}

// WithHeader sets a header.
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// WithBearerToken sets the Authorization header.
func (r *Request) WithBearerToken(token string) *Request {
	return r.WithHeader("Authorization", "Bearer "+token)
}

// WithQueryParam sets a query parameter, replacing any previous value.
func (r *Request) WithQueryParam(key, value string) *Request {
	r.QueryParams.Set(key, value)
	return r
}

// WithQueryParams sets every entry of params as a query parameter.
func (r *Request) WithQueryParams(params map[string]string) *Request {
	for key, value := range params {
		r.QueryParams.Set(key, value)
	}
	return r
}

// WithBody sets a value to be encoded as the JSON body.
func (r *Request) WithBody(body interface{}) *Request {
	r.Body = body
	return r
}

// URL resolves the request against baseURL. Query parameters already on the
// base URL are kept.
func (r *Request) URL(baseURL string) (*url.URL, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(r.Path, "/")

	query := u.Query()
	for key, values := range r.QueryParams {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	u.RawQuery = query.Encode()
	return u, nil
}

// Build creates the *http.Request bound to ctx.
func (r *Request) Build(ctx context.Context, baseURL string) (*http.Request, error) {
	u, err := r.URL(baseURL)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	return req, nil
}
