package http

import (
	"net/http"
	"time"
)

// Response represents a fully read HTTP response
type Response struct {
	StatusCode   int
	Status       string
	Headers      http.Header
	ResponseTime time.Duration
	body         []byte
}

// NewResponse builds a Response from already-read parts.
func NewResponse(statusCode int, body []byte, responseTime time.Duration) *Response {
	return &Response{
		StatusCode:   statusCode,
		Status:       http.StatusText(statusCode),
		Headers:      make(http.Header),
		ResponseTime: responseTime,
		body:         body,
	}
}

// Body returns the response body
func (r *Response) Body() []byte {
	return r.body
}

// GetBodyAsString returns the response body as a string
func (r *Response) GetBodyAsString() string {
	return string(r.body)
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsUnauthorized returns true for a 401 response
func (r *Response) IsUnauthorized() bool {
	return r.StatusCode == http.StatusUnauthorized
}
