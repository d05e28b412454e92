package http

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_URL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		path    string
		params  map[string]string
		want    string
	}{
		{
			name:    "API prefix",
			baseURL: "https://console.example.com/api/v1",
			path:    "registry",
			params:  map[string]string{"offset": "50"},
			want:    "https://console.example.com/api/v1/registry?offset=50",
		},
		{
			name:    "trailing slash on base and leading slash on path",
			baseURL: "https://console.example.com/api/v1/",
			path:    "/images",
			want:    "https://console.example.com/api/v1/images",
		},
		{
			name:    "host only",
			baseURL: "http://localhost:8080",
			path:    "containers",
			params:  map[string]string{"offset": "0", "compact": "true"},
			want:    "http://localhost:8080/containers?compact=true&offset=0",
		},
		{
			name:    "base query is kept",
			baseURL: "https://console.example.com/api/v1?project=Central",
			path:    "hosts",
			params:  map[string]string{"offset": "100"},
			want:    "https://console.example.com/api/v1/hosts?offset=100&project=Central",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewRequest("GET", tt.path).WithQueryParams(tt.params).URL(tt.baseURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestRequest_URLInvalidBase(t *testing.T) {
	_, err := NewRequest("GET", "images").URL("http://[::1")
	assert.Error(t, err)
}

func TestRequest_Build(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := NewRequest("POST", "authenticate").
		WithBody(map[string]string{"username": "admin", "password": "secret"}).
		WithHeader("X-Trace", "abc")

	httpReq, err := req.Build(ctx, "https://console.example.com/api/v1")
	require.NoError(t, err)

	assert.Equal(t, "POST", httpReq.Method)
	assert.Equal(t, "https://console.example.com/api/v1/authenticate", httpReq.URL.String())
	assert.Equal(t, "application/json", httpReq.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", httpReq.Header.Get("Accept"))
	assert.Equal(t, "abc", httpReq.Header.Get("X-Trace"))
	assert.Equal(t, ctx, httpReq.Context())

	data, err := io.ReadAll(httpReq.Body)
	require.NoError(t, err)
	var creds map[string]string
	require.NoError(t, json.Unmarshal(data, &creds))
	assert.Equal(t, "admin", creds["username"])
}

func TestRequest_BuildWithoutBody(t *testing.T) {
	httpReq, err := NewRequest("GET", "images").WithBearerToken("tok").Build(context.Background(), "http://localhost")
	require.NoError(t, err)
	assert.Empty(t, httpReq.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer tok", httpReq.Header.Get("Authorization"))
}

func TestRequest_BuildUnencodableBody(t *testing.T) {
	_, err := NewRequest("POST", "authenticate").WithBody(make(chan int)).Build(context.Background(), "http://localhost")
	assert.ErrorContains(t, err, "failed to encode request body")
}

func TestRequest_QueryParamsReplace(t *testing.T) {
	req := NewRequest("GET", "images").
		WithQueryParam("offset", "0").
		WithQueryParams(map[string]string{"offset": "50"})
	assert.Equal(t, []string{"50"}, req.QueryParams["offset"])
}
