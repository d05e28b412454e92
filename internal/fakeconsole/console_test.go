package fakeconsole

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/pageprof/internal/auth"
	lhttp "github.com/wesleyorama2/pageprof/internal/http"
	"github.com/wesleyorama2/pageprof/internal/profiler"
)

func newTestConsole(t *testing.T, opts Options) (*Console, *lhttp.Client) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	if opts.Username == "" {
		opts.Username, opts.Password = "admin", "secret"
	}
	console := New(opts, logger)
	server := httptest.NewServer(console.Handler())
	t.Cleanup(server.Close)
	return console, lhttp.NewClient(lhttp.WithBaseURL(server.URL+APIPrefix), lhttp.WithTimeout(5*time.Second))
}

func login(t *testing.T, client *lhttp.Client, password string) (auth.Token, error) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	a := auth.NewAuthenticator(client, auth.Credentials{Username: "admin", Password: password}, auth.WithLogger(logger))
	return a.Authenticate(context.Background())
}

func get(t *testing.T, client *lhttp.Client, token, path string, params map[string]string) *lhttp.Response {
	t.Helper()
	resp, err := client.Do(context.Background(),
		lhttp.NewRequest("GET", path).WithBearerToken(token).WithQueryParams(params))
	require.NoError(t, err)
	return resp
}

func TestConsole_Authenticate(t *testing.T) {
	_, client := newTestConsole(t, Options{})

	token, err := login(t, client, "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Value)

	_, err = login(t, client, "wrong")
	assert.ErrorIs(t, err, auth.ErrAuthFailed)
}

func TestConsole_Paging(t *testing.T) {
	_, client := newTestConsole(t, Options{Totals: map[string]int{"images": 120}})
	token, err := login(t, client, "secret")
	require.NoError(t, err)

	tests := []struct {
		offset string
		want   int
	}{
		{"0", 50},
		{"50", 50},
		{"100", 20},
		{"150", 0},
	}
	for _, tt := range tests {
		resp := get(t, client, token.Value, "images", map[string]string{"offset": tt.offset})
		require.Equal(t, 200, resp.StatusCode)
		var items []map[string]string
		require.NoError(t, json.Unmarshal(resp.Body(), &items))
		assert.Len(t, items, tt.want, "offset %s", tt.offset)
	}

	resp := get(t, client, token.Value, "images", map[string]string{"offset": "10", "limit": "5"})
	var items []map[string]string
	require.NoError(t, json.Unmarshal(resp.Body(), &items))
	require.Len(t, items, 5)
	assert.Equal(t, "images-10", items[0]["_id"])
}

func TestConsole_Errors(t *testing.T) {
	_, client := newTestConsole(t, Options{Totals: map[string]int{"images": 1}})
	token, err := login(t, client, "secret")
	require.NoError(t, err)

	assert.Equal(t, 401, get(t, client, "bogus", "images", nil).StatusCode)
	assert.Equal(t, 401, get(t, client, "", "images", nil).StatusCode)
	assert.Equal(t, 404, get(t, client, token.Value, "images"+profiler.FaultSuffix, nil).StatusCode)
	assert.Equal(t, 400, get(t, client, token.Value, "images", map[string]string{"offset": "-1"}).StatusCode)
}

func TestConsole_TokenExpiry(t *testing.T) {
	console, client := newTestConsole(t, Options{Totals: map[string]int{"hosts": 3}, TokenTTL: 2})
	token, err := login(t, client, "secret")
	require.NoError(t, err)

	assert.Equal(t, 200, get(t, client, token.Value, "hosts", nil).StatusCode)
	assert.Equal(t, 200, get(t, client, token.Value, "hosts", nil).StatusCode)
	assert.Equal(t, 401, get(t, client, token.Value, "hosts", nil).StatusCode)
	assert.Equal(t, 3, console.Calls())
}

func TestConsole_FailureRate(t *testing.T) {
	_, client := newTestConsole(t, Options{Totals: map[string]int{"hosts": 3}, FailureRate: 1})
	token, err := login(t, client, "secret")
	require.NoError(t, err)
	assert.Equal(t, 503, get(t, client, token.Value, "hosts", nil).StatusCode)
}

// The profiler pages through the fake console, refreshing expired tokens.
func TestConsole_WithProfiler(t *testing.T) {
	_, client := newTestConsole(t, Options{Totals: map[string]int{"containers": 230}, TokenTTL: 2})
	logger, _ := test.NewNullLogger()

	authn := auth.NewAuthenticator(client, auth.Credentials{Username: "admin", Password: "secret"}, auth.WithLogger(logger))
	session, err := auth.NewSession(context.Background(), authn, logger)
	require.NoError(t, err)

	driver := profiler.NewDriver(
		profiler.NewHTTPExecutor(client, profiler.WithExecutorLogger(logger)),
		session, profiler.DefaultConfig(), profiler.WithLogger(logger))

	res, err := driver.Run(context.Background(), profiler.Scenario{Name: "Containers", Path: "containers"})
	require.NoError(t, err)
	assert.Equal(t, profiler.StateDoneSuccess, res.State)
	assert.Equal(t, 200, res.Offset)
	assert.Equal(t, 2, res.AuthRefreshes, "five pages with two calls per token")
	assert.Len(t, res.Records, 7)
}
