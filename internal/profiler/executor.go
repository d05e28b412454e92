package profiler

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/pageprof/internal/clock"
	lhttp "github.com/wesleyorama2/pageprof/internal/http"
	"github.com/wesleyorama2/pageprof/pkg/jsonpath"
)

// Outcome is the result of a single call.
type Outcome struct {
	// StatusCode is 0 when the request failed before a response arrived.
	StatusCode  int
	Duration    time.Duration
	ResultCount int
	// Err is the transport error, if any.
	Err error
}

// Executor issues one authenticated page request.
//
// Only context cancellation is returned as an error. Transport failures are
// reported through Outcome so the driver can retry them.
type Executor interface {
	Execute(ctx context.Context, sc Scenario, token string, params map[string]string) (Outcome, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, sc Scenario, token string, params map[string]string) (Outcome, error)

func (f ExecutorFunc) Execute(ctx context.Context, sc Scenario, token string, params map[string]string) (Outcome, error) {
	return f(ctx, sc, token, params)
}

// HTTPExecutor executes calls with an internal/http Client.
type HTTPExecutor struct {
	client *lhttp.Client
	faults FaultInjector
	clock  clock.Clock
	log    logrus.FieldLogger
}

// ExecutorOption configures an HTTPExecutor.
type ExecutorOption func(*HTTPExecutor)

// WithFaultInjector enables synthetic failures.
func WithFaultInjector(f FaultInjector) ExecutorOption {
	return func(e *HTTPExecutor) { e.faults = f }
}

// WithExecutorClock sets the clock used to time transport failures. It should
// be the same clock the client uses.
func WithExecutorClock(c clock.Clock) ExecutorOption {
	return func(e *HTTPExecutor) { e.clock = c }
}

// WithExecutorLogger sets the diagnostic logger.
func WithExecutorLogger(l logrus.FieldLogger) ExecutorOption {
	return func(e *HTTPExecutor) { e.log = l }
}

// NewHTTPExecutor creates an executor. The client's base URL is the API root.
func NewHTTPExecutor(client *lhttp.Client, opts ...ExecutorOption) *HTTPExecutor {
	e := &HTTPExecutor{
		client: client,
		clock:  clock.RealClock{},
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute sends GET {base}/{path}?{params} with the bearer token. Results are
// counted only for 2xx responses; a body that is not a JSON array at the
// scenario's results path counts as zero results.
func (e *HTTPExecutor) Execute(ctx context.Context, sc Scenario, token string, params map[string]string) (Outcome, error) {
	path := sc.Path
	if e.faults != nil {
		path = e.faults.Inject(path)
	}

	log := e.log.WithFields(logrus.Fields{"scenario": sc.Name, "path": path})
	log.WithField("params", params).Debug("about to call API")

	req := lhttp.NewRequest(http.MethodGet, path).
		WithBearerToken(token).
		WithQueryParams(params)

	start := e.clock.Now()
	resp, err := e.client.Do(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		log.WithError(err).Warn("request failed without a response")
		return Outcome{Duration: e.clock.Since(start), Err: err}, nil
	}

	if resp.IsUnauthorized() {
		log.Debug("token rejected")
	}

	// Error bodies are never pages.
	count := 0
	if resp.IsSuccess() {
		count, err = jsonpath.Count(resp.Body(), sc.resultsPath())
		if err != nil {
			log.WithError(err).WithField("status", resp.StatusCode).
				Debug("could not count results, setting result count to 0")
			count = 0
		}
	}

	return Outcome{
		StatusCode:  resp.StatusCode,
		Duration:    resp.ResponseTime,
		ResultCount: count,
	}, nil
}
