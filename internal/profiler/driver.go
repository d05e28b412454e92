package profiler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/wesleyorama2/pageprof/internal/clock"
	"github.com/wesleyorama2/pageprof/internal/record"
)

// Config controls pagination and retry behavior.
type Config struct {
	// PageSize is the maximum number of results per page. A successful page
	// with fewer results is the last one.
	PageSize int

	// RetryLimit is the number of consecutive failed calls after which a
	// scenario is abandoned.
	RetryLimit int

	// Backoff is the fixed wait after a failed call.
	Backoff time.Duration

	// MaxAuthRefreshes caps consecutive 401 responses. Zero means no cap.
	MaxAuthRefreshes int

	// OffsetParam is the query parameter carrying the page offset.
	OffsetParam string

	// Limiter paces calls when set.
	Limiter *rate.Limiter
}

// DefaultConfig pages 50 results at a time, retries 10 times 5s apart and
// caps consecutive token refreshes at five.
func DefaultConfig() Config {
	return Config{
		PageSize:         50,
		RetryLimit:       10,
		Backoff:          5 * time.Second,
		MaxAuthRefreshes: 5,
		OffsetParam:      "offset",
	}
}

// TokenSource provides the bearer token and replaces it on demand.
type TokenSource interface {
	Token() string
	// Refresh replaces the token if it still equals stale.
	Refresh(ctx context.Context, stale string) error
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario      Scenario
	Records       []record.CallRecord
	State         State
	Retries       int
	AuthRefreshes int
	// Unauthorized is the number of consecutive 401s at the end of the run.
	// It exceeds MaxAuthRefreshes when the scenario was abandoned for them.
	Unauthorized int
	Offset       int
	Started       time.Time
	Elapsed       time.Duration
}

// Succeeded reports whether the scenario reached the last page.
func (r *Result) Succeeded() bool {
	return r.State == StateDoneSuccess
}

// Driver runs scenarios one call at a time.
type Driver struct {
	exec         Executor
	tokens       TokenSource
	cfg          Config
	clock        clock.Clock
	sink         record.Sink
	log          logrus.FieldLogger
	onTransition func(Transition)
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithClock sets the clock used for backoff and record timestamps.
func WithClock(c clock.Clock) DriverOption {
	return func(d *Driver) { d.clock = c }
}

// WithSink sets where call records are written as they are produced.
func WithSink(s record.Sink) DriverOption {
	return func(d *Driver) { d.sink = s }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logrus.FieldLogger) DriverOption {
	return func(d *Driver) { d.log = l }
}

// WithTransitionHook registers a callback invoked on every state change.
func WithTransitionHook(fn func(Transition)) DriverOption {
	return func(d *Driver) { d.onTransition = fn }
}

// NewDriver creates a Driver. A zero PageSize, RetryLimit or OffsetParam takes
// its default; a zero Backoff or MaxAuthRefreshes is kept as given.
func NewDriver(exec Executor, tokens TokenSource, cfg Config, opts ...DriverOption) *Driver {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = def.RetryLimit
	}
	if cfg.OffsetParam == "" {
		cfg.OffsetParam = def.OffsetParam
	}

	d := &Driver{
		exec:   exec,
		tokens: tokens,
		cfg:    cfg,
		clock:  clock.RealClock{},
		sink:   record.Discard,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the effective configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// scenarioRun is the mutable state of one Run call.
type scenarioRun struct {
	sc      Scenario
	state   State
	offset  int
	retries int
	// unauthorized counts 401 responses since the last other response.
	unauthorized int
	result       *Result
	log          logrus.FieldLogger
}

// Run pages through sc until the last page or until the retry budget is
// spent. Abandoning a scenario is not an error: the returned Result holds
// every record collected so far. An error is returned only if ctx ends, in
// which case the partial Result is returned as well.
func (d *Driver) Run(ctx context.Context, sc Scenario) (*Result, error) {
	run := &scenarioRun{
		sc:    sc,
		state: StateRunning,
		result: &Result{
			Scenario: sc,
			Started:  d.clock.Now(),
		},
		log: d.log.WithFields(logrus.Fields{"scenario": sc.Name, "path": sc.Path}),
	}
	run.log.WithField("params", sc.Params).Info("starting scenario")

	params := record.CloneParams(sc.Params)
	err := d.loop(ctx, run, params)

	run.result.State = run.state
	run.result.Retries = run.retries
	run.result.Unauthorized = run.unauthorized
	run.result.Offset = run.offset
	run.result.Elapsed = d.clock.Since(run.result.Started)

	run.log.WithFields(logrus.Fields{
		"state": run.state.String(),
		"calls": len(run.result.Records),
	}).Info("scenario finished")
	return run.result, err
}

func (d *Driver) loop(ctx context.Context, run *scenarioRun, params map[string]string) error {
	for !run.state.Terminal() {
		if d.cfg.Limiter != nil {
			if err := d.cfg.Limiter.Wait(ctx); err != nil {
				return err
			}
		}

		params[d.cfg.OffsetParam] = strconv.Itoa(run.offset)
		token := d.tokens.Token()

		out, err := d.exec.Execute(ctx, run.sc, token, record.CloneParams(params))
		if err != nil {
			return err
		}
		d.record(run, params, out)

		switch {
		case out.StatusCode == http.StatusUnauthorized:
			if err := d.handleUnauthorized(ctx, run, token); err != nil {
				return err
			}
		case out.StatusCode != http.StatusOK:
			if err := d.handleFailure(ctx, run, out.StatusCode); err != nil {
				return err
			}
		default:
			d.handleSuccess(run, out.ResultCount)
		}
	}
	return nil
}

func (d *Driver) record(run *scenarioRun, params map[string]string, out Outcome) {
	rec := record.CallRecord{
		Scenario:    run.sc.Name,
		Path:        run.sc.Path,
		Params:      record.CloneParams(params),
		StatusCode:  out.StatusCode,
		Duration:    out.Duration,
		ResultCount: out.ResultCount,
		Timestamp:   d.clock.Now(),
		Attempt:     len(run.result.Records) + 1,
	}
	if out.Err != nil {
		rec.Err = out.Err.Error()
	}
	run.result.Records = append(run.result.Records, rec)

	if err := d.sink.Write(rec); err != nil {
		run.log.WithError(err).Error("failed to write call record")
	}
}

func (d *Driver) handleUnauthorized(ctx context.Context, run *scenarioRun, stale string) error {
	run.unauthorized++
	if d.cfg.MaxAuthRefreshes > 0 && run.unauthorized > d.cfg.MaxAuthRefreshes {
		run.log.WithField("consecutive_401", run.unauthorized).
			Error("credentials keep being rejected, abandoning scenario")
		d.transition(run, StateDoneFailure, http.StatusUnauthorized)
		return nil
	}

	d.transition(run, StateRefreshingToken, http.StatusUnauthorized)
	run.log.Info("got 401, refreshing token")
	if err := d.tokens.Refresh(ctx, stale); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		run.log.WithError(err).Warn("token refresh failed, will retry on next 401")
	} else {
		run.result.AuthRefreshes++
	}
	d.transition(run, StateRunning, http.StatusUnauthorized)
	return nil
}

func (d *Driver) handleFailure(ctx context.Context, run *scenarioRun, status int) error {
	run.unauthorized = 0
	run.retries++
	if run.retries >= d.cfg.RetryLimit {
		run.log.WithFields(logrus.Fields{"status": status, "retries": run.retries}).
			Error("retry limit reached, abandoning scenario")
		d.transition(run, StateDoneFailure, status)
		return nil
	}

	d.transition(run, StateRetryBackoff, status)
	run.log.WithFields(logrus.Fields{"status": status, "retries": run.retries}).
		Warn("call failed, backing off")
	if err := d.clock.Sleep(ctx, d.cfg.Backoff); err != nil {
		return err
	}
	d.transition(run, StateRunning, status)
	return nil
}

func (d *Driver) handleSuccess(run *scenarioRun, count int) {
	run.unauthorized = 0
	run.retries = 0
	if count < d.cfg.PageSize {
		run.log.WithField("result_count", count).Debug("short page, scenario complete")
		d.transition(run, StateDoneSuccess, http.StatusOK)
		return
	}
	run.offset += d.cfg.PageSize
	run.log.WithField("offset", run.offset).Debug("full page, advancing offset")
}

func (d *Driver) transition(run *scenarioRun, to State, status int) {
	from := run.state
	run.state = to
	run.log.WithFields(logrus.Fields{
		"from":   from.String(),
		"to":     to.String(),
		"status": status,
		"offset": run.offset,
	}).Debug("state transition")
	if d.onTransition != nil {
		d.onTransition(Transition{
			Scenario:   run.sc.Name,
			From:       from,
			To:         to,
			StatusCode: status,
			Offset:     run.offset,
			Retries:    run.retries,
		})
	}
}
