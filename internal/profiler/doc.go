// Package profiler drives paginated GET scenarios against a console API and
// records the timing and outcome of every call.
//
// A scenario runs as a small state machine. Each call either advances the
// page offset, finishes the scenario, refreshes the bearer token (401), or
// backs off and retries (any other non-200). Every attempt produces exactly
// one record.CallRecord, which is appended to the scenario's result and
// written to the configured record.Sink before the next state is chosen.
//
// Basic usage:
//
//	exec := profiler.NewHTTPExecutor(client)
//	driver := profiler.NewDriver(exec, session, profiler.DefaultConfig(),
//	    profiler.WithSink(csvWriter),
//	    profiler.WithLogger(log),
//	)
//	result, err := driver.Run(ctx, profiler.Scenario{Name: "Images", Path: "images"})
package profiler
