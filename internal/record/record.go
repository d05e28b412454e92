// Package record defines the per-call record produced by the profiler and the
// sinks that receive it.
package record

import (
	"net/url"
	"sync"
	"time"
)

// CallRecord is the outcome of one HTTP call attempt. Records are created once
// per attempt, including retried and unauthorized attempts, and are not
// modified afterwards.
type CallRecord struct {
	Scenario    string            `json:"scenario" yaml:"scenario"`
	Path        string            `json:"path" yaml:"path"`
	Params      map[string]string `json:"params" yaml:"params"`
	StatusCode  int               `json:"statusCode" yaml:"statusCode"`
	Duration    time.Duration     `json:"duration" yaml:"duration"`
	ResultCount int               `json:"resultCount" yaml:"resultCount"`
	Timestamp   time.Time         `json:"timestamp" yaml:"timestamp"`

	// Attempt is the 1-based position of this call within its scenario.
	Attempt int `json:"attempt" yaml:"attempt"`

	// Err holds the transport error for calls that never got a status code.
	Err string `json:"error,omitempty" yaml:"error,omitempty"`
}

// TransportFailure reports whether the call failed before a response arrived.
func (r CallRecord) TransportFailure() bool {
	return r.StatusCode == 0
}

// EncodedParams renders the parameters as a sorted query string.
func (r CallRecord) EncodedParams() string {
	values := make(url.Values, len(r.Params))
	for k, v := range r.Params {
		values.Set(k, v)
	}
	return values.Encode()
}

// CloneParams returns a copy of params so a record never aliases the
// driver's working parameter map.
func CloneParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// Sink receives call records as they are produced.
type Sink interface {
	Write(rec CallRecord) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(rec CallRecord) error

func (f SinkFunc) Write(rec CallRecord) error { return f(rec) }

// Discard is a Sink that drops every record.
var Discard Sink = SinkFunc(func(CallRecord) error { return nil })

// Memory is an append-only in-memory Sink.
type Memory struct {
	mu      sync.Mutex
	records []CallRecord
}

func (m *Memory) Write(rec CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything written so far.
func (m *Memory) Records() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Len returns the number of records written.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// MultiSink fans a record out to every sink. All sinks are written even if
// one fails; the first error is returned.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(rec CallRecord) error {
		var first error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Write(rec); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
