// Package stats aggregates call records into per-status latency statistics
// and throughput projections.
package stats

import (
	"errors"
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/wesleyorama2/pageprof/internal/record"
)

// ErrNoRecords is returned when there is nothing to summarize. A scenario
// always makes at least one call, so this indicates a caller bug.
var ErrNoRecords = errors.New("no call records to summarize")

// Histogram range: 1 microsecond to 1 hour, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3600000000
	histogramSigFigs = 3
)

// StatusStats describes every call that returned one status code.
type StatusStats struct {
	Calls int           `json:"calls" yaml:"calls"`
	Total time.Duration `json:"total" yaml:"total"`
	Min   time.Duration `json:"min" yaml:"min"`
	Mean  time.Duration `json:"mean" yaml:"mean"`
	Max   time.Duration `json:"max" yaml:"max"`
	P50   time.Duration `json:"p50" yaml:"p50"`
	P90   time.Duration `json:"p90" yaml:"p90"`
	P95   time.Duration `json:"p95" yaml:"p95"`
	P99   time.Duration `json:"p99" yaml:"p99"`
}

// Summary is the aggregate of one scenario's call records.
type Summary struct {
	Scenario      string              `json:"scenario" yaml:"scenario"`
	Path          string              `json:"path" yaml:"path"`
	PageSize      int                 `json:"pageSize" yaml:"pageSize"`
	TotalCalls    int                 `json:"totalCalls" yaml:"totalCalls"`
	TotalDuration time.Duration       `json:"totalDuration" yaml:"totalDuration"`
	TotalResults  int                 `json:"totalResults" yaml:"totalResults"`
	ByStatus      map[int]StatusStats `json:"byStatus" yaml:"byStatus"`
}

// Summarize groups records by status code. Min, mean and max are exact;
// percentiles come from an HDR histogram and carry its precision. records is
// not modified.
func Summarize(records []record.CallRecord, pageSize int) (*Summary, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	s := &Summary{
		Scenario: records[0].Scenario,
		Path:     records[0].Path,
		PageSize: pageSize,
		ByStatus: make(map[int]StatusStats),
	}

	hists := make(map[int]*hdrhistogram.Histogram)
	for _, rec := range records {
		s.TotalCalls++
		s.TotalDuration += rec.Duration
		s.TotalResults += rec.ResultCount

		st, seen := s.ByStatus[rec.StatusCode]
		if !seen || rec.Duration < st.Min {
			st.Min = rec.Duration
		}
		if rec.Duration > st.Max {
			st.Max = rec.Duration
		}
		st.Calls++
		st.Total += rec.Duration
		s.ByStatus[rec.StatusCode] = st

		hist, ok := hists[rec.StatusCode]
		if !ok {
			hist = hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
			hists[rec.StatusCode] = hist
		}
		// Out of range values cannot fail after clamping.
		_ = hist.RecordValue(clampMicros(rec.Duration))
	}

	for code, st := range s.ByStatus {
		st.Mean = st.Total / time.Duration(st.Calls)
		hist := hists[code]
		st.P50 = quantile(hist, 50)
		st.P90 = quantile(hist, 90)
		st.P95 = quantile(hist, 95)
		st.P99 = quantile(hist, 99)
		s.ByStatus[code] = st
	}
	return s, nil
}

func clampMicros(d time.Duration) int64 {
	us := d.Microseconds()
	if us < histogramMin {
		return histogramMin
	}
	if us > histogramMax {
		return histogramMax
	}
	return us
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

// Estimate projects the time needed to page through n results using the mean
// duration of successful calls. ok is false when no call succeeded.
func (s *Summary) Estimate(n int) (d time.Duration, ok bool) {
	st, found := s.ByStatus[200]
	if !found || st.Calls == 0 || s.PageSize <= 0 {
		return 0, false
	}
	return time.Duration(float64(st.Mean) * float64(n) / float64(s.PageSize)), true
}

// StatusCodes returns the observed status codes in ascending order.
func (s *Summary) StatusCodes() []int {
	codes := make([]int, 0, len(s.ByStatus))
	for code := range s.ByStatus {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// SuccessRate is the fraction of calls that returned 200.
func (s *Summary) SuccessRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.ByStatus[200].Calls) / float64(s.TotalCalls)
}
