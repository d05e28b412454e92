package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wesleyorama2/pageprof/internal/profiler"
	"github.com/wesleyorama2/pageprof/internal/record"
)

// Exporter collects call and scenario metrics for one run. It is a
// record.Sink and is safe for concurrent use.
type Exporter struct {
	registry *prometheus.Registry

	callDuration                                      *prometheus.HistogramVec
	callCount, resultCount                            *prometheus.CounterVec
	scenarioSuccess, scenarioRetries, scenarioRefresh *prometheus.GaugeVec
	scenarioElapsed                                   *prometheus.GaugeVec
}

// NewExporter registers the standard metrics on a fresh registry. Every
// series carries runID as the run_id label.
func NewExporter(runID string) (*Exporter, error) {
	e := &Exporter{registry: prometheus.NewRegistry()}
	labels := prometheus.Labels{"run_id": runID}

	for _, m := range StandardMetrics {
		c := NewMetric(m, labels)
		if c == nil {
			return nil, fmt.Errorf("metric %s has unknown type %q", m.ID, m.Type)
		}
		if err := e.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric %s: %w", m.Name, err)
		}

		switch m.ID {
		case CallDuration.ID:
			e.callDuration = c.(*prometheus.HistogramVec)
		case CallCount.ID:
			e.callCount = c.(*prometheus.CounterVec)
		case ResultCount.ID:
			e.resultCount = c.(*prometheus.CounterVec)
		case ScenarioSuccess.ID:
			e.scenarioSuccess = c.(*prometheus.GaugeVec)
		case ScenarioRetries.ID:
			e.scenarioRetries = c.(*prometheus.GaugeVec)
		case ScenarioRefreshes.ID:
			e.scenarioRefresh = c.(*prometheus.GaugeVec)
		case ScenarioElapsed.ID:
			e.scenarioElapsed = c.(*prometheus.GaugeVec)
		}
	}
	return e, nil
}

// Write observes one call.
func (e *Exporter) Write(rec record.CallRecord) error {
	code := strconv.Itoa(rec.StatusCode)
	e.callDuration.WithLabelValues(rec.Scenario, code).Observe(rec.Duration.Seconds())
	e.callCount.WithLabelValues(rec.Scenario, code).Inc()
	e.resultCount.WithLabelValues(rec.Scenario).Add(float64(rec.ResultCount))
	return nil
}

// ObserveResult records how a scenario ended.
func (e *Exporter) ObserveResult(res *profiler.Result) {
	name := res.Scenario.Name
	success := 0.0
	if res.Succeeded() {
		success = 1
	}
	e.scenarioSuccess.WithLabelValues(name).Set(success)
	e.scenarioRetries.WithLabelValues(name).Set(float64(res.Retries))
	e.scenarioRefresh.WithLabelValues(name).Set(float64(res.AuthRefreshes))
	e.scenarioElapsed.WithLabelValues(name).Set(res.Elapsed.Seconds())
}

// Gatherer exposes the underlying registry.
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is written atomically.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
