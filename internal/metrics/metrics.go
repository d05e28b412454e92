// Package metrics exports call records and scenario outcomes in the
// Prometheus text format so runs can be collected by node_exporter's
// textfile collector or pushed by a wrapper script.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported metric name.
const Namespace = "pageprof"

// Metric describes one exported collector.
type Metric struct {
	ID          string
	Name        string
	Description string
	Type        string
	Args        []string
}

var CallDuration = &Metric{
	ID:          "callDuration",
	Name:        "call_duration_seconds",
	Description: "Round-trip time of each API call, partitioned by scenario and status code.",
	Type:        "histogram_vec",
	Args:        []string{"scenario", "code"},
}

var CallCount = &Metric{
	ID:          "callCount",
	Name:        "calls_total",
	Description: "How many API calls were made, partitioned by scenario and status code.",
	Type:        "counter_vec",
	Args:        []string{"scenario", "code"},
}

var ResultCount = &Metric{
	ID:          "resultCount",
	Name:        "results_total",
	Description: "How many results were retrieved per scenario.",
	Type:        "counter_vec",
	Args:        []string{"scenario"},
}

var ScenarioSuccess = &Metric{
	ID:          "scenarioSuccess",
	Name:        "scenario_success",
	Description: "1 if the scenario reached its last page, 0 if it was abandoned.",
	Type:        "gauge_vec",
	Args:        []string{"scenario"},
}

var ScenarioRetries = &Metric{
	ID:          "scenarioRetries",
	Name:        "scenario_retries",
	Description: "Consecutive failed calls when the scenario ended.",
	Type:        "gauge_vec",
	Args:        []string{"scenario"},
}

var ScenarioRefreshes = &Metric{
	ID:          "scenarioRefreshes",
	Name:        "scenario_token_refreshes",
	Description: "Successful token refreshes during the scenario.",
	Type:        "gauge_vec",
	Args:        []string{"scenario"},
}

var ScenarioElapsed = &Metric{
	ID:          "scenarioElapsed",
	Name:        "scenario_elapsed_seconds",
	Description: "Wall time of the scenario including backoff.",
	Type:        "gauge_vec",
	Args:        []string{"scenario"},
}

var StandardMetrics = []*Metric{
	CallDuration,
	CallCount,
	ResultCount,
	ScenarioSuccess,
	ScenarioRetries,
	ScenarioRefreshes,
	ScenarioElapsed,
}

// callDurationBuckets covers fast list calls up to multi-second report pages.
var callDurationBuckets = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewMetric associates a prometheus.Collector based on Metric.Type. It
// returns nil for an unknown type.
func NewMetric(m *Metric, constLabels prometheus.Labels) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   Namespace,
				Name:        m.Name,
				Help:        m.Description,
				ConstLabels: constLabels,
			},
			m.Args,
		)
	case "gauge_vec":
		metric = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   Namespace,
				Name:        m.Name,
				Help:        m.Description,
				ConstLabels: constLabels,
			},
			m.Args,
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   Namespace,
				Name:        m.Name,
				Help:        m.Description,
				ConstLabels: constLabels,
				Buckets:     callDurationBuckets,
			},
			m.Args,
		)
	}
	return metric
}
