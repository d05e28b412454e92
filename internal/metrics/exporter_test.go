package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/pageprof/internal/profiler"
	"github.com/wesleyorama2/pageprof/internal/record"
)

func gather(t *testing.T, e *Exporter) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := e.Gatherer().Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func labelsOf(m *dto.Metric) map[string]string {
	out := make(map[string]string)
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func find(t *testing.T, f *dto.MetricFamily, labels map[string]string) *dto.Metric {
	t.Helper()
	require.NotNil(t, f)
	for _, m := range f.GetMetric() {
		got := labelsOf(m)
		match := true
		for k, v := range labels {
			if got[k] != v {
				match = false
				break
			}
		}
		if match {
			return m
		}
	}
	t.Fatalf("no %s series with labels %v", f.GetName(), labels)
	return nil
}

func TestExporter_Write(t *testing.T) {
	e, err := NewExporter("run-1")
	require.NoError(t, err)

	for _, rec := range []record.CallRecord{
		{Scenario: "images", StatusCode: 200, Duration: 100 * time.Millisecond, ResultCount: 50},
		{Scenario: "images", StatusCode: 200, Duration: 300 * time.Millisecond, ResultCount: 7},
		{Scenario: "images", StatusCode: 503, Duration: 2 * time.Second},
	} {
		require.NoError(t, e.Write(rec))
	}

	families := gather(t, e)

	ok := find(t, families["pageprof_calls_total"], map[string]string{"scenario": "images", "code": "200", "run_id": "run-1"})
	assert.Equal(t, 2.0, ok.GetCounter().GetValue())
	failed := find(t, families["pageprof_calls_total"], map[string]string{"scenario": "images", "code": "503"})
	assert.Equal(t, 1.0, failed.GetCounter().GetValue())

	results := find(t, families["pageprof_results_total"], map[string]string{"scenario": "images"})
	assert.Equal(t, 57.0, results.GetCounter().GetValue())

	hist := find(t, families["pageprof_call_duration_seconds"], map[string]string{"scenario": "images", "code": "200"})
	assert.Equal(t, uint64(2), hist.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.4, hist.GetHistogram().GetSampleSum(), 1e-9)
}

func TestExporter_ObserveResult(t *testing.T) {
	e, err := NewExporter("run-2")
	require.NoError(t, err)

	e.ObserveResult(&profiler.Result{
		Scenario:      profiler.Scenario{Name: "registry"},
		State:         profiler.StateDoneFailure,
		Retries:       10,
		AuthRefreshes: 1,
		Elapsed:       45 * time.Second,
	})
	e.ObserveResult(&profiler.Result{
		Scenario: profiler.Scenario{Name: "hosts"},
		State:    profiler.StateDoneSuccess,
	})

	families := gather(t, e)
	assert.Equal(t, 0.0, find(t, families["pageprof_scenario_success"], map[string]string{"scenario": "registry"}).GetGauge().GetValue())
	assert.Equal(t, 1.0, find(t, families["pageprof_scenario_success"], map[string]string{"scenario": "hosts"}).GetGauge().GetValue())
	assert.Equal(t, 10.0, find(t, families["pageprof_scenario_retries"], map[string]string{"scenario": "registry"}).GetGauge().GetValue())
	assert.Equal(t, 1.0, find(t, families["pageprof_scenario_token_refreshes"], map[string]string{"scenario": "registry"}).GetGauge().GetValue())
	assert.Equal(t, 45.0, find(t, families["pageprof_scenario_elapsed_seconds"], map[string]string{"scenario": "registry"}).GetGauge().GetValue())
}

func TestExporter_WriteTextfile(t *testing.T) {
	e, err := NewExporter("run-3")
	require.NoError(t, err)
	require.NoError(t, e.Write(record.CallRecord{Scenario: "images", StatusCode: 200, Duration: time.Second, ResultCount: 3}))

	path := filepath.Join(t.TempDir(), "pageprof.prom")
	require.NoError(t, e.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE pageprof_calls_total counter")
	assert.Contains(t, text, `pageprof_calls_total{code="200",run_id="run-3",scenario="images"} 1`)
	assert.Contains(t, text, `pageprof_results_total{run_id="run-3",scenario="images"} 3`)
}

func TestExporter_WriteTextfileBadPath(t *testing.T) {
	e, err := NewExporter("run-4")
	require.NoError(t, err)
	assert.Error(t, e.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")))
}

func TestNewMetric_UnknownType(t *testing.T) {
	assert.Nil(t, NewMetric(&Metric{Name: "x", Type: "bogus"}, nil))
}
