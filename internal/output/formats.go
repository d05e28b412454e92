package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/pageprof/internal/profiler"
	"github.com/wesleyorama2/pageprof/internal/stats"
)

// OutputFormat represents the available report formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs in JSON format
	FormatJSON OutputFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML OutputFormat = "yaml"
)

// ParseFormat validates a format name. The empty string means text.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want text, json or yaml)", s)
	}
}

// EstimateData is one throughput projection.
type EstimateData struct {
	Results  int           `json:"results" yaml:"results"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// ScenarioReport is everything reported about one scenario.
type ScenarioReport struct {
	Scenario      string         `json:"scenario" yaml:"scenario"`
	Path          string         `json:"path" yaml:"path"`
	State         string         `json:"state" yaml:"state"`
	Retries       int            `json:"retries" yaml:"retries"`
	AuthRefreshes int            `json:"authRefreshes" yaml:"authRefreshes"`
	Unauthorized  int            `json:"consecutiveUnauthorized,omitempty" yaml:"consecutiveUnauthorized,omitempty"`
	Elapsed       time.Duration  `json:"elapsed" yaml:"elapsed"`
	Summary       *stats.Summary `json:"summary" yaml:"summary"`
	Estimates     []EstimateData `json:"estimates,omitempty" yaml:"estimates,omitempty"`
}

// NewScenarioReport combines a driver result with its summary. Estimates are
// only included when the summary can produce them.
func NewScenarioReport(res *profiler.Result, summary *stats.Summary, estimateSizes []int) *ScenarioReport {
	r := &ScenarioReport{
		Scenario:      res.Scenario.Name,
		Path:          res.Scenario.Path,
		State:         res.State.String(),
		Retries:       res.Retries,
		AuthRefreshes: res.AuthRefreshes,
		Unauthorized:  res.Unauthorized,
		Elapsed:       res.Elapsed,
		Summary:       summary,
	}
	for _, n := range estimateSizes {
		if d, ok := summary.Estimate(n); ok {
			r.Estimates = append(r.Estimates, EstimateData{Results: n, Duration: d})
		}
	}
	return r
}

// Succeeded reports whether the scenario reached its last page.
func (r *ScenarioReport) Succeeded() bool {
	return r.State == profiler.StateDoneSuccess.String()
}

// RunReport is the footer of a run and, for structured formats, the whole
// document.
type RunReport struct {
	RunID     string            `json:"runId" yaml:"runId"`
	Endpoint  string            `json:"endpoint" yaml:"endpoint"`
	Started   time.Time         `json:"started" yaml:"started"`
	Elapsed   time.Duration     `json:"elapsed" yaml:"elapsed"`
	Scenarios []*ScenarioReport `json:"scenarios" yaml:"scenarios"`
	Outputs   map[string]string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Failed returns the number of abandoned scenarios.
func (r *RunReport) Failed() int {
	n := 0
	for _, s := range r.Scenarios {
		if !s.Succeeded() {
			n++
		}
	}
	return n
}

// Reporter renders scenario reports as they complete and the run at the end.
type Reporter interface {
	WriteScenario(r *ScenarioReport) error
	WriteRun(r *RunReport) error
}

// NewReporter returns the reporter for format. scheme is only used by the
// text reporter and may be nil.
func NewReporter(format OutputFormat, w io.Writer, scheme *ColorScheme) (Reporter, error) {
	switch format {
	case FormatText, "":
		if scheme == nil {
			scheme = NoColorScheme()
		}
		return &TextReporter{w: w, colors: scheme}, nil
	case FormatJSON:
		return &JSONReporter{w: w, Pretty: true}, nil
	case FormatYAML:
		return &YAMLReporter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// JSONReporter writes the whole run as one JSON document.
type JSONReporter struct {
	w      io.Writer
	Pretty bool
}

// WriteScenario is a no-op; scenarios are part of the run document.
func (j *JSONReporter) WriteScenario(*ScenarioReport) error { return nil }

func (j *JSONReporter) WriteRun(r *RunReport) error {
	enc := json.NewEncoder(j.w)
	if j.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

// YAMLReporter writes the whole run as one YAML document.
type YAMLReporter struct {
	w io.Writer
}

// WriteScenario is a no-op; scenarios are part of the run document.
func (y *YAMLReporter) WriteScenario(*ScenarioReport) error { return nil }

func (y *YAMLReporter) WriteRun(r *RunReport) error {
	enc := yaml.NewEncoder(y.w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode YAML report: %w", err)
	}
	return enc.Close()
}
