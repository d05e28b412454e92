// Package config loads the profiler configuration from a scenario file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wesleyorama2/pageprof/internal/profiler"
)

// Environment variables read by ApplyEnv.
const (
	EnvEndpoint    = "PAGEPROF_ENDPOINT"
	EnvUser        = "PAGEPROF_USER"
	EnvPassword    = "PAGEPROF_PASSWORD"
	EnvTLSInsecure = "PAGEPROF_TLS_INSECURE"
	EnvFaultRate   = "PAGEPROF_FAULT_RATE"
)

// Config is the complete run configuration.
type Config struct {
	// Endpoint is the API root, e.g. https://console.example.com/api/v1.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	InsecureSkipVerify bool     `json:"insecureSkipVerify,omitempty" yaml:"insecureSkipVerify,omitempty"`
	Timeout            Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	PageSize   int `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	RetryLimit int `json:"retryLimit,omitempty" yaml:"retryLimit,omitempty"`

	// Backoff is the wait after a failed call. Nil takes the default; 0
	// retries immediately.
	Backoff *Duration `json:"backoff,omitempty" yaml:"backoff,omitempty"`

	// MaxAuthRefreshes caps consecutive 401 responses per scenario. Nil
	// takes the default; 0 disables the cap.
	MaxAuthRefreshes *int `json:"maxAuthRefreshes,omitempty" yaml:"maxAuthRefreshes,omitempty"`

	// Rate paces calls in requests per second. 0 means unpaced.
	Rate float64 `json:"rate,omitempty" yaml:"rate,omitempty"`

	// FaultRate is the probability of corrupting a call's path.
	FaultRate float64 `json:"faultRate,omitempty" yaml:"faultRate,omitempty"`

	// Estimates lists the result counts to project retrieval time for.
	Estimates []int `json:"estimates,omitempty" yaml:"estimates,omitempty"`

	Scenarios []Scenario `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`
}

// Scenario is one entry of the scenario list. Parameter values may be any
// scalar and are sent in their string form.
type Scenario struct {
	Name        string                 `json:"name" yaml:"name"`
	Path        string                 `json:"path" yaml:"path"`
	Params      map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	ResultsPath string                 `json:"resultsPath,omitempty" yaml:"resultsPath,omitempty"`
}

// ToScenario converts the entry to the form the driver runs.
func (s Scenario) ToScenario() profiler.Scenario {
	var params map[string]string
	if len(s.Params) > 0 {
		params = make(map[string]string, len(s.Params))
		for k, v := range s.Params {
			params[k] = fmt.Sprint(v)
		}
	}
	return profiler.Scenario{
		Name:        s.Name,
		Path:        strings.TrimPrefix(s.Path, "/"),
		Params:      params,
		ResultsPath: s.ResultsPath,
	}
}

// ProfilerScenarios converts every configured scenario, preserving order.
func (c *Config) ProfilerScenarios() []profiler.Scenario {
	out := make([]profiler.Scenario, 0, len(c.Scenarios))
	for _, s := range c.Scenarios {
		out = append(out, s.ToScenario())
	}
	return out
}

// DefaultScenarios are run when no scenario file is given.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "Registry image scan reports (full)", Path: "registry"},
		{Name: "Deployed image scan reports (full)", Path: "images"},
		{Name: "Container scan reports (full)", Path: "containers"},
	}
}

// DefaultEstimates are the result counts projected in the report.
func DefaultEstimates() []int {
	return []int{10000, 100000, 120000}
}

// Default returns a configuration with every default applied and the
// default scenario list.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	def := profiler.DefaultConfig()
	if c.PageSize == 0 {
		c.PageSize = def.PageSize
	}
	if c.RetryLimit == 0 {
		c.RetryLimit = def.RetryLimit
	}
	if c.Backoff == nil {
		d := Duration(def.Backoff)
		c.Backoff = &d
	}
	if c.MaxAuthRefreshes == nil {
		n := def.MaxAuthRefreshes
		c.MaxAuthRefreshes = &n
	}
	if len(c.Estimates) == 0 {
		c.Estimates = DefaultEstimates()
	}
	if len(c.Scenarios) == 0 {
		c.Scenarios = DefaultScenarios()
	}
}

// Driver returns the pagination settings. The rate limiter is left to the
// caller.
func (c *Config) Driver() profiler.Config {
	cfg := profiler.DefaultConfig()
	cfg.PageSize = c.PageSize
	cfg.RetryLimit = c.RetryLimit
	if c.Backoff != nil {
		cfg.Backoff = time.Duration(*c.Backoff)
	}
	if c.MaxAuthRefreshes != nil {
		cfg.MaxAuthRefreshes = *c.MaxAuthRefreshes
	}
	return cfg
}

// SortedEstimates returns the estimate sizes in ascending order.
func (c *Config) SortedEstimates() []int {
	out := append([]int(nil), c.Estimates...)
	sort.Ints(out)
	return out
}

// Duration is a time.Duration that can be unmarshaled from JSON/YAML strings.
type Duration time.Duration

// GetDuration returns the duration or a default if empty.
func (d Duration) GetDuration(defaultValue time.Duration) time.Duration {
	if d == 0 {
		return defaultValue
	}
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return d.set(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.set(s)
}

func (d *Duration) set(s string) error {
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}
