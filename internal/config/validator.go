package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks a configuration after defaults, environment and flags have
// been applied. Returns nil if valid, or a *ValidationErrors holding every
// problem found.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	c.validateConnection(errs)
	c.checkSettings(errs)
	c.checkScenarios(errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (c *Config) validateConnection(errs *ValidationErrors) {
	if c.Endpoint == "" {
		errs.Add("endpoint", fmt.Sprintf("is required (set it in the file, with --endpoint or %s)", EnvEndpoint))
	} else if u, err := url.Parse(c.Endpoint); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs.Add("endpoint", fmt.Sprintf("must be an absolute http(s) URL, got %q", c.Endpoint))
	}
	if c.Username == "" {
		errs.Add("username", fmt.Sprintf("is required (set it in the file or with %s)", EnvUser))
	}
	if c.Password == "" {
		errs.Add("password", fmt.Sprintf("is required (set it in the file or with %s)", EnvPassword))
	}
}

// ValidateFile checks everything except the connection settings, which are
// usually supplied by the environment at run time.
func (c *Config) ValidateFile() error {
	errs := &ValidationErrors{}
	c.checkSettings(errs)
	c.checkScenarios(errs)
	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (c *Config) checkSettings(errs *ValidationErrors) {
	if c.PageSize <= 0 {
		errs.Add("pageSize", "must be positive")
	}
	if c.RetryLimit <= 0 {
		errs.Add("retryLimit", "must be positive")
	}
	if c.Backoff != nil && *c.Backoff < 0 {
		errs.Add("backoff", "must not be negative")
	}
	if c.Timeout < 0 {
		errs.Add("timeout", "must not be negative")
	}
	if c.MaxAuthRefreshes != nil && *c.MaxAuthRefreshes < 0 {
		errs.Add("maxAuthRefreshes", "must not be negative")
	}
	if c.Rate < 0 {
		errs.Add("rate", "must not be negative")
	}
	if c.FaultRate < 0 || c.FaultRate > 1 {
		errs.Add("faultRate", "must be between 0 and 1")
	}
	for i, n := range c.Estimates {
		if n <= 0 {
			errs.Add(fmt.Sprintf("estimates[%d]", i), "must be positive")
		}
	}
}

func (c *Config) checkScenarios(errs *ValidationErrors) {
	if len(c.Scenarios) == 0 {
		errs.Add("scenarios", "at least one scenario is required")
	}
	seen := make(map[string]bool, len(c.Scenarios))
	for i, sc := range c.Scenarios {
		validateScenario(i, sc, seen, errs)
	}
}

func validateScenario(i int, sc Scenario, seen map[string]bool, errs *ValidationErrors) {
	prefix := fmt.Sprintf("scenarios[%d]", i)
	if sc.Name == "" {
		errs.Add(prefix+".name", "is required")
	} else if seen[sc.Name] {
		errs.Add(prefix+".name", fmt.Sprintf("duplicate scenario name %q", sc.Name))
	}
	seen[sc.Name] = true

	if strings.TrimPrefix(sc.Path, "/") == "" {
		errs.Add(prefix+".path", "is required")
	}
	if sc.ResultsPath != "" && !strings.HasPrefix(sc.ResultsPath, "$") {
		errs.Add(prefix+".resultsPath", "must be a JSONPath starting with $")
	}
	keys := make([]string, 0, len(sc.Params))
	for key := range sc.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch sc.Params[key].(type) {
		case string, bool, int, int64, float64, uint64:
		default:
			errs.Add(fmt.Sprintf("%s.params.%s", prefix, key), "must be a scalar value")
		}
	}
}
