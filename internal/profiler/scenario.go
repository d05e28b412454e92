package profiler

// DefaultResultsPath selects a top-level JSON array.
const DefaultResultsPath = "$"

// Scenario is one independently paginated query target.
type Scenario struct {
	Name   string            `json:"name" yaml:"name"`
	Path   string            `json:"path" yaml:"path"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`

	// ResultsPath locates the result array in the page body. Empty means
	// the body itself is the array.
	ResultsPath string `json:"resultsPath,omitempty" yaml:"resultsPath,omitempty"`
}

func (s Scenario) resultsPath() string {
	if s.ResultsPath == "" {
		return DefaultResultsPath
	}
	return s.ResultsPath
}
