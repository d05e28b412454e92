package profiler

import (
	"context"
	"fmt"
)

// RunAll runs scenarios in order on d. each, if not nil, is called with every
// result as soon as its scenario finishes; a non-nil error from each stops the
// run. An abandoned scenario does not stop the run.
func RunAll(ctx context.Context, d *Driver, scenarios []Scenario, each func(*Result) error) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, sc := range scenarios {
		res, err := d.Run(ctx, sc)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		if each != nil {
			if err := each(res); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}
