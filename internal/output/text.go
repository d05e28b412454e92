package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// FormatElapsed renders d as "Hh Mm S.Ss". Hours are shown only when
// non-zero; minutes when either they or the hours are.
func FormatElapsed(d time.Duration) string {
	seconds := d.Seconds()
	h := int(seconds / 3600)
	m := int(seconds/60) % 60
	s := seconds - float64(h*3600+m*60)

	var b strings.Builder
	if h > 0 {
		fmt.Fprintf(&b, "%dh ", h)
	}
	if m > 0 || h > 0 {
		fmt.Fprintf(&b, "%dm ", m)
	}
	fmt.Fprintf(&b, "%.1fs", s)
	return b.String()
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}

func formatResults(n int) string {
	if n%1000 == 0 && n > 0 {
		return fmt.Sprintf("%dk", n/1000)
	}
	return fmt.Sprintf("%d", n)
}

// TextReporter writes the human-readable report.
type TextReporter struct {
	w      io.Writer
	colors *ColorScheme
}

func (t *TextReporter) WriteScenario(r *ScenarioReport) error {
	var b strings.Builder
	rule := strings.Repeat("-", 10+len(r.Scenario))
	c := t.colors

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Scenario: %s\n", c.Title.Sprint(r.Scenario))
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "API path: /%s\n", strings.TrimPrefix(r.Path, "/"))
	fmt.Fprintf(&b, "Outcome: %s\n", outcome(r, c))
	if r.AuthRefreshes > 0 {
		fmt.Fprintf(&b, "Token refreshes: %d\n", r.AuthRefreshes)
	}

	s := r.Summary
	fmt.Fprintf(&b, "Total API calls made: %d\n", s.TotalCalls)
	fmt.Fprintf(&b, "Total API response duration: %s\n", FormatElapsed(s.TotalDuration))
	fmt.Fprintf(&b, "Total results retrieved: %d\n", s.TotalResults)
	for _, e := range r.Estimates {
		fmt.Fprintf(&b, "Estimated time to retrieve %s results: %s\n",
			formatResults(e.Results), c.Highlight.Sprint(FormatElapsed(e.Duration)))
	}

	b.WriteString("By HTTP status code:\n")
	for _, code := range s.StatusCodes() {
		st := s.ByStatus[code]
		label := fmt.Sprintf("%d", code)
		if code == 0 {
			label = "0 (no response)"
		}
		fmt.Fprintf(&b, "  %s:\n", c.Status(code).Sprint(label))
		fmt.Fprintf(&b, "    Total HTTP %d responses: %d\n", code, st.Calls)
		fmt.Fprintf(&b, "    Total response time: %s\n", FormatElapsed(st.Total))
		fmt.Fprintf(&b, "    Min response time: %s\n", formatSeconds(st.Min))
		fmt.Fprintf(&b, "    Mean response time: %s\n", formatSeconds(st.Mean))
		fmt.Fprintf(&b, "    Max response time: %s\n", formatSeconds(st.Max))
		fmt.Fprintf(&b, "    P50/P90/P95/P99 response time: %s / %s / %s / %s\n",
			formatSeconds(st.P50), formatSeconds(st.P90), formatSeconds(st.P95), formatSeconds(st.P99))
	}
	b.WriteString("\n")

	_, err := io.WriteString(t.w, b.String())
	return err
}

func outcome(r *ScenarioReport, c *ColorScheme) string {
	switch {
	case r.Succeeded():
		return c.Success.Sprint("completed")
	case r.Unauthorized > 0:
		return c.Error.Sprintf("abandoned after %d consecutive 401s", r.Unauthorized)
	default:
		return c.Error.Sprintf("abandoned after %d retries", r.Retries)
	}
}

func (t *TextReporter) WriteRun(r *RunReport) error {
	var b strings.Builder
	c := t.colors
	failed := r.Failed()
	icon := SuccessIcon(c.NoColor)
	if failed > 0 {
		icon = ErrorIcon(c.NoColor)
	}
	fmt.Fprintf(&b, "%s %d scenario(s) profiled, %d abandoned, in %s\n",
		icon, len(r.Scenarios), failed, FormatElapsed(r.Elapsed))
	if r.RunID != "" {
		fmt.Fprintf(&b, "%s %s\n", c.Label.Sprint("Run ID:"), r.RunID)
	}

	names := make([]string, 0, len(r.Outputs))
	for name := range r.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s %s\n", c.Label.Sprintf("%s:", name), r.Outputs[name])
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}
