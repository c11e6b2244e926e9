package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"kampyn-loadtest/internal/core"
)

// FormatText writes metrics in human-readable format. Steps render in
// workflow order; a step with no attempted calls reports "no data" for its
// latency columns.
func FormatText(w io.Writer, m *Metrics, thresholds *ThresholdResults) {
	if len(m.Steps) == 0 {
		fmt.Fprintln(w, "No events collected")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "KAMPYN Auth Load Test Results")
	fmt.Fprintln(w, "==============================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Duration:       %v\n", m.TestDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "Total Requests: %s\n", formatNumber(m.TotalRequests))
	fmt.Fprintf(w, "Success Rate:   %.1f%% (%s / %s)\n",
		m.SuccessRate, formatNumber(m.SuccessCount), formatNumber(m.SuccessCount+m.FailureCount))
	fmt.Fprintf(w, "Requests/sec:   %.1f\n", m.RequestsPerSec)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Response Times:")
	fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(m.Duration.Min))
	fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(m.Duration.Avg))
	fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(m.Duration.P50))
	fmt.Fprintf(w, "  P90:    %s\n", FormatDuration(m.Duration.P90))
	fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(m.Duration.P95))
	fmt.Fprintf(w, "  P99:    %s\n", FormatDuration(m.Duration.P99))
	fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(m.Duration.Max))
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "By Step:")
	for _, step := range stepNames(m) {
		sm := m.Steps[step]
		if sm.Attempted == 0 {
			fmt.Fprintf(w, "  %-18s ok=%-5d failed=%-5d rate=%5.1f%%   no data\n",
				step, sm.Success, sm.Failed, sm.SuccessRate())
			continue
		}
		fmt.Fprintf(w, "  %-18s ok=%-5d failed=%-5d rate=%5.1f%%   avg=%s  min=%s  max=%s  p95=%s\n",
			step, sm.Success, sm.Failed, sm.SuccessRate(),
			FormatDuration(sm.Duration.Avg),
			FormatDuration(sm.Duration.Min),
			FormatDuration(sm.Duration.Max),
			FormatDuration(sm.Duration.P95))
	}

	if thresholds != nil && len(thresholds.Results) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Thresholds:")
		for _, result := range thresholds.Results {
			symbol := "✓"
			if !result.Passed {
				symbol = "✗"
			}
			fmt.Fprintf(w, "  %s %s < %s (actual: %s)\n",
				symbol, result.Name, result.Threshold, result.Actual)
		}
	}
}

// stepNames returns the metric's step names in workflow order, with any
// unknown steps appended alphabetically.
func stepNames(m *Metrics) []string {
	names := make([]string, 0, len(m.Steps))
	seen := make(map[string]bool, len(m.Steps))
	for _, step := range core.StepOrder {
		if _, ok := m.Steps[step]; ok {
			names = append(names, step)
			seen[step] = true
		}
	}
	extra := make([]string, 0)
	for step := range m.Steps {
		if !seen[step] {
			extra = append(extra, step)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// FormatJSON writes metrics in JSON format.
func FormatJSON(w io.Writer, m *Metrics, thresholds *ThresholdResults) {
	output := struct {
		Duration       string                     `json:"duration"`
		TotalRequests  int                        `json:"totalRequests"`
		SuccessCount   int                        `json:"successCount"`
		FailureCount   int                        `json:"failureCount"`
		SuccessRate    float64                    `json:"successRate"`
		RequestsPerSec float64                    `json:"requestsPerSec"`
		Durations      jsonDurationMetrics        `json:"durations"`
		Steps          map[string]jsonStepMetrics `json:"steps"`
		Thresholds     *ThresholdResults          `json:"thresholds,omitempty"`
	}{
		Duration:       m.TestDuration.Round(time.Millisecond).String(),
		TotalRequests:  m.TotalRequests,
		SuccessCount:   m.SuccessCount,
		FailureCount:   m.FailureCount,
		SuccessRate:    m.SuccessRate,
		RequestsPerSec: m.RequestsPerSec,
		Durations:      toJSONDurationMetrics(m.Duration),
		Steps:          make(map[string]jsonStepMetrics),
		Thresholds:     thresholds,
	}

	for step, sm := range m.Steps {
		output.Steps[step] = jsonStepMetrics{
			Success:     sm.Success,
			Failed:      sm.Failed,
			Attempted:   sm.Attempted,
			SuccessRate: sm.SuccessRate(),
			Durations:   toJSONDurationMetrics(sm.Duration),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output) // stdout errors are unrecoverable
}

type jsonDurationMetrics struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

type jsonStepMetrics struct {
	Success     int                 `json:"success"`
	Failed      int                 `json:"failed"`
	Attempted   int                 `json:"attempted"`
	SuccessRate float64             `json:"successRate"`
	Durations   jsonDurationMetrics `json:"durations"`
}

func toJSONDurationMetrics(d DurationMetrics) jsonDurationMetrics {
	return jsonDurationMetrics{
		Min: FormatDuration(d.Min),
		Max: FormatDuration(d.Max),
		Avg: FormatDuration(d.Avg),
		P50: FormatDuration(d.P50),
		P90: FormatDuration(d.P90),
		P95: FormatDuration(d.P95),
		P99: FormatDuration(d.P99),
	}
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d,%03d", n/1000, n%1000)
}
