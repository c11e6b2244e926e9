package collector

import (
	"time"

	"kampyn-loadtest/internal/core"
)

// ComputeMetrics computes metrics from events. Pure function, no side effects.
//
// Skipped events (Attempted == false) feed the success/failure tallies so
// that every step's success+failed total equals the number of completed
// workflows, but they never contribute duration samples or request counts.
func ComputeMetrics(events []core.Event, testDuration time.Duration) *Metrics {
	m := &Metrics{
		Steps:        make(map[string]*StepMetrics),
		TestDuration: testDuration,
	}

	if len(events) == 0 {
		return m
	}

	allDurations := make([]time.Duration, 0, len(events))
	stepDurations := make(map[string][]time.Duration)

	for _, e := range events {
		if _, exists := m.Steps[e.Step]; !exists {
			m.Steps[e.Step] = &StepMetrics{}
			stepDurations[e.Step] = make([]time.Duration, 0)
		}
		step := m.Steps[e.Step]

		if e.Success {
			m.SuccessCount++
			step.Success++
		} else {
			m.FailureCount++
			step.Failed++
		}

		if !e.Attempted {
			continue
		}

		m.TotalRequests++
		step.Attempted++
		allDurations = append(allDurations, e.Duration)
		stepDurations[e.Step] = append(stepDurations[e.Step], e.Duration)
	}

	if m.SuccessCount+m.FailureCount > 0 {
		m.SuccessRate = float64(m.SuccessCount) / float64(m.SuccessCount+m.FailureCount) * 100
	}

	if m.TestDuration > 0 {
		m.RequestsPerSec = float64(m.TotalRequests) / m.TestDuration.Seconds()
	}

	m.Duration = ComputeDurationMetrics(allDurations)

	for step, durations := range stepDurations {
		m.Steps[step].Duration = ComputeDurationMetrics(durations)
	}

	return m
}
