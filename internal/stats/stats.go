// Package stats assembles the numbers shown on the Stats tab.
package stats

import (
	"fmt"

	"supplement-coach/internal/metrics"
	"supplement-coach/internal/session"
)

// UsageDays is the window of scan usage included in a report.
const UsageDays = 7

// Point is one bar of the demo chart.
type Point struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// UsageSource reads aggregated model usage.
type UsageSource interface {
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
}

// Report is the Stats tab payload.
type Report struct {
	Series    []Point              `json:"series"`
	Completed int                  `json:"completed"`
	Total     int                  `json:"total"`
	Progress  float64              `json:"progress"`
	Usage     []metrics.DailyUsage `json:"usage"`
}

// DemoSeries is a fixed sample chart. It is not derived from any history.
func DemoSeries() []Point {
	return []Point{
		{Label: "Mo", Value: 80},
		{Label: "Di", Value: 95},
	}
}

// Build combines the demo series, today's progress and recent scan usage.
// usage may be nil.
func Build(view session.View, usage UsageSource) (Report, error) {
	r := Report{
		Series:    DemoSeries(),
		Completed: view.Completed,
		Total:     view.Total,
		Progress:  view.Progress,
		Usage:     []metrics.DailyUsage{},
	}
	if usage == nil {
		return r, nil
	}
	days, err := usage.GetDailyUsage(UsageDays)
	if err != nil {
		return r, fmt.Errorf("failed to load usage: %w", err)
	}
	if days != nil {
		r.Usage = days
	}
	return r, nil
}

// ScanTotals sums executions and tokens over the report window.
func (r Report) ScanTotals() (executions, tokens int) {
	for _, d := range r.Usage {
		executions += d.TotalExecution
		tokens += d.TotalPrompt + d.TotalCompletion
	}
	return executions, tokens
}
