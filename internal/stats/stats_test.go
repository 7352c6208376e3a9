package stats

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"supplement-coach/internal/metrics"
	"supplement-coach/internal/session"
)

type fakeUsage struct {
	days  []metrics.DailyUsage
	err   error
	asked int
}

func (f *fakeUsage) GetDailyUsage(days int) ([]metrics.DailyUsage, error) {
	f.asked = days
	return f.days, f.err
}

func TestDemoSeries(t *testing.T) {
	want := []Point{{"Mo", 80}, {"Di", 95}}
	if diff := cmp.Diff(want, DemoSeries()); diff != "" {
		t.Errorf("DemoSeries mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild(t *testing.T) {
	view := session.View{Completed: 1, Total: 4, Progress: 0.25}

	t.Run("WithoutUsage", func(t *testing.T) {
		r, err := Build(view, nil)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if r.Progress != 0.25 || r.Completed != 1 || r.Total != 4 || len(r.Usage) != 0 {
			t.Errorf("Unexpected report %+v", r)
		}
	})

	t.Run("WithUsage", func(t *testing.T) {
		src := &fakeUsage{days: []metrics.DailyUsage{
			{Date: "2024-03-10", TotalPrompt: 100, TotalCompletion: 20, TotalExecution: 2},
			{Date: "2024-03-09", TotalPrompt: 10, TotalCompletion: 5, TotalExecution: 1},
		}}
		r, err := Build(view, src)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if src.asked != UsageDays {
			t.Errorf("Expected %d days requested, got %d", UsageDays, src.asked)
		}
		execs, tokens := r.ScanTotals()
		if execs != 3 || tokens != 135 {
			t.Errorf("Expected 3 executions and 135 tokens, got %d and %d", execs, tokens)
		}
	})

	t.Run("UsageError", func(t *testing.T) {
		_, err := Build(view, &fakeUsage{err: errors.New("db closed")})
		if err == nil {
			t.Error("Expected error")
		}
	})
}
