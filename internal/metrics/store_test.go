package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"supplement-coach/internal/database"
	"supplement-coach/internal/llm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewStore(db.SQL)
	s.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestStore(t *testing.T) {
	s := newTestStore(t)
	today := s.now()

	records := []ExecutionMetric{
		{AgentName: "label-reader", Model: "gemini-1.5-flash", PromptTokens: 100, CompletionTokens: 20, Success: true, Timestamp: today},
		{AgentName: "label-reader", Model: "gemini-1.5-flash", PromptTokens: 50, CompletionTokens: 10, Success: false, Timestamp: today.Add(-time.Hour)},
		{AgentName: "label-reader", Model: "gemini-2.0-flash", PromptTokens: 10, CompletionTokens: 5, Success: true, Timestamp: today.AddDate(0, 0, -2)},
		{AgentName: "label-reader", Model: "gemini-2.0-flash", PromptTokens: 1, CompletionTokens: 1, Success: true, Timestamp: today.AddDate(0, 0, -40)},
	}
	for _, r := range records {
		if err := s.Record(r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	t.Run("DailyUsage", func(t *testing.T) {
		usage, err := s.GetDailyUsage(7)
		if err != nil {
			t.Fatalf("GetDailyUsage failed: %v", err)
		}
		if len(usage) != 2 {
			t.Fatalf("Expected 2 days, got %d: %+v", len(usage), usage)
		}
		first := usage[0]
		if first.Date != "2024-03-10" || first.TotalPrompt != 150 || first.TotalCompletion != 30 || first.TotalExecution != 2 || first.Failures != 1 {
			t.Errorf("Unexpected usage for today: %+v", first)
		}
		if usage[1].Date != "2024-03-08" {
			t.Errorf("Expected 2024-03-08 second, got %s", usage[1].Date)
		}
	})

	t.Run("Cleanup", func(t *testing.T) {
		affected, err := s.Cleanup(30)
		if err != nil {
			t.Fatalf("Cleanup failed: %v", err)
		}
		if affected != 1 {
			t.Errorf("Expected 1 removed row, got %d", affected)
		}
	})
}

func TestMapUsage(t *testing.T) {
	m := MapUsage("label-reader", llm.TokenUsage{Model: "m", PromptTokens: 3, CompletionTokens: 4}, 1500*time.Millisecond, true)
	if m.Model != "m" || m.PromptTokens != 3 || m.CompletionTokens != 4 || m.LatencyMS != 1500 || !m.Success {
		t.Errorf("Unexpected metric %+v", m)
	}
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "f"), make([]byte, 2048), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	h := GetSysHealth(dir)
	if h.Goroutines == 0 {
		t.Error("Expected at least one goroutine")
	}
	if h.DataDiskSize != "2.0 kB" {
		t.Errorf("Expected '2.0 kB', got %q", h.DataDiskSize)
	}
}
