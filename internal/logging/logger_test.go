package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("Production", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter("production", &buf)
		log.Debug().Msg("hidden")
		log.Info().Str("profile", "Eugen").Msg("switched")

		line := strings.TrimSpace(buf.String())
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Expected a single JSON line, got %q: %v", line, err)
		}
		if entry["message"] != "switched" || entry["profile"] != "Eugen" || entry["service"] != "supplement-coach" {
			t.Errorf("Unexpected entry %v", entry)
		}
	})

	t.Run("Development", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter("development", &buf)
		log.Debug().Msg("visible")
		if !strings.Contains(buf.String(), "visible") {
			t.Errorf("Expected debug output, got %q", buf.String())
		}
	})
}
