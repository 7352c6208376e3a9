package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"supplement-coach/internal/llm"
	"supplement-coach/internal/scan"
	"supplement-coach/internal/session"
	"supplement-coach/internal/supplement"
)

const (
	allowedUser = int64(42)
	adminUser   = int64(7)
	chatID      = int64(1001)
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fileURL  string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	return f.fileURL, nil
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("Expected a sent message")
	}
	switch c := f.sent[len(f.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return c.Text
	case tgbotapi.EditMessageTextConfig:
		return c.Text
	default:
		t.Fatalf("Unexpected chattable %T", c)
		return ""
	}
}

type stubReader struct{}

func (stubReader) ReadLabel(context.Context, llm.Image) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: "Omega-3, 1 Kapsel, mittags", Usage: llm.TokenUsage{Model: "gemini-1.5-flash"}}, nil
}

// deadlineReader records the deadline of the context it is called with.
type deadlineReader struct {
	deadline time.Time
	ok       bool
}

func (d *deadlineReader) ReadLabel(ctx context.Context, _ llm.Image) (llm.ContentResponse, error) {
	d.deadline, d.ok = ctx.Deadline()
	return llm.ContentResponse{Content: "ok"}, nil
}

func newTestBot(reader llm.LabelReader) (*Bot, *fakeAPI, *session.Manager) {
	fake := &fakeAPI{}
	sessions := session.NewManager(session.Options{TTL: time.Hour, Location: time.UTC})
	b := newBot(fake, Options{
		AllowedUserIDs: []int64{allowedUser, adminUser},
		AdminID:        adminUser,
		DataDir:        ".",
		Sessions:       sessions,
		Scan:           scan.NewService(reader, nil, zerolog.Nop()),
		Logger:         zerolog.Nop(),
	})
	return b, fake, sessions
}

func command(from int64, text string) tgbotapi.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func press(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}}
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data    string
		want    callback
		wantErr bool
	}{
		{data: "t|1|Omega-3", want: callback{action: actionToggle, category: 1, name: "Omega-3"}},
		{data: "d|4|Mg Night + Melatonin", want: callback{action: actionDelete, category: 4, name: "Mg Night + Melatonin"}},
		{data: "p|Katharina", want: callback{action: actionProfile, name: "Katharina"}},
		{data: "t|x|Omega-3", wantErr: true},
		{data: "t|-1|Omega-3", wantErr: true},
		{data: "t|1|", wantErr: true},
		{data: "x|1|a", wantErr: true},
		{data: "redo", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, err := parseCallback(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(callback{})); diff != "" {
				t.Errorf("parseCallback mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanCommand(t *testing.T) {
	b, fake, _ := newTestBot(nil)
	b.handleUpdate(context.Background(), command(allowedUser, "/plan"))

	if len(fake.sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(fake.sent))
	}
	msg := fake.sent[0].(tgbotapi.MessageConfig)
	if !strings.Contains(msg.Text, "*Plan für Eugen*") || !strings.Contains(msg.Text, "Fortschritt: 0/14 (0%)") {
		t.Errorf("Unexpected checklist:\n%s", msg.Text)
	}
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if len(kb.InlineKeyboard) != 14 {
		t.Errorf("Expected 14 buttons, got %d", len(kb.InlineKeyboard))
	}
	if got := *kb.InlineKeyboard[0][0].CallbackData; got != "t|0|Valsamtrio" {
		t.Errorf("Unexpected callback data %q", got)
	}
}

func TestUnauthorizedUserIsIgnored(t *testing.T) {
	b, fake, sessions := newTestBot(nil)
	b.handleUpdate(context.Background(), command(999, "/plan"))
	b.handleUpdate(context.Background(), press(999, "t|0|Valsamtrio"))

	if len(fake.sent) != 0 || len(fake.requests) != 0 {
		t.Errorf("Expected no interaction, got %d sent and %d requests", len(fake.sent), len(fake.requests))
	}
	if sessions.Len() != 0 {
		t.Errorf("Expected no session, got %d", sessions.Len())
	}
}

func TestToggleCallback(t *testing.T) {
	b, fake, sessions := newTestBot(nil)
	b.handleUpdate(context.Background(), press(allowedUser, "t|1|Magnesium-Orotat"))

	sess := sessions.GetOrCreate("tg-1001", "")
	if got := sess.Snapshot().Completed; got != 1 {
		t.Errorf("Expected 1 completed entry, got %d", got)
	}
	if len(fake.requests) != 1 {
		t.Errorf("Expected callback to be answered")
	}
	edit, ok := fake.sent[0].(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("Expected an edit, got %T", fake.sent[0])
	}
	if edit.MessageID != 5 || !strings.Contains(edit.Text, "✅ Magnesium-Orotat") {
		t.Errorf("Unexpected edit:\n%s", edit.Text)
	}

	// Pressing again unchecks.
	b.handleUpdate(context.Background(), press(allowedUser, "t|1|Magnesium-Orotat"))
	if got := sess.Snapshot().Completed; got != 0 {
		t.Errorf("Expected 0 completed entries, got %d", got)
	}
}

func TestProfileCommand(t *testing.T) {
	b, fake, sessions := newTestBot(nil)
	b.handleUpdate(context.Background(), press(allowedUser, "t|0|Valsamtrio"))
	b.handleUpdate(context.Background(), command(allowedUser, "/profil katharina"))

	sess := sessions.GetOrCreate("tg-1001", "")
	if sess.Profile() != supplement.ProfileKatharina {
		t.Errorf("Expected Katharina, got %s", sess.Profile())
	}
	if got := sess.Snapshot().Completed; got != 0 {
		t.Errorf("Expected checklist reset, got %d completed", got)
	}
	if !strings.Contains(fake.lastText(t), "*Plan für Katharina*") {
		t.Errorf("Unexpected reply:\n%s", fake.lastText(t))
	}

	b.handleUpdate(context.Background(), command(allowedUser, "/profil Nobody"))
	if !strings.Contains(fake.lastText(t), "Unbekanntes Profil") {
		t.Errorf("Unexpected reply %q", fake.lastText(t))
	}

	b.handleUpdate(context.Background(), command(allowedUser, "/profil"))
	msg := fake.sent[len(fake.sent)-1].(tgbotapi.MessageConfig)
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if got := *kb.InlineKeyboard[0][1].CallbackData; got != "p|Katharina" {
		t.Errorf("Unexpected profile button %q", got)
	}

	b.handleUpdate(context.Background(), press(allowedUser, "p|Eugen"))
	if sess.Profile() != supplement.ProfileEugen {
		t.Errorf("Expected Eugen after button, got %s", sess.Profile())
	}
}

func TestDeleteCallback(t *testing.T) {
	b, fake, sessions := newTestBot(nil)
	b.handleUpdate(context.Background(), press(allowedUser, "d|0|Valsamtrio"))

	sess := sessions.GetOrCreate("tg-1001", "")
	if got := sess.Plan().Total(); got != 13 {
		t.Errorf("Expected 13 entries, got %d", got)
	}
	edit := fake.sent[0].(tgbotapi.EditMessageTextConfig)
	if len(edit.ReplyMarkup.InlineKeyboard) != 13 {
		t.Errorf("Expected 13 delete buttons, got %d", len(edit.ReplyMarkup.InlineKeyboard))
	}

	// Unknown entries and out-of-range categories are ignored.
	b.handleUpdate(context.Background(), press(allowedUser, "d|0|Valsamtrio"))
	b.handleUpdate(context.Background(), press(allowedUser, "d|9|Valsamtrio"))
	if got := sess.Plan().Total(); got != 13 {
		t.Errorf("Expected 13 entries, got %d", got)
	}
}

func TestPhotoScan(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(png)
	}))
	defer files.Close()

	photo := func() tgbotapi.Update {
		return tgbotapi.Update{Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: allowedUser},
			Chat: &tgbotapi.Chat{ID: chatID},
			Photo: []tgbotapi.PhotoSize{
				{FileID: "small", Width: 90},
				{FileID: "large", Width: 1280},
			},
		}}
	}

	t.Run("Enabled", func(t *testing.T) {
		b, fake, _ := newTestBot(stubReader{})
		fake.fileURL = files.URL
		b.handleUpdate(context.Background(), photo())
		if got := fake.lastText(t); got != "🔍 Omega-3, 1 Kapsel, mittags" {
			t.Errorf("Unexpected reply %q", got)
		}
	})

	t.Run("Bounded", func(t *testing.T) {
		reader := &deadlineReader{}
		b, fake, _ := newTestBot(reader)
		fake.fileURL = files.URL
		b.handleUpdate(context.Background(), photo())
		if !reader.ok {
			t.Fatal("Expected the label scan to run with a deadline")
		}
		if left := time.Until(reader.deadline); left <= 0 || left > updateTimeout {
			t.Errorf("Expected a deadline within %s, got %s", updateTimeout, left)
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		b, fake, _ := newTestBot(nil)
		b.handleUpdate(context.Background(), photo())
		if got := fake.lastText(t); got != "Fehler: Kein API Key gefunden." {
			t.Errorf("Unexpected reply %q", got)
		}
	})
}

func TestMetricsCommand(t *testing.T) {
	b, fake, _ := newTestBot(nil)

	b.handleUpdate(context.Background(), command(allowedUser, "/metrics"))
	if !strings.Contains(fake.lastText(t), "Zugriff verweigert") {
		t.Errorf("Expected access denied, got %q", fake.lastText(t))
	}

	b.handleUpdate(context.Background(), command(adminUser, "/metrics"))
	text := fake.lastText(t)
	if !strings.Contains(text, "_No data yet_") || !strings.Contains(text, "System Health") {
		t.Errorf("Unexpected report:\n%s", text)
	}
}

func TestStatsCommand(t *testing.T) {
	b, fake, _ := newTestBot(nil)
	b.handleUpdate(context.Background(), command(allowedUser, "/stats"))

	text := fake.lastText(t)
	for _, want := range []string{"Heute: 0/14 (0%)", "• Mo: 80%", "• Di: 95%"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}
}
