package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"supplement-coach/internal/metrics"
	"supplement-coach/internal/scan"
	"supplement-coach/internal/session"
	"supplement-coach/internal/stats"
	"supplement-coach/internal/supplement"
)

const (
	downloadTimeout = 30 * time.Second
	// updateTimeout bounds one update, including the label scan.
	updateTimeout = 2 * time.Minute
)

var errFileTooLarge = errors.New("file too large")

// api is the part of *tgbotapi.BotAPI the bot uses.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Options wires a Bot. Scan and Usage may be nil.
type Options struct {
	Token          string
	WebhookURL     string
	AllowedUserIDs []int64
	AdminID        int64
	DataDir        string
	MaxUploadBytes int64

	Sessions *session.Manager
	Scan     *scan.Service
	Usage    stats.UsageSource
	Logger   zerolog.Logger
}

// Bot serves the checklist over Telegram in webhook mode. Every chat gets
// its own session.
type Bot struct {
	api     api
	opts    Options
	allowed map[int64]struct{}
	http    *http.Client
	logger  zerolog.Logger
}

// NewBot authorizes against the Telegram API and registers the webhook.
func NewBot(opts Options) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	opts.Logger.Info().Str("account", botAPI.Self.UserName).Msg("telegram authorized")

	if opts.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(opts.WebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", opts.WebhookURL, err)
		}
		resp, err := botAPI.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", opts.WebhookURL, err)
		}
		opts.Logger.Info().Str("response", resp.Description).Msg("webhook set")
	}

	return newBot(botAPI, opts), nil
}

func newBot(a api, opts Options) *Bot {
	allowed := make(map[int64]struct{}, len(opts.AllowedUserIDs))
	for _, id := range opts.AllowedUserIDs {
		allowed[id] = struct{}{}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Bot{
		api:     a,
		opts:    opts,
		allowed: allowed,
		http:    &http.Client{Timeout: downloadTimeout},
		logger:  opts.Logger.With().Str("component", "telegram").Logger(),
	}
}

// ServeHTTP accepts webhook updates. Telegram only needs a 200; the update is
// handled in the background.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn().Err(err).Msg("error parsing update")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
	go b.handleUpdate(context.Background(), update)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.From == nil || q.Message == nil || !b.isAllowed(q.From) {
			return
		}
		b.handleCallback(q)
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || !b.isAllowed(msg.From) {
			return
		}
		b.handleMessage(ctx, msg)
	}
}

func (b *Bot) isAllowed(u *tgbotapi.User) bool {
	if _, ok := b.allowed[u.ID]; ok {
		return true
	}
	b.logger.Warn().Int64("user_id", u.ID).Str("username", u.UserName).Msg("unauthorized access attempt")
	return false
}

func (b *Bot) sessionFor(chatID int64) *session.Session {
	return b.opts.Sessions.GetOrCreate(fmt.Sprintf("tg-%d", chatID), "")
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	sess := b.sessionFor(msg.Chat.ID)
	switch msg.Command() {
	case "start", "plan":
		b.sendChecklist(msg.Chat.ID, sess)
	case "profil":
		b.handleProfileCommand(msg, sess)
	case "loeschen":
		b.send(msg.Chat.ID, "🗑 *Eintrag löschen*", deleteKeyboard(sess.Plan()))
	case "stats":
		rep, err := stats.Build(sess.Snapshot(), b.opts.Usage)
		if err != nil {
			b.logger.Warn().Err(err).Msg("stats without usage")
		}
		b.send(msg.Chat.ID, formatStats(rep), nil)
	case "metrics":
		b.handleMetricsRequest(msg)
	default:
		b.send(msg.Chat.ID, helpText, nil)
	}
}

func (b *Bot) handleProfileCommand(msg *tgbotapi.Message, sess *session.Session) {
	arg := msg.CommandArguments()
	if arg == "" {
		b.send(msg.Chat.ID, "👤 *Profil wählen*", profileKeyboard(sess.Profile()))
		return
	}
	p, err := supplement.ParseProfile(arg)
	if err != nil {
		b.send(msg.Chat.ID, "❌ Unbekanntes Profil: "+escape(arg), nil)
		return
	}
	sess.SwitchProfile(p)
	b.sendChecklist(msg.Chat.ID, sess)
}

func (b *Bot) handleCallback(q *tgbotapi.CallbackQuery) {
	b.api.Request(tgbotapi.NewCallback(q.ID, ""))

	cb, err := parseCallback(q.Data)
	if err != nil {
		b.logger.Warn().Err(err).Str("data", q.Data).Msg("ignoring callback")
		return
	}

	chatID, messageID := q.Message.Chat.ID, q.Message.MessageID
	sess := b.sessionFor(chatID)

	switch cb.action {
	case actionToggle:
		category, ok := categoryAt(sess.Plan(), cb.category)
		if !ok {
			return
		}
		if _, err := sess.Toggle(category, cb.name); err != nil {
			b.logger.Debug().Err(err).Msg("stale toggle button")
		}
		b.editChecklist(chatID, messageID, sess)
	case actionProfile:
		p, err := supplement.ParseProfile(cb.name)
		if err != nil {
			return
		}
		sess.SwitchProfile(p)
		b.editChecklist(chatID, messageID, sess)
	case actionDelete:
		plan := sess.Plan()
		category, ok := categoryAt(plan, cb.category)
		if !ok {
			return
		}
		sess.DeleteEntry(category, cb.name)
		b.edit(chatID, messageID, "🗑 *Eintrag löschen*", deleteKeyboard(sess.Plan()))
	}
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	if !b.opts.Scan.Enabled() {
		b.send(msg.Chat.ID, escape(b.opts.Scan.Analyze(ctx, nil).Text), nil)
		return
	}

	// Telegram lists sizes from smallest to largest.
	photo := msg.Photo[len(msg.Photo)-1]
	data, err := b.download(ctx, photo.FileID)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to download photo")
		text := "Fehler: " + err.Error()
		if errors.Is(err, errFileTooLarge) {
			text = "Fehler: Datei ist zu groß."
		}
		b.send(msg.Chat.ID, escape(text), nil)
		return
	}

	res := b.opts.Scan.Analyze(ctx, data)
	b.send(msg.Chat.ID, "🔍 "+escape(res.Text), nil)
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, b.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > b.opts.MaxUploadBytes {
		return nil, errFileTooLarge
	}
	return data, nil
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if b.opts.AdminID == 0 || msg.From.ID != b.opts.AdminID {
		b.send(msg.Chat.ID, "⛔ *Zugriff verweigert*: nur Admin.", nil)
		return
	}

	var usage []metrics.DailyUsage
	if b.opts.Usage != nil {
		var err error
		usage, err = b.opts.Usage.GetDailyUsage(stats.UsageDays)
		if err != nil {
			b.send(msg.Chat.ID, "❌ Fehler beim Laden der Metriken.", nil)
			return
		}
	}
	b.send(msg.Chat.ID, formatMetrics(usage, metrics.GetSysHealth(b.opts.DataDir), b.opts.Sessions.Len()), nil)
}

func (b *Bot) sendChecklist(chatID int64, sess *session.Session) {
	view := sess.Snapshot()
	b.send(chatID, formatChecklist(view), checklistKeyboard(sess.Plan(), view))
}

func (b *Bot) editChecklist(chatID int64, messageID int, sess *session.Session) {
	view := sess.Snapshot()
	b.edit(chatID, messageID, formatChecklist(view), checklistKeyboard(sess.Plan(), view))
}

func (b *Bot) send(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to edit message")
	}
}
