package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"supplement-coach/internal/metrics"
	"supplement-coach/internal/session"
	"supplement-coach/internal/stats"
	"supplement-coach/internal/supplement"
)

const helpText = `💊 *Supplement Coach*

/plan - Tagesplan abhaken
/profil - Profil wechseln
/loeschen - Eintrag löschen
/stats - Statistik

Schick ein Foto einer Packung, um das Etikett zu analysieren.`

// Callback actions. Telegram limits callback data to 64 bytes, so categories
// travel as their index in the plan.
const (
	actionToggle  = "t"
	actionProfile = "p"
	actionDelete  = "d"
)

var errBadCallback = errors.New("malformed callback data")

type callback struct {
	action   string
	category int
	name     string
}

func parseCallback(data string) (callback, error) {
	action, rest, ok := strings.Cut(data, "|")
	if !ok || rest == "" {
		return callback{}, errBadCallback
	}
	switch action {
	case actionProfile:
		return callback{action: action, name: rest}, nil
	case actionToggle, actionDelete:
		idx, name, ok := strings.Cut(rest, "|")
		if !ok || name == "" {
			return callback{}, errBadCallback
		}
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 {
			return callback{}, errBadCallback
		}
		return callback{action: action, category: i, name: name}, nil
	default:
		return callback{}, errBadCallback
	}
}

func callbackData(action string, category int, name string) string {
	return fmt.Sprintf("%s|%d|%s", action, category, name)
}

func categoryAt(plan supplement.Plan, i int) (string, bool) {
	if i < 0 || i >= len(plan.Categories) {
		return "", false
	}
	return plan.Categories[i].Name, true
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatChecklist(v session.View) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("💊 *Plan für %s* (%s)\n", escape(string(v.Profile)), v.Date.Format("02.01.2006")))

	if len(v.Categories) == 0 {
		sb.WriteString("\n_Keine Einträge._\n")
	}
	for _, c := range v.Categories {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", escape(c.Name)))
		for _, e := range c.Entries {
			mark := "⬜"
			if e.Checked {
				mark = "✅"
			}
			sb.WriteString(fmt.Sprintf("%s %s · %s", mark, escape(e.Name), escape(e.Dosage)))
			if e.Note != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", escape(e.Note)))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString(fmt.Sprintf("\nFortschritt: %d/%d (%.0f%%)", v.Completed, v.Total, v.Progress*100))
	return sb.String()
}

func checklistKeyboard(plan supplement.Plan, v session.View) *tgbotapi.InlineKeyboardMarkup {
	checked := make(map[string]bool)
	for _, c := range v.Categories {
		for _, e := range c.Entries {
			checked[c.Name+"\x00"+e.Name] = e.Checked
		}
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, c := range plan.Categories {
		for _, e := range c.Entries {
			mark := "⬜"
			if checked[c.Name+"\x00"+e.Name] {
				mark = "✅"
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(mark+" "+e.Name, callbackData(actionToggle, i, e.Name)),
			))
		}
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func deleteKeyboard(plan supplement.Plan) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, c := range plan.Categories {
		for _, e := range c.Entries {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 "+c.Name+": "+e.Name, callbackData(actionDelete, i, e.Name)),
			))
		}
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func profileKeyboard(active supplement.Profile) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, p := range supplement.Profiles() {
		label := string(p)
		if p == active {
			label = "● " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, actionProfile+"|"+string(p)))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}

func formatStats(r stats.Report) string {
	var sb strings.Builder
	sb.WriteString("📈 *Statistik*\n\n")
	sb.WriteString(fmt.Sprintf("Heute: %d/%d (%.0f%%)\n\n", r.Completed, r.Total, r.Progress*100))
	for _, p := range r.Series {
		sb.WriteString(fmt.Sprintf("• %s: %d%%\n", p.Label, p.Value))
	}
	execs, tokens := r.ScanTotals()
	sb.WriteString(fmt.Sprintf("\n🔍 Scans (%d Tage): %d, %d Tokens", stats.UsageDays, execs, tokens))
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth, sessions int) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs, %d failed)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Failures))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Sessions: %d\n", sessions))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
