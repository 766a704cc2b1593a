package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rawdah/internal/i18n"
	"rawdah/internal/model"
)

func (b *Bot) sendToday(ctx context.Context, chatID int64) error {
	text, markup := renderToday(b.tr, b.svc.Tracker.Progress(ctx))
	return b.sendWithReplyMarkup(chatID, text, markup)
}

func (b *Bot) refreshToday(ctx context.Context, chatID int64, msgID int) error {
	text, markup := renderToday(b.tr, b.svc.Tracker.Progress(ctx))
	b.editText(chatID, msgID, text, &markup)
	return nil
}

// renderToday builds the checklist card. Every flag is a button that toggles it.
func renderToday(tr *i18n.Translator, p model.DailyProgress) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString(tr.Tf("today.title", p.Date))
	sb.WriteString("\n\n")

	sb.WriteString(tr.T("today.prayers"))
	sb.WriteByte('\n')
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, key := range model.PrayerKeys {
		st := p.Prayers[key]
		sb.WriteString(fmt.Sprintf("%s %s · %s %s\n", mark(st.Fard), key.DisplayName(), tr.T("today.sunnah"), mark(st.Sunnah)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %s · %s", mark(st.Fard), key.DisplayName(), tr.T("today.fard")),
				cbPrayerPrefix+string(key)+":fard"),
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %s", mark(st.Sunnah), tr.T("today.sunnah")),
				cbPrayerPrefix+string(key)+":sunnah"),
		))
	}

	sb.WriteByte('\n')
	sb.WriteString(tr.T("today.adhkar"))
	sb.WriteByte('\n')
	sb.WriteString(fmt.Sprintf("%s %s  %s %s\n",
		mark(p.Adhkar.Morning), tr.T("adhkar.morning"), mark(p.Adhkar.Evening), tr.T("adhkar.evening")))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(mark(p.Adhkar.Morning)+" "+tr.T("adhkar.morning"), cbAdhkarPrefix+"morning"),
		tgbotapi.NewInlineKeyboardButtonData(mark(p.Adhkar.Evening)+" "+tr.T("adhkar.evening"), cbAdhkarPrefix+"evening"),
	))

	sb.WriteByte('\n')
	sb.WriteString(tr.T("today.study"))
	sb.WriteByte('\n')
	sb.WriteString(fmt.Sprintf("%s %s  %s %s\n",
		mark(p.Study.Review), tr.T("study.review"), mark(p.Study.Reading), tr.T("study.reading")))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(mark(p.Study.Review)+" "+tr.T("study.review"), cbStudyPrefix+"review"),
		tgbotapi.NewInlineKeyboardButtonData(mark(p.Study.Reading)+" "+tr.T("study.reading"), cbStudyPrefix+"reading"),
	))

	notes := strings.TrimSpace(p.Study.Notes)
	if notes == "" {
		notes = tr.T("today.no_notes")
	}
	sb.WriteByte('\n')
	sb.WriteString(tr.Tf("today.notes", html.EscapeString(notes)))

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(tr.T("btn.notes"), cbNotes),
		tgbotapi.NewInlineKeyboardButtonData(tr.T("btn.reset"), cbReset),
	))

	return sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}
