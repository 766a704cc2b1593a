package bot

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"rawdah/internal/model"
	"rawdah/internal/service"
)

// editThrottle keeps streaming edits under Telegram's rate limits.
const editThrottle = time.Second

// runMentorTurn posts a placeholder and grows it as the reply streams in.
func (b *Bot) runMentorTurn(ctx context.Context, chatID int64, text string) {
	if b.svc.Mentor.Busy() {
		if err := b.sendText(chatID, b.tr.T("mentor.busy")); err != nil {
			log.Error().Err(err).Msg("send busy notice")
		}
		return
	}

	placeholder, err := b.out.Send(tgbotapi.NewMessage(chatID, b.tr.T("mentor.thinking")))
	if err != nil {
		log.Error().Err(err).Msg("send mentor placeholder")
		return
	}

	var (
		lastEdit time.Time
		lastText string
	)
	edit := func(reply string, force bool) {
		if reply == "" || reply == lastText {
			return
		}
		if !force && time.Since(lastEdit) < editThrottle {
			return
		}
		chunks := splitText(reply, chunkLimit)
		if _, err := b.out.Request(tgbotapi.NewEditMessageText(chatID, placeholder.MessageID, chunks[0])); err != nil {
			log.Debug().Err(err).Msg("edit mentor reply")
		}
		lastEdit, lastText = time.Now(), reply
	}

	transcript, err := b.svc.Mentor.Send(ctx, text, func(ms []model.ChatMessage) {
		if last := ms[len(ms)-1]; last.Role == model.RoleAssistant {
			edit(last.Text, false)
		}
	})
	if errors.Is(err, service.ErrMentorBusy) {
		edit(b.tr.T("mentor.busy"), true)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("mentor turn")
		return
	}

	final := transcript[len(transcript)-1].Text
	edit(final, true)
	for _, chunk := range splitText(final, chunkLimit)[1:] {
		if _, err := b.out.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			log.Error().Err(err).Msg("send mentor reply")
		}
	}
}
