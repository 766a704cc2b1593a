package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"rawdah/internal/i18n"
	"rawdah/internal/model"
	"rawdah/internal/service"
)

var errNoOwnerChat = errors.New("owner chat unknown")

func (b *Bot) handleLocation(ctx context.Context, chatID int64, loc *tgbotapi.Location) error {
	_, err := b.svc.Times.SetLocation(ctx, service.Location{Latitude: loc.Latitude, Longitude: loc.Longitude})
	if err != nil {
		log.Warn().Err(err).Msg("set location")
	} else if sendErr := b.sendText(chatID, b.tr.T("location.saved")); sendErr != nil {
		return sendErr
	}
	return b.sendTimes(ctx, chatID)
}

func (b *Bot) sendTimes(ctx context.Context, chatID int64) error {
	text, markup := b.timesCard(ctx)
	return b.sendWithReplyMarkup(chatID, text, markup)
}

func (b *Bot) refreshTimes(ctx context.Context, chatID int64, msgID int) error {
	text, markup := b.timesCard(ctx)
	b.editText(chatID, msgID, text, &markup)
	return nil
}

func (b *Bot) timesCard(ctx context.Context) (string, tgbotapi.InlineKeyboardMarkup) {
	schedule, err := b.svc.Times.Schedule()
	return renderTimes(b.tr, schedule, err, b.svc.Tracker.Settings(), b.svc.Clock.Now())
}

// renderTimes builds the prayer-times card with the alert toggles.
func renderTimes(tr *i18n.Translator, schedule *model.PrayerSchedule, err error, settings model.NotificationSettings, now time.Time) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	switch {
	case errors.Is(err, service.ErrLocationUnavailable):
		sb.WriteString(tr.T("times.location_unavailable"))
	case err != nil:
		sb.WriteString(tr.T("times.fetch_failed"))
	case schedule == nil:
		sb.WriteString(tr.T("times.pending"))
	default:
		sb.WriteString(tr.Tf("times.title", schedule.Date))
		sb.WriteString("\n\n")
		for _, key := range model.PrayerKeys {
			clock, ok := schedule.TimeOf(key)
			if !ok {
				continue
			}
			sb.WriteString(fmt.Sprintf("🕰 %s — <code>%s</code>\n", key.DisplayName(), clock))
		}
		if key, clock, ok := nextPrayer(schedule, now); ok {
			sb.WriteByte('\n')
			sb.WriteString(tr.Tf("times.next", key.DisplayName(), clock))
		}
	}
	sb.WriteString("\n\n")
	sb.WriteString(settingsLine(tr, settings))

	enabled, sound := tr.T("times.alerts_off"), tr.T("times.sound_off")
	if settings.Enabled {
		enabled = tr.T("times.alerts_on")
	}
	if settings.Sound {
		sound = tr.T("times.sound_on")
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(enabled, cbToggleEnabled),
			tgbotapi.NewInlineKeyboardButtonData(sound, cbToggleSound),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tr.T("btn.refresh"), cbTimesRefresh),
		),
	)
	return strings.TrimSpace(sb.String()), markup
}

func settingsLine(tr *i18n.Translator, s model.NotificationSettings) string {
	enabled, sound := tr.T("times.alerts_off"), tr.T("times.sound_off")
	if s.Enabled {
		enabled = tr.T("times.alerts_on")
	}
	if s.Sound {
		sound = tr.T("times.sound_on")
	}
	return enabled + "\n" + sound
}

// nextPrayer returns the first prayer after now, wrapping to fajr after isha.
func nextPrayer(schedule *model.PrayerSchedule, now time.Time) (model.PrayerKey, string, bool) {
	current := now.Format("15:04")
	for _, key := range model.PrayerKeys {
		clock, ok := schedule.TimeOf(key)
		if ok && clock > current {
			return key, clock, true
		}
	}
	clock, ok := schedule.TimeOf(model.Fajr)
	return model.Fajr, clock, ok
}

// ShowAlert posts the prayer-due prompt with its acknowledgement button.
func (b *Bot) ShowAlert(ctx context.Context, key model.PrayerKey) error {
	chatID := b.ownerChat()
	if chatID == 0 {
		return errNoOwnerChat
	}
	sent, err := b.sendMarkup(chatID, b.tr.Tf("alert.due", key.DisplayName()), alertKeyboard(b.tr))
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	b.mu.Lock()
	b.alertMsgID, b.alertKey = sent.MessageID, key
	b.mu.Unlock()
	return nil
}

// HideAlert turns the prompt into a plain record of the acknowledged prayer.
func (b *Bot) HideAlert(ctx context.Context) error {
	b.mu.Lock()
	chatID, msgID, key := b.chatID, b.alertMsgID, b.alertKey
	b.alertMsgID, b.alertKey = 0, ""
	b.mu.Unlock()
	if msgID == 0 {
		return nil
	}
	b.editText(chatID, msgID, b.tr.Tf("alert.acked", key.DisplayName()), nil)
	return nil
}

// PlaySound posts an audio message. Stopping the handle deletes it.
func (b *Bot) PlaySound(ctx context.Context, url string) (service.AudioHandle, error) {
	chatID := b.ownerChat()
	if chatID == 0 {
		return nil, errNoOwnerChat
	}
	sent, err := b.out.Send(tgbotapi.NewAudio(chatID, tgbotapi.FileURL(url)))
	if err != nil {
		return nil, fmt.Errorf("send audio: %w", err)
	}
	return &audioMessage{out: b.out, chatID: chatID, msgID: sent.MessageID}, nil
}

type audioMessage struct {
	out    sender
	chatID int64
	msgID  int
}

func (a *audioMessage) Stop(ctx context.Context) error {
	if _, err := a.out.Request(tgbotapi.NewDeleteMessage(a.chatID, a.msgID)); err != nil {
		return fmt.Errorf("delete audio message: %w", err)
	}
	return nil
}
