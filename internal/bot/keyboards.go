package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rawdah/internal/i18n"
)

func mainMenuKeyboard(tr *i18n.Translator) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(tr.T("menu.today")),
			tgbotapi.NewKeyboardButton(tr.T("menu.times")),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(tr.T("menu.quran")),
			tgbotapi.NewKeyboardButton(tr.T("menu.help")),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonLocation(tr.T("menu.location")),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func resetKeyboard(tr *i18n.Translator) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tr.T("btn.reset_confirm"), cbResetConfirm),
			tgbotapi.NewInlineKeyboardButtonData(tr.T("btn.cancel"), cbResetCancel),
		),
	)
}

func alertKeyboard(tr *i18n.Translator) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tr.T("alert.ack"), cbAck),
		),
	)
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "⬜️"
}
