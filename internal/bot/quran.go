package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"rawdah/internal/i18n"
	"rawdah/internal/model"
	"rawdah/internal/service"
)

const (
	chaptersPerPage = 10
	// Telegram caps a message at 4096 characters.
	chunkLimit = 3500
)

func (b *Bot) setQuranView(query string, page int) {
	b.mu.Lock()
	b.quranQuery, b.quranPage = query, page
	b.mu.Unlock()
}

func (b *Bot) quranView() (string, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quranQuery, b.quranPage
}

func (b *Bot) chapterList(ctx context.Context, page int) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	query, _ := b.quranView()
	chapters, err := b.svc.Quran.Search(ctx, query)
	if err != nil {
		return "", nil, err
	}
	b.setQuranView(query, page)
	text, markup := renderChapterList(b.tr, chapters, page)
	return text, markup, nil
}

func (b *Bot) sendChapterList(ctx context.Context, chatID int64, page int) error {
	text, markup, err := b.chapterList(ctx, page)
	if err != nil {
		log.Warn().Err(err).Msg("list chapters")
		return b.sendText(chatID, b.tr.T("quran.fetch_failed"))
	}
	if markup == nil {
		return b.sendText(chatID, text)
	}
	return b.sendWithReplyMarkup(chatID, text, *markup)
}

func (b *Bot) editChapterList(ctx context.Context, chatID int64, msgID, page int) error {
	text, markup, err := b.chapterList(ctx, page)
	if err != nil {
		log.Warn().Err(err).Msg("list chapters")
		return b.sendText(chatID, b.tr.T("quran.fetch_failed"))
	}
	b.editText(chatID, msgID, text, markup)
	return nil
}

// renderChapterList builds one page of the chapter index.
func renderChapterList(tr *i18n.Translator, chapters []model.Surah, page int) (string, *tgbotapi.InlineKeyboardMarkup) {
	if len(chapters) == 0 {
		return tr.T("quran.no_results"), nil
	}
	pages := (len(chapters) + chaptersPerPage - 1) / chaptersPerPage
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	start := page * chaptersPerPage
	end := min(start+chaptersPerPage, len(chapters))

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ch := range chapters[start:end] {
		label := fmt.Sprintf("%d. %s · %s", ch.Number, ch.Name, ch.EnglishName)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbChapterPrefix, ch.Number)),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(tr.T("btn.prev"), fmt.Sprintf("%s%d", cbPagePrefix, page-1)))
	}
	if page < pages-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(tr.T("btn.next"), fmt.Sprintf("%s%d", cbPagePrefix, page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	text := tr.Tf("quran.title", len(chapters)) + fmt.Sprintf(" · %d/%d", page+1, pages) + "\n" + tr.T("quran.search_hint")
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return text, &markup
}

func (b *Bot) openChapter(ctx context.Context, chatID int64, number int) error {
	detail, err := b.svc.Quran.OpenChapter(ctx, number)
	switch {
	case errors.Is(err, service.ErrNoSuchChapter):
		return b.sendText(chatID, b.tr.T("quran.bad_number"))
	case err != nil:
		log.Warn().Err(err).Int("chapter", number).Msg("open chapter")
		return b.sendText(chatID, b.tr.T("quran.chapter_failed"))
	}

	if _, err := b.sendMarkup(chatID, chapterHeader(b.tr, detail), chapterKeyboard(b.tr, false)); err != nil {
		return err
	}

	for _, chunk := range splitText(chapterBody(detail), chunkLimit) {
		if _, err := b.sendMarkup(chatID, chunk, nil); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) toggleRecitation(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	playing, err := b.svc.Quran.ToggleRecitation(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("toggle recitation")
		b.answer(cb.ID, b.tr.T("quran.audio_failed"))
	} else {
		b.answer(cb.ID, "")
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, chapterKeyboard(b.tr, playing))
	if _, err := b.out.Request(edit); err != nil {
		log.Debug().Err(err).Msg("edit chapter keyboard")
	}
	return nil
}

func chapterKeyboard(tr *i18n.Translator, playing bool) tgbotapi.InlineKeyboardMarkup {
	play := tr.T("btn.play")
	if playing {
		play = tr.T("btn.pause")
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(play, cbPlay),
			tgbotapi.NewInlineKeyboardButtonData(tr.T("btn.back"), cbBack),
		),
	)
}

func chapterHeader(tr *i18n.Translator, d *model.SurahDetail) string {
	english := d.EnglishName
	if d.EnglishNameTranslation != "" {
		english += " (" + d.EnglishNameTranslation + ")"
	}
	header := tr.Tf("quran.chapter_header",
		html.EscapeString(d.Name),
		html.EscapeString(english),
		tr.T("quran."+d.RevelationType),
		d.NumberOfAyahs,
	)
	if service.HasBasmalaHeader(d.Number) {
		header += "\n\n" + service.Basmala
	}
	return header
}

func chapterBody(d *model.SurahDetail) string {
	var sb strings.Builder
	for _, ayah := range d.Ayahs {
		text := service.VerseText(d.Number, ayah)
		if text == "" {
			continue
		}
		sb.WriteString(html.EscapeString(text))
		sb.WriteString(fmt.Sprintf(" ﴿%d﴾ ", ayah.NumberInSurah))
	}
	return strings.TrimSpace(sb.String())
}

// splitText cuts s into pieces of at most limit runes, preferring to break
// at whitespace.
func splitText(s string, limit int) []string {
	var chunks []string
	for utf8.RuneCountInString(s) > limit {
		runes := []rune(s)
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i] == ' ' || runes[i] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
		s = strings.TrimSpace(string(runes[cut:]))
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}
