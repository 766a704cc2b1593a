package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"rawdah/internal/i18n"
	"rawdah/internal/model"
	"rawdah/internal/service"
)

const (
	cbPrayerPrefix  = "p:"
	cbAdhkarPrefix  = "a:"
	cbStudyPrefix   = "s:"
	cbChapterPrefix = "q:"
	cbPagePrefix    = "ql:"
	cbNotes         = "notes"
	cbReset         = "reset"
	cbResetConfirm  = "reset:yes"
	cbResetCancel   = "reset:no"
	cbAck           = "ack"
	cbToggleEnabled = "set:enabled"
	cbToggleSound   = "set:sound"
	cbTimesRefresh  = "times"
	cbPlay          = "play"
	cbBack          = "back"
)

// sender is the part of the Bot API the bot talks through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Services are the application services behind the chat surface.
type Services struct {
	Tracker  *service.TrackerService
	Times    *service.PrayerTimesService
	Quran    *service.QuranService
	Mentor   *service.MentorService
	Reminder *service.ReminderService
	Clock    service.Clock
}

// Bot serves a single owner chat: the daily tracker, prayer times and
// alerts, the Quran browser and the mentor chat.
type Bot struct {
	api       *tgbotapi.BotAPI
	out       sender
	tr        *i18n.Translator
	svc       Services
	presenter *service.AlertPresenter

	mu            sync.Mutex
	chatID        int64
	ownerFixed    bool
	alertMsgID    int
	alertKey      model.PrayerKey
	awaitingNotes bool
	quranQuery    string
	quranPage     int
}

func New(token string, ownerChatID int64, tr *i18n.Translator, svc Services) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	b := newBot(api, tr, svc, ownerChatID)
	b.api = api
	return b, nil
}

func newBot(out sender, tr *i18n.Translator, svc Services, ownerChatID int64) *Bot {
	if svc.Clock == nil {
		svc.Clock = service.SystemClock
	}
	if svc.Reminder == nil {
		svc.Reminder = service.NewReminderService()
	}
	return &Bot{
		out:        out,
		tr:         tr,
		svc:        svc,
		chatID:     ownerChatID,
		ownerFixed: ownerChatID != 0,
	}
}

// SetPresenter wires the alert presenter that owns acknowledgements.
func (b *Bot) SetPresenter(p *service.AlertPresenter) {
	b.presenter = p
}

// SetQuran wires the Quran browser. It plays recitations through the bot,
// so it is built after it.
func (b *Bot) SetQuran(q *service.QuranService) {
	b.svc.Quran = q
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot api not initialised")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			log.Error().Err(err).Str("data", update.CallbackQuery.Data).Msg("handle callback")
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if !b.authorize(update.Message.Chat.ID) {
			log.Warn().Int64("chat", update.Message.Chat.ID).Msg("ignoring message from foreign chat")
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.Error().Err(err).Msg("handle message")
		}
	}
}

// authorize adopts the first private chat when no owner is configured.
func (b *Bot) authorize(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.chatID == 0 && !b.ownerFixed {
		b.chatID = chatID
		log.Info().Int64("chat", chatID).Msg("owner chat adopted")
	}
	return b.chatID == chatID
}

func (b *Bot) ownerChat() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Location != nil {
		return b.handleLocation(ctx, msg.Chat.ID, msg.Location)
	}

	if msg.IsCommand() {
		log.Info().Str("command", msg.Command()).Msg("command received")
		b.setAwaitingNotes(false)
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		b.setAwaitingNotes(false)
		return err
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if b.takeAwaitingNotes() {
		b.svc.Tracker.SetNotes(ctx, text)
		return b.sendText(msg.Chat.ID, b.tr.T("notes.saved"))
	}

	go b.runMentorTurn(ctx, msg.Chat.ID, text)
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.sendText(chatID, b.tr.T("help"))
	case "today":
		return b.sendToday(ctx, chatID)
	case "notes":
		if args == "" {
			b.setAwaitingNotes(true)
			return b.sendText(chatID, b.tr.T("notes.prompt"))
		}
		b.svc.Tracker.SetNotes(ctx, args)
		return b.sendText(chatID, b.tr.T("notes.saved"))
	case "reset":
		return b.sendWithReplyMarkup(chatID, b.tr.T("reset.confirm"), resetKeyboard(b.tr))
	case "times":
		return b.sendTimes(ctx, chatID)
	case "alerts":
		settings := b.svc.Tracker.ToggleEnabled(ctx)
		return b.sendText(chatID, settingsLine(b.tr, settings))
	case "sound":
		settings := b.svc.Tracker.ToggleSound(ctx)
		return b.sendText(chatID, settingsLine(b.tr, settings))
	case "quran":
		b.setQuranView(args, 0)
		return b.sendChapterList(ctx, chatID, 0)
	case "surah":
		number, err := strconv.Atoi(args)
		if err != nil {
			return b.sendText(chatID, b.tr.T("quran.bad_number"))
		}
		return b.openChapter(ctx, chatID, number)
	case "report":
		return b.sendText(chatID, b.svc.Reminder.DailySummary(b.svc.Tracker.Progress(ctx)))
	case "clearchat":
		if err := b.svc.Mentor.Clear(ctx); err != nil {
			if errors.Is(err, service.ErrMentorBusy) {
				return b.sendText(chatID, b.tr.T("mentor.busy"))
			}
			return err
		}
		return b.sendText(chatID, b.tr.T("mentor.cleared"))
	default:
		return b.sendText(chatID, b.tr.T("common.unknown_command"))
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := b.tr.T("start.anonymous")
	if msg.From != nil && strings.TrimSpace(msg.From.FirstName) != "" {
		name = strings.TrimSpace(msg.From.FirstName)
	}
	text := b.tr.Tf("start.greeting", html.EscapeString(name)) + "\n\n" + b.tr.T("help")
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case b.tr.T("menu.today"):
		return true, b.sendToday(ctx, msg.Chat.ID)
	case b.tr.T("menu.times"):
		return true, b.sendTimes(ctx, msg.Chat.ID)
	case b.tr.T("menu.quran"):
		b.setQuranView("", 0)
		return true, b.sendChapterList(ctx, msg.Chat.ID, 0)
	case b.tr.T("menu.help"):
		return true, b.sendText(msg.Chat.ID, b.tr.T("help"))
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if !b.authorize(cb.Message.Chat.ID) {
		b.answer(cb.ID, "")
		return nil
	}

	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID
	data := cb.Data
	log.Debug().Str("data", data).Msg("callback received")

	switch {
	case strings.HasPrefix(data, cbPrayerPrefix):
		b.answer(cb.ID, "")
		key, field, ok := strings.Cut(strings.TrimPrefix(data, cbPrayerPrefix), ":")
		if !ok {
			return nil
		}
		if _, err := b.svc.Tracker.TogglePrayer(ctx, model.PrayerKey(key), field); err != nil {
			return err
		}
		return b.refreshToday(ctx, chatID, msgID)
	case strings.HasPrefix(data, cbAdhkarPrefix):
		b.answer(cb.ID, "")
		if _, err := b.svc.Tracker.ToggleAdhkar(ctx, strings.TrimPrefix(data, cbAdhkarPrefix)); err != nil {
			return err
		}
		return b.refreshToday(ctx, chatID, msgID)
	case strings.HasPrefix(data, cbStudyPrefix):
		b.answer(cb.ID, "")
		if _, err := b.svc.Tracker.ToggleStudy(ctx, strings.TrimPrefix(data, cbStudyPrefix)); err != nil {
			return err
		}
		return b.refreshToday(ctx, chatID, msgID)
	case data == cbNotes:
		b.answer(cb.ID, "")
		b.setAwaitingNotes(true)
		return b.sendText(chatID, b.tr.T("notes.prompt"))
	case data == cbReset:
		b.answer(cb.ID, "")
		return b.sendWithReplyMarkup(chatID, b.tr.T("reset.confirm"), resetKeyboard(b.tr))
	case data == cbResetConfirm:
		b.answer(cb.ID, b.tr.T("reset.done"))
		b.svc.Tracker.Reset(ctx)
		b.editText(chatID, msgID, b.tr.T("reset.done"), nil)
		return b.sendToday(ctx, chatID)
	case data == cbResetCancel:
		b.answer(cb.ID, "")
		b.editText(chatID, msgID, b.tr.T("reset.cancelled"), nil)
		return nil
	case data == cbAck:
		if b.presenter == nil || !b.presenter.Dismiss(ctx) {
			b.answer(cb.ID, b.tr.T("alert.none"))
			return nil
		}
		b.answer(cb.ID, "")
		return nil
	case data == cbToggleEnabled:
		b.answer(cb.ID, "")
		b.svc.Tracker.ToggleEnabled(ctx)
		return b.refreshTimes(ctx, chatID, msgID)
	case data == cbToggleSound:
		b.answer(cb.ID, "")
		b.svc.Tracker.ToggleSound(ctx)
		return b.refreshTimes(ctx, chatID, msgID)
	case data == cbTimesRefresh:
		b.answer(cb.ID, "")
		if _, err := b.svc.Times.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("refresh prayer times")
		}
		return b.refreshTimes(ctx, chatID, msgID)
	case strings.HasPrefix(data, cbPagePrefix):
		b.answer(cb.ID, "")
		page, err := strconv.Atoi(strings.TrimPrefix(data, cbPagePrefix))
		if err != nil {
			return nil
		}
		return b.editChapterList(ctx, chatID, msgID, page)
	case strings.HasPrefix(data, cbChapterPrefix):
		b.answer(cb.ID, "")
		number, err := strconv.Atoi(strings.TrimPrefix(data, cbChapterPrefix))
		if err != nil {
			return nil
		}
		return b.openChapter(ctx, chatID, number)
	case data == cbPlay:
		return b.toggleRecitation(ctx, cb)
	case data == cbBack:
		b.answer(cb.ID, "")
		b.svc.Quran.Close(ctx)
		_, page := b.quranView()
		return b.sendChapterList(ctx, chatID, page)
	default:
		b.answer(cb.ID, "")
		return nil
	}
}

// SendReport delivers the progress report to the owner chat.
func (b *Bot) SendReport(ctx context.Context) error {
	chatID := b.ownerChat()
	if chatID == 0 {
		return errors.New(b.tr.T("report.empty_chat"))
	}
	return b.sendText(chatID, b.svc.Reminder.DailySummary(b.svc.Tracker.Progress(ctx)))
}

func (b *Bot) setAwaitingNotes(v bool) {
	b.mu.Lock()
	b.awaitingNotes = v
	b.mu.Unlock()
}

func (b *Bot) takeAwaitingNotes() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.awaitingNotes
	b.awaitingNotes = false
	return v
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard(b.tr)
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	_, err := b.sendMarkup(chatID, text, markup)
	return err
}

func (b *Bot) sendMarkup(chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	return b.out.Send(msg)
}

// editText replaces a message's text. A nil markup drops the inline keyboard.
func (b *Bot) editText(chatID int64, msgID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = markup
	if _, err := b.out.Request(edit); err != nil {
		log.Debug().Err(err).Int("message", msgID).Msg("edit message")
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.out.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Debug().Err(err).Msg("callback ack")
	}
}
