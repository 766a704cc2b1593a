package service

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rawdah/internal/model"
	"rawdah/internal/remote"
	"rawdah/internal/repository"
)

// MentorFallback replaces the reply when the exchange fails.
const MentorFallback = "عذراً يا صديقي، حدثت مشكلة في الاتصال. هل يمكنك إعادة المحاولة؟"

// DefaultMentorTemperature is the sampling temperature of mentor replies.
const DefaultMentorTemperature = 0.8

// ChatStreamer opens a streaming exchange with the chat model.
type ChatStreamer interface {
	Stream(ctx context.Context, req remote.ChatRequest) iter.Seq2[string, error]
}

// ProgressSource exposes today's progress.
type ProgressSource interface {
	Progress(ctx context.Context) model.DailyProgress
}

// MentorService keeps the mentor transcript and runs one conversation turn
// at a time.
type MentorService struct {
	streamer    ChatStreamer
	progress    ProgressSource
	reminder    *ReminderService
	repo        *repository.StateRepository
	clock       Clock
	temperature float32

	mu         sync.Mutex
	transcript []model.ChatMessage
	pending    *model.ChatMessage
	busy       bool
}

func NewMentorService(streamer ChatStreamer, progress ProgressSource, reminder *ReminderService, repo *repository.StateRepository, clock Clock, temperature float32) *MentorService {
	if clock == nil {
		clock = SystemClock
	}
	if reminder == nil {
		reminder = NewReminderService()
	}
	return &MentorService{
		streamer:    streamer,
		progress:    progress,
		reminder:    reminder,
		repo:        repo,
		clock:       clock,
		temperature: temperature,
	}
}

// Load restores the persisted transcript.
func (s *MentorService) Load(ctx context.Context) {
	messages, err := s.repo.LoadTranscript(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		messages = nil
	case err != nil:
		log.Warn().Err(err).Msg("load transcript failed, starting empty")
		messages = nil
	}

	s.mu.Lock()
	s.transcript = messages
	s.mu.Unlock()
}

// Transcript returns the conversation, including a reply still streaming in.
func (s *MentorService) Transcript() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Busy reports whether a turn is in flight.
func (s *MentorService) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Send runs one turn: the user message is appended at once, then the reply
// grows in a single assistant message as fragments arrive. onUpdate, if set,
// receives a snapshot of the transcript after each change. A failed exchange
// ends with one fallback reply.
func (s *MentorService) Send(ctx context.Context, text string, onUpdate func([]model.ChatMessage)) ([]model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if onUpdate == nil {
		onUpdate = func([]model.ChatMessage) {}
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrMentorBusy
	}
	s.busy = true
	history := append([]model.ChatMessage(nil), s.transcript...)
	s.transcript = append(s.transcript, s.newMessage(model.RoleUser, text))
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.pending = nil
		s.mu.Unlock()
	}()

	s.persist(ctx, snapshot)
	onUpdate(snapshot)

	reply, err := s.stream(ctx, history, text, onUpdate)
	if err != nil {
		log.Error().Err(err).Msg("mentor exchange failed")
		reply = MentorFallback
	}

	s.mu.Lock()
	final := s.newMessage(model.RoleAssistant, reply)
	if s.pending != nil {
		final.ID = s.pending.ID
	}
	s.pending = nil
	s.transcript = append(s.transcript, final)
	snapshot = s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	onUpdate(snapshot)
	return snapshot, nil
}

// Clear empties the transcript. It is refused while a turn is in flight.
func (s *MentorService) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrMentorBusy
	}
	s.transcript = nil
	s.mu.Unlock()

	if err := s.repo.ClearTranscript(context.WithoutCancel(ctx)); err != nil {
		log.Warn().Err(err).Msg("clear transcript failed")
	}
	return nil
}

func (s *MentorService) stream(ctx context.Context, history []model.ChatMessage, text string, onUpdate func([]model.ChatMessage)) (string, error) {
	if s.streamer == nil {
		return "", errors.New("mentor is not configured")
	}

	req := remote.ChatRequest{
		History:           history,
		Message:           text,
		SystemInstruction: s.reminder.SystemInstruction(s.progress.Progress(ctx)),
		Temperature:       s.temperature,
	}

	var reply strings.Builder
	for fragment, err := range s.streamer.Stream(ctx, req) {
		if err != nil {
			return "", err
		}
		reply.WriteString(fragment)

		s.mu.Lock()
		if s.pending == nil {
			msg := s.newMessage(model.RoleAssistant, "")
			s.pending = &msg
		}
		s.pending.Text = reply.String()
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		onUpdate(snapshot)
	}
	if strings.TrimSpace(reply.String()) == "" {
		return "", errors.New("empty reply")
	}
	return reply.String(), nil
}

func (s *MentorService) newMessage(role model.ChatRole, text string) model.ChatMessage {
	return model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: s.clock.Now().UnixMilli(),
	}
}

func (s *MentorService) snapshotLocked() []model.ChatMessage {
	out := make([]model.ChatMessage, 0, len(s.transcript)+1)
	out = append(out, s.transcript...)
	if s.pending != nil {
		out = append(out, *s.pending)
	}
	return out
}

// persist saves the transcript even when the turn's context was cancelled,
// so the stored transcript matches the one in memory.
func (s *MentorService) persist(ctx context.Context, messages []model.ChatMessage) {
	if err := s.repo.SaveTranscript(context.WithoutCancel(ctx), messages); err != nil {
		log.Warn().Err(err).Msg("save transcript failed")
	}
}
