package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"rawdah/internal/model"
	"rawdah/internal/repository"
)

// SettingsSource exposes the current notification settings.
type SettingsSource interface {
	Settings() model.NotificationSettings
}

// TrackerService owns today's progress record and the notification settings.
// Every mutation rewrites the persisted copy; storage failures are logged and
// the in-memory state stays authoritative.
type TrackerService struct {
	repo  *repository.StateRepository
	clock Clock

	mu       sync.Mutex
	progress model.DailyProgress
	settings model.NotificationSettings
}

func NewTrackerService(repo *repository.StateRepository, clock Clock) *TrackerService {
	if clock == nil {
		clock = SystemClock
	}
	return &TrackerService{
		repo:     repo,
		clock:    clock,
		progress: model.NewDailyProgress(clock.Now()),
		settings: model.DefaultNotificationSettings(),
	}
}

// Load rehydrates progress and settings from storage. A record stamped with
// another day is discarded in favour of a fresh one.
func (s *TrackerService) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today()
	s.progress = model.NewDailyProgress(s.clock.Now())

	stored, err := s.repo.LoadProgress(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		log.Warn().Err(err).Msg("load progress failed, starting fresh")
	case stored.Date != today:
		log.Info().Str("stored", stored.Date).Str("today", today).Msg("discarding stale progress")
		s.persistProgress(ctx)
	default:
		stored.Normalize()
		s.progress = *stored
	}

	s.settings = model.DefaultNotificationSettings()
	settings, err := s.repo.LoadSettings(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		log.Warn().Err(err).Msg("load settings failed, using defaults")
	default:
		s.settings = *settings
	}
}

// Progress returns today's record, replacing it first if the day changed.
func (s *TrackerService) Progress(ctx context.Context) model.DailyProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolloverLocked(ctx)
	return s.progress.Clone()
}

// Rollover replaces a stale record and reports whether it did.
func (s *TrackerService) Rollover(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolloverLocked(ctx)
}

// TogglePrayer flips the fard or sunnah flag of a prayer.
func (s *TrackerService) TogglePrayer(ctx context.Context, key model.PrayerKey, field string) (model.DailyProgress, error) {
	if !key.Valid() {
		return model.DailyProgress{}, fmt.Errorf("%w: %q", ErrUnknownPrayer, key)
	}
	return s.mutate(ctx, func(p *model.DailyProgress) error {
		status := p.Prayers[key]
		switch strings.ToLower(field) {
		case "fard":
			status.Fard = !status.Fard
		case "sunnah":
			status.Sunnah = !status.Sunnah
		default:
			return fmt.Errorf("%w: prayer %q", ErrUnknownField, field)
		}
		p.Prayers[key] = status
		return nil
	})
}

// ToggleAdhkar flips the morning or evening remembrance.
func (s *TrackerService) ToggleAdhkar(ctx context.Context, field string) (model.DailyProgress, error) {
	return s.mutate(ctx, func(p *model.DailyProgress) error {
		switch strings.ToLower(field) {
		case "morning":
			p.Adhkar.Morning = !p.Adhkar.Morning
		case "evening":
			p.Adhkar.Evening = !p.Adhkar.Evening
		default:
			return fmt.Errorf("%w: adhkar %q", ErrUnknownField, field)
		}
		return nil
	})
}

// ToggleStudy flips the review or reading task.
func (s *TrackerService) ToggleStudy(ctx context.Context, field string) (model.DailyProgress, error) {
	return s.mutate(ctx, func(p *model.DailyProgress) error {
		switch strings.ToLower(field) {
		case "review":
			p.Study.Review = !p.Study.Review
		case "reading":
			p.Study.Reading = !p.Study.Reading
		default:
			return fmt.Errorf("%w: study %q", ErrUnknownField, field)
		}
		return nil
	})
}

// SetNotes replaces the study notes.
func (s *TrackerService) SetNotes(ctx context.Context, notes string) model.DailyProgress {
	p, _ := s.mutate(ctx, func(p *model.DailyProgress) error {
		p.Study.Notes = notes
		return nil
	})
	return p
}

// Reset clears today's record.
func (s *TrackerService) Reset(ctx context.Context) model.DailyProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = model.NewDailyProgress(s.clock.Now())
	s.persistProgress(ctx)
	return s.progress.Clone()
}

func (s *TrackerService) Settings() model.NotificationSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// ToggleEnabled switches prayer alerts on or off.
func (s *TrackerService) ToggleEnabled(ctx context.Context) model.NotificationSettings {
	return s.mutateSettings(ctx, func(n *model.NotificationSettings) { n.Enabled = !n.Enabled })
}

// ToggleSound mutes or unmutes the alert sound.
func (s *TrackerService) ToggleSound(ctx context.Context) model.NotificationSettings {
	return s.mutateSettings(ctx, func(n *model.NotificationSettings) { n.Sound = !n.Sound })
}

func (s *TrackerService) mutate(ctx context.Context, apply func(*model.DailyProgress) error) (model.DailyProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rolloverLocked(ctx)
	next := s.progress.Clone()
	if err := apply(&next); err != nil {
		return s.progress.Clone(), err
	}
	s.progress = next
	s.persistProgress(ctx)
	return s.progress.Clone(), nil
}

func (s *TrackerService) mutateSettings(ctx context.Context, apply func(*model.NotificationSettings)) model.NotificationSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	apply(&s.settings)
	if err := s.repo.SaveSettings(ctx, s.settings); err != nil {
		log.Warn().Err(err).Msg("save settings failed")
	}
	return s.settings
}

func (s *TrackerService) rolloverLocked(ctx context.Context) bool {
	today := s.today()
	if s.progress.Date == today {
		return false
	}
	log.Info().Str("from", s.progress.Date).Str("to", today).Msg("day changed, resetting progress")
	s.progress = model.NewDailyProgress(s.clock.Now())
	s.persistProgress(ctx)
	return true
}

func (s *TrackerService) persistProgress(ctx context.Context) {
	if err := s.repo.SaveProgress(ctx, s.progress); err != nil {
		log.Warn().Err(err).Msg("save progress failed")
	}
}

func (s *TrackerService) today() string {
	return s.clock.Now().Format(model.DateLayout)
}
