package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"rawdah/internal/model"
)

// ScheduleFetcher retrieves the timings of one day at one place.
type ScheduleFetcher interface {
	FetchSchedule(ctx context.Context, latitude, longitude float64, date time.Time) (*model.PrayerSchedule, error)
}

// Location is a geographic fix.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// PrayerTimesService keeps the location fix and today's schedule, and feeds
// the schedule into the alert matcher.
type PrayerTimesService struct {
	fetcher ScheduleFetcher
	matcher *AlertMatcher
	clock   Clock

	mu       sync.Mutex
	location *Location
	schedule *model.PrayerSchedule
	lastErr  error
}

func NewPrayerTimesService(fetcher ScheduleFetcher, matcher *AlertMatcher, clock Clock) *PrayerTimesService {
	if clock == nil {
		clock = SystemClock
	}
	return &PrayerTimesService{fetcher: fetcher, matcher: matcher, clock: clock}
}

// SetLocation records a new fix and fetches its schedule.
func (s *PrayerTimesService) SetLocation(ctx context.Context, loc Location) (*model.PrayerSchedule, error) {
	if !loc.valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", ErrLocationUnavailable)
	}
	s.mu.Lock()
	s.location = &loc
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Location returns the current fix.
func (s *PrayerTimesService) Location() (Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return Location{}, false
	}
	return *s.location, true
}

// Refresh fetches today's schedule for the known location. Without a fix the
// source is not contacted. A failed fetch keeps a schedule of the same day
// and drops an older one.
func (s *PrayerTimesService) Refresh(ctx context.Context) (*model.PrayerSchedule, error) {
	s.mu.Lock()
	if s.location == nil {
		s.mu.Unlock()
		return nil, ErrLocationUnavailable
	}
	loc := *s.location
	s.mu.Unlock()

	now := s.clock.Now()
	schedule, err := s.fetcher.FetchSchedule(ctx, loc.Latitude, loc.Longitude, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Float64("lat", loc.Latitude).Float64("lon", loc.Longitude).Msg("fetch prayer times failed")
		s.lastErr = err
		if s.schedule != nil && s.schedule.Date != now.Format(model.DateLayout) {
			s.schedule = nil
			s.matcher.SetSchedule(nil)
		}
		return nil, fmt.Errorf("fetch schedule: %w", err)
	}
	s.schedule = schedule
	s.lastErr = nil
	s.matcher.SetSchedule(schedule)
	return schedule, nil
}

// Schedule returns the loaded schedule, or the reason there is none.
func (s *PrayerTimesService) Schedule() (*model.PrayerSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.location == nil:
		return nil, ErrLocationUnavailable
	case s.schedule != nil:
		return s.schedule, nil
	case s.lastErr != nil:
		return nil, s.lastErr
	default:
		return nil, nil
	}
}
