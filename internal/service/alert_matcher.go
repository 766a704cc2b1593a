package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"rawdah/internal/model"
)

// AlertState is the state of the prayer alert matcher.
type AlertState int

const (
	// AlertIdle means no schedule is loaded.
	AlertIdle AlertState = iota
	// AlertArmed means a schedule is loaded and no alert is awaiting acknowledgement.
	AlertArmed
	// AlertAlerting means an alert was raised and not yet acknowledged.
	AlertAlerting
)

func (s AlertState) String() string {
	switch s {
	case AlertArmed:
		return "armed"
	case AlertAlerting:
		return "alerting"
	default:
		return "idle"
	}
}

// AlertSink receives prayer-due events.
type AlertSink interface {
	PrayerDue(ctx context.Context, key model.PrayerKey)
}

// FanOut delivers each event to every sink in order.
type FanOut []AlertSink

func (f FanOut) PrayerDue(ctx context.Context, key model.PrayerKey) {
	for _, sink := range f {
		if sink != nil {
			sink.PrayerDue(ctx, key)
		}
	}
}

// AlertMatcher compares the wall clock against the loaded schedule. Tick is
// meant to be driven every few seconds; match evaluation happens at most once
// per clock minute.
type AlertMatcher struct {
	clock    Clock
	settings SettingsSource

	mu         sync.Mutex
	sink       AlertSink
	schedule   *model.PrayerSchedule
	lastMinute string
	active     model.PrayerKey
	state      AlertState
}

func NewAlertMatcher(clock Clock, settings SettingsSource) *AlertMatcher {
	if clock == nil {
		clock = SystemClock
	}
	return &AlertMatcher{clock: clock, settings: settings}
}

// SetSink installs the receiver of raised events.
func (m *AlertMatcher) SetSink(sink AlertSink) {
	m.mu.Lock()
	m.sink = sink
	m.mu.Unlock()
}

// SetSchedule loads a schedule, or unloads it when nil.
func (m *AlertMatcher) SetSchedule(schedule *model.PrayerSchedule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.schedule = schedule
	switch {
	case schedule == nil:
		m.state = AlertIdle
		m.active = ""
	case m.state == AlertIdle:
		m.state = AlertArmed
	}
}

// Tick evaluates the current minute and returns the prayers raised, in
// schedule order.
func (m *AlertMatcher) Tick(ctx context.Context) []model.PrayerKey {
	m.mu.Lock()
	if m.schedule == nil || (m.settings != nil && !m.settings.Settings().Enabled) {
		m.mu.Unlock()
		return nil
	}

	minute := m.clock.Now().Format("15:04")
	if minute == m.lastMinute {
		m.mu.Unlock()
		return nil
	}
	m.lastMinute = minute

	var raised []model.PrayerKey
	for _, entry := range m.schedule.Entries {
		key, ok := entry.PrayerKey()
		if !ok || entry.Clock() != minute {
			continue
		}
		raised = append(raised, key)
	}
	if len(raised) > 0 {
		m.active = raised[len(raised)-1]
		m.state = AlertAlerting
	}
	sink := m.sink
	m.mu.Unlock()

	for _, key := range raised {
		log.Info().Str("prayer", string(key)).Str("minute", minute).Msg("prayer due")
		if sink != nil {
			sink.PrayerDue(ctx, key)
		}
	}
	return raised
}

// Acknowledge returns an alerting matcher to armed.
func (m *AlertMatcher) Acknowledge() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != AlertAlerting {
		return false
	}
	m.active = ""
	m.state = AlertArmed
	return true
}

func (m *AlertMatcher) State() AlertState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active returns the prayer awaiting acknowledgement.
func (m *AlertMatcher) Active() (model.PrayerKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.state == AlertAlerting
}
