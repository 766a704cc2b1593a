package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"rawdah/internal/model"
)

// DefaultNotificationSound is played with each prayer alert.
const DefaultNotificationSound = "https://assets.mixkit.co/active_storage/sfx/2869/2869-preview.mp3"

const alertAudioOwner = "alert"

// AlertDisplay shows and removes the acknowledgement prompt.
type AlertDisplay interface {
	ShowAlert(ctx context.Context, key model.PrayerKey) error
	HideAlert(ctx context.Context) error
}

// SoundPlayer starts playback of an audio URL.
type SoundPlayer interface {
	PlaySound(ctx context.Context, url string) (AudioHandle, error)
}

// AlertPresenter turns prayer-due events into a prompt that stays until the
// user dismisses it, with an optional sound.
type AlertPresenter struct {
	display  AlertDisplay
	player   SoundPlayer
	slot     *AudioSlot
	settings SettingsSource
	matcher  *AlertMatcher
	soundURL string

	mu      sync.Mutex
	showing model.PrayerKey
}

func NewAlertPresenter(display AlertDisplay, player SoundPlayer, slot *AudioSlot, settings SettingsSource, matcher *AlertMatcher, soundURL string) *AlertPresenter {
	if soundURL == "" {
		soundURL = DefaultNotificationSound
	}
	if slot == nil {
		slot = NewAudioSlot()
	}
	return &AlertPresenter{
		display:  display,
		player:   player,
		slot:     slot,
		settings: settings,
		matcher:  matcher,
		soundURL: soundURL,
	}
}

// PrayerDue shows the prompt for key. A newer alert replaces the one shown.
func (p *AlertPresenter) PrayerDue(ctx context.Context, key model.PrayerKey) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.showing != "" {
		p.hideLocked(ctx)
	}
	if err := p.display.ShowAlert(ctx, key); err != nil {
		log.Error().Err(err).Str("prayer", string(key)).Msg("show alert failed")
	}
	p.showing = key

	if p.player == nil || (p.settings != nil && !p.settings.Settings().Sound) {
		return
	}
	err := p.slot.Play(ctx, alertAudioOwner, func(ctx context.Context) (AudioHandle, error) {
		return p.player.PlaySound(ctx, p.soundURL)
	})
	if err != nil {
		log.Warn().Err(err).Msg("alert sound failed")
	}
}

// Dismiss acknowledges the shown alert. It reports false when nothing was shown.
func (p *AlertPresenter) Dismiss(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.showing == "" {
		return false
	}
	p.hideLocked(ctx)
	if p.matcher != nil {
		p.matcher.Acknowledge()
	}
	return true
}

// Showing returns the prayer whose prompt is displayed.
func (p *AlertPresenter) Showing() (model.PrayerKey, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.showing, p.showing != ""
}

func (p *AlertPresenter) hideLocked(ctx context.Context) {
	if err := p.slot.StopOwner(ctx, alertAudioOwner); err != nil {
		log.Warn().Err(err).Msg("stop alert sound failed")
	}
	if err := p.display.HideAlert(ctx); err != nil {
		log.Warn().Err(err).Msg("hide alert failed")
	}
	p.showing = ""
}
