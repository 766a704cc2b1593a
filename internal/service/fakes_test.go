package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"rawdah/internal/model"
	"rawdah/internal/repository"
)

type memKV struct {
	mu      sync.Mutex
	data    map[string]string
	puts    int
	failing bool
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return "", errors.New("disk on fire")
	}
	v, ok := m.data[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("disk on fire")
	}
	m.puts++
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("disk on fire")
	}
	delete(m.data, key)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type staticSettings model.NotificationSettings

func (s staticSettings) Settings() model.NotificationSettings {
	return model.NotificationSettings(s)
}

type fakeHandle struct {
	url     string
	stopped bool
}

func (h *fakeHandle) Stop(context.Context) error {
	h.stopped = true
	return nil
}

type fakePlayer struct {
	mu      sync.Mutex
	handles []*fakeHandle
	err     error
}

func (p *fakePlayer) PlaySound(_ context.Context, url string) (AudioHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	h := &fakeHandle{url: url}
	p.handles = append(p.handles, h)
	return h, nil
}

func (p *fakePlayer) last() *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.handles) == 0 {
		return nil
	}
	return p.handles[len(p.handles)-1]
}

type recordingSink struct {
	mu   sync.Mutex
	keys []model.PrayerKey
}

func (r *recordingSink) PrayerDue(_ context.Context, key model.PrayerKey) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 7, hour, minute, 0, 0, time.Local)
}

func testSchedule() *model.PrayerSchedule {
	return &model.PrayerSchedule{
		Date: "2024-03-07",
		Entries: []model.ScheduleEntry{
			{Name: "Fajr", Time: "05:00"},
			{Name: "Sunrise", Time: "06:20"},
			{Name: "Dhuhr", Time: "12:15"},
			{Name: "Asr", Time: "15:30"},
			{Name: "Maghrib", Time: "18:45"},
			{Name: "Isha", Time: "20:00"},
		},
	}
}
