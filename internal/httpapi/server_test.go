package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"rawdah/internal/model"
	"rawdah/internal/remote"
	"rawdah/internal/repository"
	"rawdah/internal/service"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type stubFetcher struct {
	err error
}

func (f stubFetcher) FetchSchedule(_ context.Context, lat, lon float64, date time.Time) (*model.PrayerSchedule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.PrayerSchedule{
		Date: date.Format(model.DateLayout), Latitude: lat, Longitude: lon,
		Entries: []model.ScheduleEntry{{Name: "Fajr", Time: "05:00"}, {Name: "Dhuhr", Time: "12:15"}},
	}, nil
}

type stubScripture struct{}

func (stubScripture) ListSurahs(context.Context) ([]model.Surah, error) {
	return []model.Surah{
		{Number: 1, Name: "سُورَةُ ٱلْفَاتِحَةِ", EnglishName: "Al-Faatiha"},
		{Number: 2, Name: "سورة البقرة", EnglishName: "Al-Baqara"},
	}, nil
}

func (stubScripture) GetSurah(_ context.Context, n int) (*model.SurahDetail, error) {
	return &model.SurahDetail{
		Surah: model.Surah{Number: n, Name: "سورة البقرة", EnglishName: "Al-Baqara"},
		Ayahs: []model.Ayah{{NumberInSurah: 1, Text: service.Basmala + " الم"}, {NumberInSurah: 2, Text: "ذلك الكتاب"}},
	}, nil
}

func (stubScripture) AudioURL(n int) string { return fmt.Sprintf("https://audio.test/%d.mp3", n) }

type stubStreamer struct {
	fragments []string
}

func (s stubStreamer) Stream(context.Context, remote.ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range s.fragments {
			if !yield(f, nil) {
				return
			}
		}
	}
}

type stubDismisser struct{ showing bool }

func (d *stubDismisser) Dismiss(context.Context) bool {
	was := d.showing
	d.showing = false
	return was
}

type env struct {
	srv     *httptest.Server
	tracker *service.TrackerService
	quran   *service.QuranService
	alerts  *stubDismisser
}

func newEnv(t *testing.T, fetcher stubFetcher) *env {
	t.Helper()
	clock := service.ClockFunc(func() time.Time { return time.Date(2024, 3, 7, 9, 0, 0, 0, time.Local) })
	repo := repository.NewStateRepository(&memKV{data: map[string]string{}})
	tracker := service.NewTrackerService(repo, clock)
	tracker.Load(context.Background())
	matcher := service.NewAlertMatcher(clock, tracker)

	alerts := &stubDismisser{}
	quran := service.NewQuranService(stubScripture{}, nil, service.NewAudioSlot())
	s := NewServer(
		tracker,
		service.NewPrayerTimesService(fetcher, matcher, clock),
		quran,
		service.NewMentorService(stubStreamer{fragments: []string{"السلام ", "عليكم"}}, tracker, nil, repo, clock, service.DefaultMentorTemperature),
		alerts,
	)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &env{srv: srv, tracker: tracker, quran: quran, alerts: alerts}
}

func (e *env) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestProgressToggles(t *testing.T) {
	e := newEnv(t, stubFetcher{})

	resp := e.do(t, http.MethodPost, "/api/progress/prayers/fajr/sunnah", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	p := decode[model.DailyProgress](t, resp)
	if !p.Prayers[model.Fajr].Sunnah || p.Prayers[model.Fajr].Fard {
		t.Fatalf("unexpected prayers %+v", p.Prayers[model.Fajr])
	}

	if resp := e.do(t, http.MethodPost, "/api/progress/prayers/witr/fard", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown prayer should be rejected, got %d", resp.StatusCode)
	}
	if resp := e.do(t, http.MethodPost, "/api/progress/adhkar/noon", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field should be rejected, got %d", resp.StatusCode)
	}

	e.do(t, http.MethodPost, "/api/progress/adhkar/morning", "")
	e.do(t, http.MethodPost, "/api/progress/study/reading", "")
	e.do(t, http.MethodPut, "/api/progress/notes", `{"notes":"سورة الملك"}`)

	p = decode[model.DailyProgress](t, e.do(t, http.MethodGet, "/api/progress", ""))
	if !p.Adhkar.Morning || !p.Study.Reading || p.Study.Notes != "سورة الملك" {
		t.Fatalf("unexpected progress %+v", p)
	}

	p = decode[model.DailyProgress](t, e.do(t, http.MethodPost, "/api/progress/reset", ""))
	if p.Adhkar.Morning || p.Study.Notes != "" || p.Date != "2024-03-07" {
		t.Fatalf("reset should clear the day: %+v", p)
	}
}

func TestSettingsToggle(t *testing.T) {
	e := newEnv(t, stubFetcher{})
	s := decode[model.NotificationSettings](t, e.do(t, http.MethodPost, "/api/settings/sound", ""))
	if s.Sound || !s.Enabled {
		t.Fatalf("unexpected settings %+v", s)
	}
	s = decode[model.NotificationSettings](t, e.do(t, http.MethodGet, "/api/settings", ""))
	if s.Sound {
		t.Fatal("sound toggle not persisted")
	}
}

func TestScheduleLifecycle(t *testing.T) {
	e := newEnv(t, stubFetcher{})

	if resp := e.do(t, http.MethodGet, "/api/schedule", ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("no location should be a conflict, got %d", resp.StatusCode)
	}
	if resp := e.do(t, http.MethodPut, "/api/location", `{"latitude":120,"longitude":0}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad coordinates should be rejected, got %d", resp.StatusCode)
	}

	resp := e.do(t, http.MethodPut, "/api/location", `{"latitude":21.42,"longitude":39.83}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	schedule := decode[model.PrayerSchedule](t, e.do(t, http.MethodGet, "/api/schedule", ""))
	if clock, ok := schedule.TimeOf(model.Dhuhr); !ok || clock != "12:15" {
		t.Fatalf("unexpected schedule %+v", schedule)
	}
}

func TestScheduleFetchFailure(t *testing.T) {
	e := newEnv(t, stubFetcher{err: fmt.Errorf("dial: %w", remote.ErrUnavailable)})
	resp := e.do(t, http.MethodPut, "/api/location", `{"latitude":21.42,"longitude":39.83}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected bad gateway, got %d", resp.StatusCode)
	}
}

func TestAck(t *testing.T) {
	e := newEnv(t, stubFetcher{})
	e.alerts.showing = true

	if !decode[ackResponse](t, e.do(t, http.MethodPost, "/api/alert/ack", "")).Acknowledged {
		t.Fatal("first ack should dismiss the alert")
	}
	if decode[ackResponse](t, e.do(t, http.MethodPost, "/api/alert/ack", "")).Acknowledged {
		t.Fatal("second ack has nothing to dismiss")
	}
}

func TestChapters(t *testing.T) {
	e := newEnv(t, stubFetcher{})

	list := decode[[]model.Surah](t, e.do(t, http.MethodGet, "/api/chapters?q=baq", ""))
	if len(list) != 1 || list[0].Number != 2 {
		t.Fatalf("unexpected search result %+v", list)
	}

	ch := decode[chapterResponse](t, e.do(t, http.MethodGet, "/api/chapters/2", ""))
	if !ch.BasmalaHeader || ch.AudioURL != "https://audio.test/2.mp3" {
		t.Fatalf("unexpected chapter %+v", ch)
	}
	if ch.Ayahs[0].Text != "الم" {
		t.Fatalf("basmala should be stripped from verse 1, got %q", ch.Ayahs[0].Text)
	}

	if _, open := e.quran.Current(); open {
		t.Fatal("reading a chapter over http must not change the open chapter")
	}

	for _, path := range []string{"/api/chapters/0", "/api/chapters/115", "/api/chapters/x"} {
		if resp := e.do(t, http.MethodGet, path, ""); resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestMentorStream(t *testing.T) {
	e := newEnv(t, stubFetcher{})

	if resp := e.do(t, http.MethodPost, "/api/mentor", `{"message":"  "}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty message should be rejected, got %d", resp.StatusCode)
	}

	resp := e.do(t, http.MethodPost, "/api/mentor", `{"message":"كيف أحافظ على الفجر؟"}`)
	if ct := resp.Header.Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var frames []mentorFrame
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var f mentorFrame
		if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
			t.Fatalf("frame: %v", err)
		}
		frames = append(frames, f)
	}
	if len(frames) < 3 {
		t.Fatalf("expected streamed frames, got %d", len(frames))
	}
	first, last := frames[0], frames[len(frames)-1]
	if len(first.Messages) != 1 || first.Messages[0].Role != model.RoleUser {
		t.Fatalf("first frame should carry the user message: %+v", first)
	}
	if !last.Done || len(last.Messages) != 2 || last.Messages[1].Text != "السلام عليكم" {
		t.Fatalf("unexpected final frame %+v", last)
	}

	transcript := decode[transcriptResponse](t, e.do(t, http.MethodGet, "/api/mentor", ""))
	if len(transcript.Messages) != 2 || transcript.Busy {
		t.Fatalf("unexpected transcript %+v", transcript)
	}

	if resp := e.do(t, http.MethodDelete, "/api/mentor", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear status %d", resp.StatusCode)
	}
	transcript = decode[transcriptResponse](t, e.do(t, http.MethodGet, "/api/mentor", ""))
	if len(transcript.Messages) != 0 {
		t.Fatal("transcript should be empty")
	}
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrMentorBusy, http.StatusConflict},
		{service.ErrNoSuchChapter, http.StatusNotFound},
		{fmt.Errorf("x: %w", remote.ErrMalformed), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}
