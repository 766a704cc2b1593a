package service

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"rawdah/internal/model"
	"rawdah/internal/remote"
	"rawdah/internal/repository"
)

type fakeStreamer struct {
	fragments []string
	err       error
	requests  []remote.ChatRequest
	// gate, when set, blocks the stream until closed.
	gate chan struct{}
}

func (f *fakeStreamer) Stream(_ context.Context, req remote.ChatRequest) iter.Seq2[string, error] {
	f.requests = append(f.requests, req)
	return func(yield func(string, error) bool) {
		if f.gate != nil {
			<-f.gate
		}
		for _, frag := range f.fragments {
			if !yield(frag, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

func newMentorFixture(streamer ChatStreamer) (*MentorService, *TrackerService, *repository.StateRepository) {
	ctx := context.Background()
	clock := newFakeClock(at(20, 0))
	repo := repository.NewStateRepository(newMemKV())
	tracker := NewTrackerService(repo, clock)
	tracker.Load(ctx)
	mentor := NewMentorService(streamer, tracker, NewReminderService(), repo, clock, DefaultMentorTemperature)
	mentor.Load(ctx)
	return mentor, tracker, repo
}

func TestMentorSingleAssistantMessage(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{fragments: []string{"وعليكم ", "السلام ", "ورحمة الله"}}
	mentor, _, repo := newMentorFixture(streamer)

	var updates int
	transcript, err := mentor.Send(ctx, "مرحبا", func([]model.ChatMessage) { updates++ })
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(transcript) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(transcript), transcript)
	}
	if transcript[0].Role != model.RoleUser || transcript[0].Text != "مرحبا" {
		t.Fatalf("unexpected user message %+v", transcript[0])
	}
	if transcript[1].Role != model.RoleAssistant || transcript[1].Text != "وعليكم السلام ورحمة الله" {
		t.Fatalf("unexpected assistant message %+v", transcript[1])
	}
	// user append + one per fragment + final
	if updates != 5 {
		t.Fatalf("expected 5 snapshots, got %d", updates)
	}

	stored, err := repo.LoadTranscript(ctx)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if len(stored) != 2 || stored[1].Text != transcript[1].Text {
		t.Fatalf("persisted transcript differs: %+v", stored)
	}
}

func TestMentorSnapshotsGrowOneMessage(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{fragments: []string{"a", "b", "c"}}
	mentor, _, _ := newMentorFixture(streamer)

	var lengths []int
	var texts []string
	_, err := mentor.Send(ctx, "hi", func(ms []model.ChatMessage) {
		lengths = append(lengths, len(ms))
		texts = append(texts, ms[len(ms)-1].Text)
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	wantLen := []int{1, 2, 2, 2, 2}
	wantText := []string{"hi", "a", "ab", "abc", "abc"}
	for i := range wantLen {
		if lengths[i] != wantLen[i] || texts[i] != wantText[i] {
			t.Fatalf("snapshot %d: got len %d text %q", i, lengths[i], texts[i])
		}
	}
}

func TestMentorFailureAppendsFallback(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{fragments: []string{"partial"}, err: remote.ErrUnavailable}
	mentor, _, _ := newMentorFixture(streamer)

	transcript, err := mentor.Send(ctx, "سؤال", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(transcript) != 2 || transcript[1].Text != MentorFallback {
		t.Fatalf("expected fallback reply, got %+v", transcript)
	}
	if len(streamer.requests) != 1 {
		t.Fatalf("failed exchange must not retry, got %d requests", len(streamer.requests))
	}
}

func TestMentorWithoutStreamerFallsBack(t *testing.T) {
	mentor, _, _ := newMentorFixture(nil)
	transcript, err := mentor.Send(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if transcript[len(transcript)-1].Text != MentorFallback {
		t.Fatalf("expected fallback, got %+v", transcript)
	}
}

func TestMentorRejectsEmptyAndConcurrent(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{fragments: []string{"ok"}, gate: make(chan struct{})}
	mentor, _, _ := newMentorFixture(streamer)

	if _, err := mentor.Send(ctx, "   ", nil); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		mentor.Send(ctx, "first", func(ms []model.ChatMessage) {
			if len(ms) == 1 {
				close(started)
			}
		})
	}()
	<-started

	if _, err := mentor.Send(ctx, "second", nil); !errors.Is(err, ErrMentorBusy) {
		t.Fatalf("expected ErrMentorBusy, got %v", err)
	}
	if err := mentor.Clear(ctx); !errors.Is(err, ErrMentorBusy) {
		t.Fatalf("clear during a turn should be refused, got %v", err)
	}

	close(streamer.gate)
	<-done
	if mentor.Busy() {
		t.Fatal("mentor should be idle after the turn")
	}
	if got := mentor.Transcript(); len(got) != 2 {
		t.Fatalf("expected 2 messages, got %+v", got)
	}
}

func TestMentorSystemInstructionIsFresh(t *testing.T) {
	ctx := context.Background()
	streamer := &fakeStreamer{fragments: []string{"ok"}}
	mentor, tracker, _ := newMentorFixture(streamer)

	if _, err := mentor.Send(ctx, "one", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := tracker.TogglePrayer(ctx, model.Fajr, "fard"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := mentor.Send(ctx, "two", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	first, second := streamer.requests[0], streamer.requests[1]
	if strings.Contains(first.SystemInstruction, "الفجر: أدى الفرض") {
		t.Fatal("first instruction should not report fajr done")
	}
	if !strings.Contains(second.SystemInstruction, "الفجر: أدى الفرض") {
		t.Fatalf("second instruction should report fajr done:\n%s", second.SystemInstruction)
	}
	if len(second.History) != 2 || second.Message != "two" {
		t.Fatalf("second request should carry the prior turn, got %+v", second.History)
	}
	if second.Temperature != DefaultMentorTemperature {
		t.Fatalf("unexpected temperature %v", second.Temperature)
	}
}

func TestMentorClear(t *testing.T) {
	ctx := context.Background()
	mentor, _, repo := newMentorFixture(&fakeStreamer{fragments: []string{"ok"}})
	if _, err := mentor.Send(ctx, "hi", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := mentor.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(mentor.Transcript()) != 0 {
		t.Fatal("transcript should be empty")
	}
	if _, err := repo.LoadTranscript(ctx); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("persisted transcript should be gone, got %v", err)
	}
}

// cancellingStreamer yields one fragment, cancels the turn and fails.
type cancellingStreamer struct {
	cancel context.CancelFunc
}

func (c cancellingStreamer) Stream(ctx context.Context, _ remote.ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield("partial ", nil) {
			return
		}
		c.cancel()
		yield("", ctx.Err())
	}
}

func TestMentorPersistsFinalTranscriptAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mentor, _, repo := newMentorFixture(cancellingStreamer{cancel: cancel})

	transcript, err := mentor.Send(ctx, "مرحبا", nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(transcript) != 2 || transcript[1].Text != MentorFallback {
		t.Fatalf("expected fallback reply, got %+v", transcript)
	}

	stored, err := repo.LoadTranscript(context.Background())
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if len(stored) != len(transcript) || stored[1].Text != MentorFallback {
		t.Fatalf("stored transcript differs: in-memory=%d stored=%d", len(transcript), len(stored))
	}
}

func TestMentorClearWithCancelledContext(t *testing.T) {
	mentor, _, repo := newMentorFixture(&fakeStreamer{fragments: []string{"نعم"}})
	if _, err := mentor.Send(context.Background(), "سؤال", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := mentor.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stored, err := repo.LoadTranscript(context.Background())
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("load transcript: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("stored transcript should be empty, got %d", len(stored))
	}
}
