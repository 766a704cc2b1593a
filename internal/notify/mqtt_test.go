package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"rawdah/internal/model"
	"rawdah/internal/service"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	err  error
	sent []published
}

func (f *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	f.sent = append(f.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return doneToken{err: f.err}
}

func TestPublishPrayerEvent(t *testing.T) {
	now := time.Date(2024, 3, 7, 12, 15, 3, 0, time.UTC)
	pub := &fakePublisher{}
	sink := NewMQTTSink(pub, "rawdah/prayer", service.ClockFunc(func() time.Time { return now }))

	if err := sink.Publish(context.Background(), model.Dhuhr); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pub.sent))
	}
	msg := pub.sent[0]
	if msg.topic != "rawdah/prayer" || msg.qos != publishQoS {
		t.Fatalf("unexpected routing %+v", msg)
	}

	var event PrayerEvent
	if err := json.Unmarshal(msg.payload, &event); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if event.Prayer != model.Dhuhr || event.Name != "الظهر" || event.ID == "" {
		t.Fatalf("unexpected event %+v", event)
	}
	if !event.DueAt.Equal(now.Truncate(time.Minute)) {
		t.Fatalf("due time should be the minute, got %s", event.DueAt)
	}
}

func TestPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	sink := NewMQTTSink(pub, "t", nil)

	if err := sink.Publish(context.Background(), model.Fajr); err == nil {
		t.Fatal("expected broker error")
	}
	// PrayerDue swallows the failure.
	sink.PrayerDue(context.Background(), model.Fajr)
	if len(pub.sent) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(pub.sent))
	}
}

func TestSinkJoinsFanOut(t *testing.T) {
	pub := &fakePublisher{}
	sinks := service.FanOut{NewMQTTSink(pub, "t", nil)}
	sinks.PrayerDue(context.Background(), model.Isha)
	if len(pub.sent) != 1 {
		t.Fatal("fan-out should reach the mqtt sink")
	}
}
