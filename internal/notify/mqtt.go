// Package notify publishes prayer alerts to external listeners.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rawdah/internal/model"
	"rawdah/internal/service"
)

const (
	publishQoS     = 1
	publishTimeout = 5 * time.Second
	disconnectWait = 250
)

// PrayerEvent is the message published when a prayer becomes due.
type PrayerEvent struct {
	ID     string          `json:"id"`
	Prayer model.PrayerKey `json:"prayer"`
	Name   string          `json:"name"`
	DueAt  time.Time       `json:"due_at"`
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink forwards due prayers to a broker topic.
type MQTTSink struct {
	client publisher
	topic  string
	clock  service.Clock
}

// Connect dials the broker and returns a sink publishing on topic.
func Connect(broker, clientID, topic string) (*MQTTSink, mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", broker).Msg("connected to mqtt broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, nil, fmt.Errorf("connect mqtt broker %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("connect mqtt broker: %w", err)
	}
	return NewMQTTSink(client, topic, nil), client, nil
}

// Disconnect closes the broker connection.
func Disconnect(client mqtt.Client) {
	if client != nil {
		client.Disconnect(disconnectWait)
	}
}

func NewMQTTSink(client publisher, topic string, clock service.Clock) *MQTTSink {
	if clock == nil {
		clock = service.SystemClock
	}
	return &MQTTSink{client: client, topic: topic, clock: clock}
}

// PrayerDue publishes an event for key. Failures are logged.
func (s *MQTTSink) PrayerDue(ctx context.Context, key model.PrayerKey) {
	if err := s.Publish(ctx, key); err != nil {
		log.Warn().Err(err).Str("prayer", string(key)).Msg("publish prayer event")
	}
}

// Publish sends the event for key and waits for the broker to accept it.
func (s *MQTTSink) Publish(ctx context.Context, key model.PrayerKey) error {
	payload, err := json.Marshal(newPrayerEvent(key, s.clock.Now()))
	if err != nil {
		return fmt.Errorf("encode prayer event: %w", err)
	}

	token := s.client.Publish(s.topic, publishQoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish to %s: timed out", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}
	log.Debug().Str("topic", s.topic).Str("prayer", string(key)).Msg("prayer event published")
	return nil
}

func newPrayerEvent(key model.PrayerKey, now time.Time) PrayerEvent {
	return PrayerEvent{
		ID:     uuid.NewString(),
		Prayer: key,
		Name:   key.DisplayName(),
		DueAt:  now.Truncate(time.Minute),
	}
}
