package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"rawdah/internal/model"
)

// Names of the persisted entries.
const (
	KeyProgress   = "dailyTracker"
	KeySettings   = "notificationSettings"
	KeyTranscript = "mentorChatHistory"
)

// StateRepository serializes the application records into the KV store.
// Every save overwrites the whole record.
type StateRepository struct {
	kv KV
}

func NewStateRepository(kv KV) *StateRepository {
	return &StateRepository{kv: kv}
}

// LoadProgress returns the stored record as is; the caller decides whether
// it is stale.
func (r *StateRepository) LoadProgress(ctx context.Context) (*model.DailyProgress, error) {
	var progress model.DailyProgress
	if err := r.load(ctx, KeyProgress, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *StateRepository) SaveProgress(ctx context.Context, progress model.DailyProgress) error {
	return r.save(ctx, KeyProgress, progress)
}

func (r *StateRepository) LoadSettings(ctx context.Context) (*model.NotificationSettings, error) {
	var settings model.NotificationSettings
	if err := r.load(ctx, KeySettings, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *StateRepository) SaveSettings(ctx context.Context, settings model.NotificationSettings) error {
	return r.save(ctx, KeySettings, settings)
}

func (r *StateRepository) LoadTranscript(ctx context.Context) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage
	if err := r.load(ctx, KeyTranscript, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *StateRepository) SaveTranscript(ctx context.Context, messages []model.ChatMessage) error {
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	return r.save(ctx, KeyTranscript, messages)
}

func (r *StateRepository) ClearTranscript(ctx context.Context) error {
	return r.kv.Delete(ctx, KeyTranscript)
}

func (r *StateRepository) load(ctx context.Context, key string, dst any) error {
	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *StateRepository) save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.kv.Put(ctx, key, string(raw))
}
