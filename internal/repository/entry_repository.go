package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rawdah/internal/model"
)

// EntryRepository stores named entries in SQLite.
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Get(ctx context.Context, key string) (string, error) {
	var entry model.Entry
	err := r.db.WithContext(ctx).Where("name = ?", key).First(&entry).Error
	switch {
	case err == nil:
		return entry.Value, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", ErrNotFound
	default:
		return "", fmt.Errorf("find entry %q: %w", key, err)
	}
}

// Put inserts the entry or replaces its value.
func (r *EntryRepository) Put(ctx context.Context, key, value string) error {
	entry := model.Entry{Name: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("save entry %q: %w", key, err)
	}
	return nil
}

func (r *EntryRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("name = ?", key).Delete(&model.Entry{}).Error; err != nil {
		return fmt.Errorf("delete entry %q: %w", key, err)
	}
	return nil
}
