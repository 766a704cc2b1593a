package model

import "time"

// Entry is a named, serialized record in the local key-value store.
type Entry struct {
	Name      string `gorm:"primaryKey"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
