package model

import "time"

// Notification is a persisted per-user message produced by lifecycle events
// (booking rejected, slot expired, opponent matched, ...). Delivery to push
// endpoints is best-effort; the row is the source of truth.
type Notification struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"index;not null;size:36"`
	Title     string `gorm:"size:256;not null"`
	Content   string `gorm:"size:2048;not null"`
	CreatedAt time.Time
}
