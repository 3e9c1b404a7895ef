// Package domain defines the core data types of the repair-intake bot.
// This file holds the GORM model used to deduplicate Telegram webhook
// deliveries: the Bot API redelivers an update until it gets a 2xx, so a
// slow handler can see the same update twice.
package domain

import "time"

// ProcessedUpdate records a Telegram update id that has already been handled.
// Rows expire after a TTL and are purged opportunistically.
type ProcessedUpdate struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UpdateID  int64     `gorm:"type:INTEGER NOT NULL;uniqueIndex:ux_update_id"`
	ChatID    int64     `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedUpdate) TableName() string { return "processed_updates" }
