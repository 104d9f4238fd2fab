// Package domain defines the core persistence models for the application.
package domain

import "time"

// Idempotency records the result of a previously processed ask request,
// keyed by (user_id, document_id, key). It enables safe retries: the same
// key returns the originally produced assistant message without re-running
// retrieval or generation.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_doc_key,priority:1"`
	DocumentID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_doc_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_doc_key,priority:3"`
	MessageID  string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
