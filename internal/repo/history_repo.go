// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// conversation ledger (ChatHistory and Message models).
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studylens/go-docchat-backend/internal/domain"
)

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// GetHistory fetches the ledger for (userID, documentID), or ErrNotFound.
func GetHistory(ctx context.Context, db *gorm.DB, userID, documentID string) (*domain.ChatHistory, error) {
	var h domain.ChatHistory
	err := db.WithContext(ctx).
		Where("user_id = ? AND document_id = ?", userID, documentID).
		First(&h).Error
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetOrCreateHistory returns the ledger for (userID, documentID), creating
// an empty one when absent. Creation is a conditional insert: the unique
// index on (user_id, document_id) makes one of two racing inserts fail, and
// the loser re-reads the winner's row. Exactly one ledger ever exists per
// pair.
func GetOrCreateHistory(ctx context.Context, db *gorm.DB, userID, documentID string) (*domain.ChatHistory, error) {
	if h, err := GetHistory(ctx, db, userID, documentID); err == nil {
		return h, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	h := &domain.ChatHistory{
		ID:         uuid.NewString(),
		UserID:     userID,
		DocumentID: documentID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(h).Error; err != nil {
		if isUniqueViolation(err) {
			return GetHistory(ctx, db, userID, documentID)
		}
		return nil, err
	}
	return h, nil
}

// AppendTurn writes a (user, assistant) message pair to the ledger as a
// single transaction. Sequence numbers are assigned inside the transaction,
// so concurrent turns against the same ledger serialize and a pair is never
// split by another turn's write.
func AppendTurn(ctx context.Context, db *gorm.DB, historyID, question, answer string, refs []int) (userMsg, assistantMsg *domain.Message, err error) {
	now := time.Now().UTC()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		if err := tx.Raw("SELECT COALESCE(MAX(seq), 0) FROM messages WHERE chat_history_id = ?", historyID).
			Scan(&maxSeq).Error; err != nil {
			return err
		}
		userMsg = &domain.Message{
			ID:            uuid.NewString(),
			ChatHistoryID: historyID,
			Seq:           maxSeq + 1,
			Role:          domain.RoleUser,
			Content:       question,
			ChunkRefs:     domain.ChunkRefs{},
			CreatedAt:     now,
		}
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		assistantMsg = &domain.Message{
			ID:            uuid.NewString(),
			ChatHistoryID: historyID,
			Seq:           maxSeq + 2,
			Role:          domain.RoleAssistant,
			Content:       answer,
			ChunkRefs:     domain.ChunkRefs(refs),
			CreatedAt:     now,
		}
		return tx.Create(assistantMsg).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return userMsg, assistantMsg, nil
}

// ListMessages returns the full ordered message sequence for a ledger.
func ListMessages(ctx context.Context, db *gorm.DB, historyID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("chat_history_id = ?", historyID).
		Order("seq asc").
		Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, historyID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE chat_history_id = ?", historyID).
		Scan(&total).Error
	return total, err
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
