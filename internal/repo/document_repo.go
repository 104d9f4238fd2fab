// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Document
// model and its chunk rows.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a document is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studylens/go-docchat-backend/internal/chunk"
	"github.com/studylens/go-docchat-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateDocument inserts a new Document row in the uploading state, owned by
// userID. The document ID is a randomly generated UUID.
func CreateDocument(ctx context.Context, db *gorm.DB, userID, title, filename string) (*domain.Document, error) {
	d := &domain.Document{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Filename:  filename,
		Status:    domain.StatusUploading,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetDocument fetches a single document by its ID and owner. If the record
// does not exist, it returns ErrNotFound.
func GetDocument(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Document, error) {
	var d domain.Document
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CountDocuments returns the total number of documents owned by userID.
func CountDocuments(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListDocumentsPage returns a paginated slice of documents for userID,
// ordered by creation time descending. The caller computes offset and limit.
func ListDocumentsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Document, error) {
	var out []domain.Document
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkProcessing moves a document from uploading to processing. Returns
// ErrNotFound when the row is missing.
func MarkProcessing(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ? AND status = ?", id, domain.StatusUploading).
		Update("status", domain.StatusProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkReady commits extracted text and the chunk sequence, transitioning the
// document to ready in a single transaction. Publishing chunks and flipping
// the status together is what freezes the document.
func MarkReady(ctx context.Context, db *gorm.DB, id, text string, pageCount int, chunks []chunk.Chunk, size, overlap int) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Document{}).
			Where("id = ? AND status = ?", id, domain.StatusProcessing).
			Updates(map[string]any{
				"extracted_text": text,
				"page_count":     pageCount,
				"chunk_size":     size,
				"chunk_overlap":  overlap,
				"status":         domain.StatusReady,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		rows := make([]domain.Chunk, len(chunks))
		for i, c := range chunks {
			rows[i] = domain.Chunk{
				ID:          uuid.NewString(),
				DocumentID:  id,
				Idx:         c.Index,
				Content:     c.Content,
				StartOffset: c.Start,
				EndOffset:   c.End,
			}
		}
		return tx.CreateInBatches(rows, 200).Error
	})
}

// MarkFailed records a terminal extraction or chunking failure. Any chunks
// written before the failure are discarded.
func MarkFailed(ctx context.Context, db *gorm.DB, id, reason string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&domain.Chunk{}).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Document{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":         domain.StatusFailed,
				"failure_reason": reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListChunks returns a document's chunks ordered by index ascending.
func ListChunks(ctx context.Context, db *gorm.DB, documentID string) ([]domain.Chunk, error) {
	var out []domain.Chunk
	err := db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("idx asc").
		Find(&out).Error
	return out, err
}

// DeleteDocument removes a document owned by userID. Foreign keys cascade
// the delete to chunks, chat history, flashcards, and quizzes. Returns
// ErrNotFound when nothing was deleted.
func DeleteDocument(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
