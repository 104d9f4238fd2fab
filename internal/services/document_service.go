// Package services – DocumentService
//
// This file implements DocumentService, which owns the document lifecycle:
// uploading → processing → ready|failed. Ingest creates the record and kicks
// off extraction and chunking; Process is the synchronous worker so tests
// can drive the lifecycle deterministically. Ready and failed are terminal;
// a failed document is deleted and re-uploaded, never re-processed in place.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// document and user identifiers.
package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/studylens/go-docchat-backend/internal/chunk"
	"github.com/studylens/go-docchat-backend/internal/domain"
	"github.com/studylens/go-docchat-backend/internal/extract"
	"github.com/studylens/go-docchat-backend/internal/repo"
)

// DocumentService coordinates document persistence and the ingestion
// pipeline.
type DocumentService struct {
	DB        *gorm.DB
	Extractor extract.Extractor

	// Chunking parameters applied at ingestion time. Recorded on the
	// document so stored provenance stays interpretable if defaults change.
	ChunkSize    int
	ChunkOverlap int

	// Async controls whether Ingest processes in a background goroutine.
	// Tests set it to false to run the pipeline inline.
	Async bool
}

// NewDocumentService constructs a DocumentService with production defaults.
func NewDocumentService(db *gorm.DB, ex extract.Extractor, size, overlap int) *DocumentService {
	return &DocumentService{
		DB:           db,
		Extractor:    ex,
		ChunkSize:    size,
		ChunkOverlap: overlap,
		Async:        true,
	}
}

// Ingest creates a document in the uploading state and starts processing the
// raw upload bytes. The returned document is in uploading or processing;
// callers poll Get until it reaches a terminal state.
func (s *DocumentService) Ingest(ctx context.Context, userID, filename string, data []byte) (*domain.Document, error) {
	tr := otel.Tracer("services/DocumentService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	doc, err := repo.CreateDocument(ctx, s.DB, userID, titleFromFilename(filename), filename)
	if err != nil {
		return nil, err
	}
	if err := repo.MarkProcessing(ctx, s.DB, doc.ID); err != nil {
		return nil, err
	}
	doc.Status = domain.StatusProcessing

	if s.Async {
		// The upload request may finish (or be cancelled) long before
		// extraction does, so processing runs on a detached context.
		go func() {
			if err := s.Process(context.Background(), doc.ID, data); err != nil {
				log.Error().Err(err).Str("document_id", doc.ID).Msg("document processing failed")
			}
		}()
		return doc, nil
	}
	if err := s.Process(ctx, doc.ID, data); err != nil {
		return doc, err
	}
	return repo.GetDocument(ctx, s.DB, doc.ID, userID)
}

// Process runs extraction and chunking and commits the terminal transition.
// Extraction or chunking failures mark the document failed with the reason
// retained; chunks are only published together with the ready status.
func (s *DocumentService) Process(ctx context.Context, documentID string, data []byte) error {
	tr := otel.Tracer("services/DocumentService")
	ctx, span := tr.Start(ctx, "Process",
		trace.WithAttributes(attribute.String("document.id", documentID)),
	)
	defer span.End()

	ext, err := s.Extractor.Extract(ctx, data)
	if err != nil {
		if mErr := repo.MarkFailed(ctx, s.DB, documentID, err.Error()); mErr != nil {
			return mErr
		}
		return err
	}

	chunks, err := chunk.Split(ext.Text, s.ChunkSize, s.ChunkOverlap)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, chunk.ErrEmptyDocument) {
			reason = ErrEmptyDocument.Error()
		}
		if mErr := repo.MarkFailed(ctx, s.DB, documentID, reason); mErr != nil {
			return mErr
		}
		return err
	}

	normalized := strings.TrimSpace(ext.Text)
	return repo.MarkReady(ctx, s.DB, documentID, normalized, ext.PageCount, chunks, s.ChunkSize, s.ChunkOverlap)
}

// Get returns a document owned by userID, or ErrDocumentNotFound.
func (s *DocumentService) Get(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := repo.GetDocument(ctx, s.DB, documentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// ListPage returns a page of the user's documents and the total count.
// It applies defaults for invalid page/pageSize.
func (s *DocumentService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Document, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountDocuments(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Document{}, 0, nil
	}
	items, err := repo.ListDocumentsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Delete removes a document and, through foreign keys, its chunks, chat
// history, flashcards, and quizzes.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID string) error {
	err := repo.DeleteDocument(ctx, s.DB, documentID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrDocumentNotFound
	}
	return err
}

// titleFromFilename derives a display title from an upload filename.
// cases.Caser is not safe for concurrent use, so a new one is built per call.
func titleFromFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled document"
	}
	return cases.Title(language.English).String(base)
}
