package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studylens/go-docchat-backend/internal/domain"
	"github.com/studylens/go-docchat-backend/internal/extract"
	"github.com/studylens/go-docchat-backend/internal/repo"
)

// ---------- test doubles ----------

// fakeGenerator returns a canned answer, an error, or blocks until the
// context is cancelled.
type fakeGenerator struct {
	answer string
	err    error
	block  bool

	calls   int
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

// fakeExtractor returns fixed text regardless of input.
type fakeExtractor struct {
	text  string
	pages int
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (extract.Extraction, error) {
	if f.err != nil {
		return extract.Extraction{}, f.err
	}
	return extract.Extraction{Text: f.text, PageCount: f.pages}, nil
}

// ---------- fixtures ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:services_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedReadyDocument runs a document through the full ingestion pipeline so
// chat and study tests start from a ready document with stored chunks.
func seedReadyDocument(t *testing.T, db *gorm.DB, userID, text string) *domain.Document {
	t.Helper()
	svc := &DocumentService{
		DB:           db,
		Extractor:    &fakeExtractor{text: text, pages: 1},
		ChunkSize:    40,
		ChunkOverlap: 10,
		Async:        false,
	}
	doc, err := svc.Ingest(context.Background(), userID, "notes.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if doc.Status != domain.StatusReady {
		t.Fatalf("status = %q, want %q (reason: %s)", doc.Status, domain.StatusReady, doc.FailureReason)
	}
	return doc
}

func assertIs(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
