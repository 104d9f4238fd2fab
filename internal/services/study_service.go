// Package services – StudyService
//
// StudyService turns a ready document's extracted text into study material:
// flashcard sets, multiple-choice quizzes, and summaries. Unlike ChatService
// it works from the full extracted text rather than a retrieved context,
// since the whole document is in scope for these operations. The model's
// JSON output is validated before anything is persisted; a malformed
// response surfaces as ErrGenerationUnavailable and writes nothing.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/studylens/go-docchat-backend/internal/ai"
	"github.com/studylens/go-docchat-backend/internal/domain"
	"github.com/studylens/go-docchat-backend/internal/repo"
)

const (
	// DefaultFlashcardCount is used when the caller passes count <= 0.
	DefaultFlashcardCount = 10
	// MaxFlashcardCount caps a single generation request.
	MaxFlashcardCount = 50

	// DefaultQuizQuestions is used when the caller passes numQuestions <= 0.
	DefaultQuizQuestions = 5
	// MaxQuizQuestions caps a single generation request.
	MaxQuizQuestions = 25
)

// StudyService generates and persists flashcards, quizzes, and summaries.
type StudyService struct {
	DB  *gorm.DB
	Gen ai.Generator

	// GenTimeout bounds a single generator call.
	GenTimeout time.Duration
}

// Flashcards generates count cards from the document and persists them as a
// new set. count outside (0, MaxFlashcardCount] is ErrInvalidCount except
// count <= 0, which falls back to the default.
func (s *StudyService) Flashcards(ctx context.Context, userID, documentID string, count int) (*domain.FlashcardSet, error) {
	tr := otel.Tracer("services/StudyService")
	ctx, span := tr.Start(ctx, "Flashcards",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("document.id", documentID),
		),
	)
	defer span.End()

	if count <= 0 {
		count = DefaultFlashcardCount
	}
	if count > MaxFlashcardCount {
		return nil, ErrInvalidCount
	}

	doc, err := s.readyDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	raw, err := s.generate(ctx, ai.FlashcardPrompt(count, doc.ExtractedText))
	if err != nil {
		return nil, err
	}
	cards, err := ai.ParseCards(raw)
	if err != nil {
		log.Warn().Err(err).Str("document_id", documentID).Msg("flashcard response rejected")
		return nil, ErrGenerationUnavailable
	}
	return repo.CreateFlashcardSet(ctx, s.DB, userID, documentID, cards)
}

// Quiz generates a multiple-choice quiz and persists it. An empty title
// defaults to one derived from the document title.
func (s *StudyService) Quiz(ctx context.Context, userID, documentID, title string, numQuestions int) (*domain.Quiz, error) {
	tr := otel.Tracer("services/StudyService")
	ctx, span := tr.Start(ctx, "Quiz",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("document.id", documentID),
		),
	)
	defer span.End()

	if numQuestions <= 0 {
		numQuestions = DefaultQuizQuestions
	}
	if numQuestions > MaxQuizQuestions {
		return nil, ErrInvalidCount
	}

	doc, err := s.readyDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		title = doc.Title + " quiz"
	}
	raw, err := s.generate(ctx, ai.QuizPrompt(numQuestions, doc.ExtractedText))
	if err != nil {
		return nil, err
	}
	items, err := ai.ParseQuiz(raw)
	if err != nil {
		log.Warn().Err(err).Str("document_id", documentID).Msg("quiz response rejected")
		return nil, ErrGenerationUnavailable
	}
	return repo.CreateQuiz(ctx, s.DB, userID, documentID, title, items)
}

// Summary generates a plain-text summary of the document. Summaries are not
// persisted; regenerating is cheap and callers cache at the HTTP layer.
func (s *StudyService) Summary(ctx context.Context, userID, documentID string) (string, error) {
	tr := otel.Tracer("services/StudyService")
	ctx, span := tr.Start(ctx, "Summary",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("document.id", documentID),
		),
	)
	defer span.End()

	doc, err := s.readyDocument(ctx, userID, documentID)
	if err != nil {
		return "", err
	}
	return s.generate(ctx, ai.SummaryPrompt(doc.ExtractedText))
}

// ListFlashcards returns the user's persisted flashcard sets for a document,
// newest first. Retrieval works in any document state; a document that is
// still processing simply has no sets yet.
func (s *StudyService) ListFlashcards(ctx context.Context, userID, documentID string) ([]domain.FlashcardSet, error) {
	if err := s.documentExists(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return repo.ListFlashcardSets(ctx, s.DB, userID, documentID)
}

// ListQuizzes returns the user's persisted quizzes for a document, newest
// first, each with its questions.
func (s *StudyService) ListQuizzes(ctx context.Context, userID, documentID string) ([]domain.Quiz, error) {
	if err := s.documentExists(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return repo.ListQuizzes(ctx, s.DB, userID, documentID)
}

// GetQuiz returns one persisted quiz with its questions, scoped to the owner.
func (s *StudyService) GetQuiz(ctx context.Context, userID, quizID string) (*domain.Quiz, error) {
	quiz, err := repo.GetQuiz(ctx, s.DB, userID, quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	return quiz, nil
}

func (s *StudyService) documentExists(ctx context.Context, userID, documentID string) error {
	if _, err := repo.GetDocument(ctx, s.DB, documentID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	return nil
}

func (s *StudyService) readyDocument(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := repo.GetDocument(ctx, s.DB, documentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	if doc.Status != domain.StatusReady {
		return nil, ErrDocumentNotReady
	}
	return doc, nil
}

func (s *StudyService) generate(ctx context.Context, prompt string) (string, error) {
	if s.GenTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.GenTimeout)
		defer cancel()
	}
	out, err := s.Gen.Generate(ctx, prompt)
	if err != nil {
		return "", ErrGenerationUnavailable
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrGenerationUnavailable
	}
	return out, nil
}
