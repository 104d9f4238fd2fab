// Package services – ChatService
//
// ChatService answers questions about a single ready document: it ranks the
// document's stored chunks against the question, assembles a length-bounded
// context from the best matches, asks the generator, and records the
// question/answer pair in the per-(user, document) ledger together with the
// indices of the chunks the answer was grounded on. A failed generation
// leaves the ledger untouched.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/studylens/go-docchat-backend/internal/ai"
	"github.com/studylens/go-docchat-backend/internal/chunk"
	"github.com/studylens/go-docchat-backend/internal/domain"
	"github.com/studylens/go-docchat-backend/internal/repo"
	"github.com/studylens/go-docchat-backend/internal/search"
)

// ChatService binds retrieval, generation, and the conversation ledger.
type ChatService struct {
	DB  *gorm.DB
	Gen ai.Generator

	// TopK is how many chunks the ranker may hand to the assembler.
	TopK int
	// MaxContextRunes bounds the assembled context block.
	MaxContextRunes int
	// MaxQuestionRunes bounds the question length; 0 disables the check.
	MaxQuestionRunes int
	// GenTimeout bounds a single generator call.
	GenTimeout time.Duration
}

// Answer is the result of a successful Ask or Explain call.
type Answer struct {
	Text string
	// ChunkRefs are the indices of the document chunks assembled into the
	// generation context, in rank order. Empty when nothing matched.
	ChunkRefs []int
	// MessageID is the persisted assistant message, empty for Explain.
	MessageID string
}

// Ask answers a question about a ready document and appends the exchange to
// the ledger. The user message and the assistant message are written in the
// same transaction, so the ledger never shows a question without its answer.
func (s *ChatService) Ask(ctx context.Context, userID, documentID, question string) (*Answer, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Ask",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("document.id", documentID),
		),
	)
	defer span.End()

	question, err := s.validateQuestion(question)
	if err != nil {
		return nil, err
	}

	answer, refs, err := s.generateGrounded(ctx, userID, documentID, question, ai.ChatPrompt)
	if err != nil {
		return nil, err
	}

	history, err := repo.GetOrCreateHistory(ctx, s.DB, userID, documentID)
	if err != nil {
		return nil, err
	}
	_, assistantMsg, err := repo.AppendTurn(ctx, s.DB, history.ID, question, answer, refs)
	if err != nil {
		return nil, err
	}
	return &Answer{Text: answer, ChunkRefs: refs, MessageID: assistantMsg.ID}, nil
}

// Explain answers like Ask but writes nothing to the ledger. It serves
// one-off lookups ("explain this term") that should not pollute the
// conversation record.
func (s *ChatService) Explain(ctx context.Context, userID, documentID, concept string) (*Answer, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Explain",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("document.id", documentID),
		),
	)
	defer span.End()

	concept, err := s.validateQuestion(concept)
	if err != nil {
		return nil, err
	}
	answer, refs, err := s.generateGrounded(ctx, userID, documentID, concept, ai.ExplainPrompt)
	if err != nil {
		return nil, err
	}
	return &Answer{Text: answer, ChunkRefs: refs}, nil
}

// History returns the ledger for (userID, documentID) in chronological
// order. A conversation that has not started yet yields an empty slice,
// not an error.
func (s *ChatService) History(ctx context.Context, userID, documentID string) ([]domain.Message, error) {
	if _, err := repo.GetDocument(ctx, s.DB, documentID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	history, err := repo.GetHistory(ctx, s.DB, userID, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []domain.Message{}, nil
		}
		return nil, err
	}
	return repo.ListMessages(ctx, s.DB, history.ID)
}

func (s *ChatService) validateQuestion(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", ErrEmptyQuestion
	}
	if s.MaxQuestionRunes > 0 && utf8.RuneCountInString(q) > s.MaxQuestionRunes {
		return "", ErrQuestionTooLong
	}
	return q, nil
}

// generateGrounded runs the shared retrieve → assemble → generate pipeline.
// The prompt builder receives the question and the assembled context.
func (s *ChatService) generateGrounded(ctx context.Context, userID, documentID, question string, prompt func(q, c string) string) (string, []int, error) {
	doc, err := repo.GetDocument(ctx, s.DB, documentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrDocumentNotFound
		}
		return "", nil, err
	}
	if doc.Status != domain.StatusReady {
		return "", nil, ErrDocumentNotReady
	}

	stored, err := repo.ListChunks(ctx, s.DB, documentID)
	if err != nil {
		return "", nil, err
	}
	chunks := make([]chunk.Chunk, len(stored))
	for i, c := range stored {
		chunks[i] = chunk.Chunk{Index: c.Idx, Content: c.Content, Start: c.StartOffset, End: c.EndOffset}
	}

	ranked := search.Rank(chunks, question, s.TopK)
	assembled := search.Assemble(ranked, s.MaxContextRunes)
	for _, idx := range assembled.Indices {
		if idx < 0 || idx >= len(stored) {
			log.Error().
				Str("document_id", documentID).
				Int("chunk_index", idx).
				Int("chunk_count", len(stored)).
				Msg("assembled context references unknown chunk")
			return "", nil, ErrProvenanceMismatch
		}
	}

	genCtx := ctx
	if s.GenTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.GenTimeout)
		defer cancel()
	}
	answer, err := s.Gen.Generate(genCtx, prompt(question, assembled.Text))
	if err != nil {
		log.Warn().Err(err).Str("document_id", documentID).Msg("generation failed")
		return "", nil, ErrGenerationUnavailable
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", nil, ErrGenerationUnavailable
	}
	return answer, assembled.Indices, nil
}
