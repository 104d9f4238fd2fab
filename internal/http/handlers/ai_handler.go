// Chat and study material HTTP handlers.
//
// This file exposes the generation endpoints, all scoped to one document:
//   - POST /documents/{id}/ask         (grounded Q&A, appended to the ledger)
//   - POST /documents/{id}/explain     (one-off lookup, no ledger write)
//   - GET  /documents/{id}/history     (conversation ledger)
//   - POST /documents/{id}/flashcards  (generate and persist a card set)
//   - POST /documents/{id}/quiz        (generate and persist a quiz)
//   - POST /documents/{id}/summary     (generate, not persisted)
//
// POST /documents/{id}/ask supports idempotent retries via the
// Idempotency-Key header: a replayed key within the TTL window returns the
// previously persisted assistant message instead of generating again.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studylens/go-docchat-backend/internal/domain"
	"github.com/studylens/go-docchat-backend/internal/http/middleware"
	"github.com/studylens/go-docchat-backend/internal/repo"
)

//
// DTOs
//

// AskRequest is the JSON payload for ask and explain.
type AskRequest struct {
	// Question is the user's question (ask) or the concept to explain.
	Question string `json:"question" binding:"required" example:"How do mitochondria produce ATP?"`
}

// AskResponse carries a generated answer and its grounding provenance.
type AskResponse struct {
	Answer string `json:"answer"`
	// ChunkRefs are indices into the document's chunk sequence, in rank
	// order. Empty when no chunk matched the question.
	ChunkRefs []int `json:"chunk_refs"`
	// MessageID identifies the persisted assistant message. Empty for
	// explain, which writes nothing.
	MessageID string `json:"message_id,omitempty"`
	// Replayed is true when the response was served from a previous
	// request with the same Idempotency-Key.
	Replayed bool `json:"replayed,omitempty"`
}

// FlashcardsRequest is the JSON payload for flashcard generation.
type FlashcardsRequest struct {
	// Count is how many cards to generate; defaults when omitted.
	Count int `json:"count" example:"10"`
}

// QuizRequest is the JSON payload for quiz generation.
type QuizRequest struct {
	// Title names the quiz; derived from the document title when empty.
	Title string `json:"title" example:"Photosynthesis basics"`
	// NumQuestions is how many questions to generate; defaults when omitted.
	NumQuestions int `json:"num_questions" example:"5"`
}

// SummaryResponse carries a generated document summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// HistoryResponse wraps the conversation ledger for a document.
type HistoryResponse struct {
	Messages []domain.Message `json:"messages"`
}

// FlashcardSetsResponse wraps a document's persisted flashcard sets.
type FlashcardSetsResponse struct {
	Sets []domain.FlashcardSet `json:"sets"`
}

// QuizzesResponse wraps a document's persisted quizzes.
type QuizzesResponse struct {
	Quizzes []domain.Quiz `json:"quizzes"`
}

//
// Handlers
//

// Ask godoc
// @ID          askDocument
// @Summary     Ask a question about a document
// @Description Answers a question grounded in the document's content and appends the question/answer pair to the conversation ledger. Supports idempotent retries via the Idempotency-Key header.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Dedupe key for safe retries"
// @Param       id               path    string  true  "Document ID (UUID)"     format(uuid)
// @Param       body             body    handlers.AskRequest  true  "Question payload"
//
// @Success     200  {object}  handlers.AskResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Document not ready"
// @Failure     503  {object}  handlers.ErrorResponse  "Generation unavailable"
// @Router      /documents/{id}/ask [post]
func (h *Handlers) Ask(c *gin.Context) {
	id, okID := documentID(c)
	if !okID {
		return
	}
	uid := userID(c)

	// Serve a stored answer when the middleware flagged this as a replay.
	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey && middleware.IsReplay(c) {
		if resp, found := h.replayAsk(c, uid, id, key); found {
			ok(c, http.StatusOK, resp)
			return
		}
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: question required")
		return
	}

	ans, err := h.chatSvc.Ask(c.Request.Context(), uid, id, req.Question)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	if key, hasKey := middleware.GetIdempotencyKey(c); hasKey && h.db != nil {
		// Best effort: a failed record means the retry regenerates, which
		// is safe, just not deduplicated.
		_, _ = repo.CreateIdempotency(c.Request.Context(), h.db, uid, id, key, ans.MessageID, http.StatusOK, h.idemTTL)
	}

	ok(c, http.StatusOK, AskResponse{
		Answer:    ans.Text,
		ChunkRefs: ans.ChunkRefs,
		MessageID: ans.MessageID,
	})
}

// replayAsk loads the assistant message persisted for (user, document, key).
// Returns found=false when the record or message is gone, in which case the
// request proceeds as a fresh ask.
func (h *Handlers) replayAsk(c *gin.Context, uid, documentID, key string) (AskResponse, bool) {
	if h.db == nil {
		return AskResponse{}, false
	}
	rec, err := repo.GetIdempotency(c.Request.Context(), h.db, uid, documentID, key, time.Now().UTC())
	if err != nil || rec.MessageID == "" {
		return AskResponse{}, false
	}
	msg, err := repo.GetMessage(c.Request.Context(), h.db, rec.MessageID)
	if err != nil {
		return AskResponse{}, false
	}
	return AskResponse{
		Answer:    msg.Content,
		ChunkRefs: []int(msg.ChunkRefs),
		MessageID: msg.ID,
		Replayed:  true,
	}, true
}

// Explain godoc
// @ID          explainConcept
// @Summary     Explain a concept from a document
// @Description Answers like ask but writes nothing to the conversation ledger. Intended for one-off lookups.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"     format(uuid)
// @Param       body       body    handlers.AskRequest  true  "Concept payload"
//
// @Success     200  {object}  handlers.AskResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Document not ready"
// @Failure     503  {object}  handlers.ErrorResponse  "Generation unavailable"
// @Router      /documents/{id}/explain [post]
func (h *Handlers) Explain(c *gin.Context) {
	id, okID := documentID(c)
	if !okID {
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: question required")
		return
	}

	ans, err := h.chatSvc.Explain(c.Request.Context(), userID(c), id, req.Question)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, AskResponse{Answer: ans.Text, ChunkRefs: ans.ChunkRefs})
}

// History godoc
// @ID          getHistory
// @Summary     Get the conversation ledger
// @Description Returns all messages exchanged about this document in chronological order. A conversation that has not started yields an empty list.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"     format(uuid)
//
// @Success     200  {object}  handlers.HistoryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Router      /documents/{id}/history [get]
func (h *Handlers) History(c *gin.Context) {
	id, okID := documentID(c)
	if !okID {
		return
	}
	msgs, err := h.chatSvc.History(c.Request.Context(), userID(c), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, HistoryResponse{Messages: msgs})
}

// Flashcards godoc
// @ID          generateFlashcards
// @Summary     Generate flashcards from a document
// @Description Generates a flashcard set from the full document text and persists it.
// @Tags        Study
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"     format(uuid)
// @Param       body       body    handlers.FlashcardsRequest  false  "Generation options"
//
// @Success     201  {object}  domain.FlashcardSet
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Document not ready"
// @Failure     503  {object}  handlers.ErrorResponse  "Generation unavailable"
// @Router      /documents/{id}/flashcards [post]
func (h *Handlers) Flashcards(c *gin.Context) {
	id, okID := documentID(c)
	if !okID {
		return
	}
	var req FlashcardsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}

	set, err := h.studySvc.Flashcards(c.Request.Context(), userID(c), id, req.Count)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, set)
}

// Quiz godoc
// @ID          generateQuiz
// @Summary     Generate a quiz from a document
// @Description Generates a multiple-choice quiz from the full document text and persists it.
// @Tags        Study
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"     format(uuid)
// @Param       body       body    handlers.QuizRequest  false  "Generation options"
//
// @Success     201  {object}  domain.Quiz
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Document not ready"
// @Failure     503  {object}  handlers.ErrorResponse  "Generation unavailable"
// @Router      /documents/{id}/quiz [post]
func (h *Handlers) Quiz(c *gin.Context) {
	id, okID := documentID(c)
	if !okID {
		return
	}
	var req QuizRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}

	quiz, err := h.studySvc.Quiz(c.Request.Context(), userID(c), id, strings.TrimSpace(req.Title), req.NumQuestions)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusCreated, quiz)
}

// Summary godoc
// @ID          summarizeDocument
// @Summary     Summarize a document
// @Description Generates a plain-text summary of the full document. Summaries are regenerated on each call and not persisted.
// @Tags        Study
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"     format(uuid)
//
// @Success     200  {object}  handlers.SummaryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Document not ready"
// @Failure     503  {object}  handlers.ErrorResponse  "Generation unavailable"
// @Router      /documents/{id}/summary [post]
func (h *Handlers) Summary(c *gin.Context) {
	id, okID := documentID(c)
	if !okID {
		return
	}
	text, err := h.studySvc.Summary(c.Request.Context(), userID(c), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, SummaryResponse{Summary: text})
}

// ListFlashcards godoc
// @ID          listFlashcards
// @Summary     List a document's flashcard sets
// @Description Returns previously generated flashcard sets for the document, newest first.
// @Tags        Study
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"     format(uuid)
//
// @Success     200  {object}  handlers.FlashcardSetsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Router      /documents/{id}/flashcards [get]
func (h *Handlers) ListFlashcards(c *gin.Context) {
	id, okID := documentID(c)
	if !okID {
		return
	}
	sets, err := h.studySvc.ListFlashcards(c.Request.Context(), userID(c), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	if sets == nil {
		sets = []domain.FlashcardSet{}
	}
	ok(c, http.StatusOK, FlashcardSetsResponse{Sets: sets})
}

// ListQuizzes godoc
// @ID          listQuizzes
// @Summary     List a document's quizzes
// @Description Returns previously generated quizzes for the document, newest first, each with its questions.
// @Tags        Study
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"     format(uuid)
//
// @Success     200  {object}  handlers.QuizzesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Router      /documents/{id}/quizzes [get]
func (h *Handlers) ListQuizzes(c *gin.Context) {
	id, okID := documentID(c)
	if !okID {
		return
	}
	quizzes, err := h.studySvc.ListQuizzes(c.Request.Context(), userID(c), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	ok(c, http.StatusOK, QuizzesResponse{Quizzes: quizzes})
}

// GetQuiz godoc
// @ID          getQuiz
// @Summary     Get a quiz
// @Description Returns one persisted quiz with its questions.
// @Tags        Study
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Quiz ID (UUID)"         format(uuid)
//
// @Success     200  {object}  domain.Quiz
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Quiz not found"
// @Router      /quizzes/{id} [get]
func (h *Handlers) GetQuiz(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "quiz id must be a UUID")
		return
	}
	quiz, err := h.studySvc.GetQuiz(c.Request.Context(), userID(c), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, quiz)
}
