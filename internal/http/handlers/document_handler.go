// Document HTTP handlers.
//
// This file exposes REST endpoints for document resources:
//   - POST   /documents        (multipart upload, async processing)
//   - GET    /documents        (list, paginated)
//   - GET    /documents/{id}   (status poll / detail)
//   - DELETE /documents/{id}   (remove document and derived data)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studylens/go-docchat-backend/internal/domain"
	"github.com/studylens/go-docchat-backend/internal/services"
	"github.com/studylens/go-docchat-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// DocumentService defines document lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DocumentService interface {
	// Ingest stores an upload and starts extraction and chunking.
	Ingest(ctx context.Context, userID, filename string, data []byte) (*domain.Document, error)
	// Get returns a document owned by userID.
	Get(ctx context.Context, userID, documentID string) (*domain.Document, error)
	// ListPage returns a page of the user's documents and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Document, int64, error)
	// Delete removes a document and everything derived from it.
	Delete(ctx context.Context, userID, documentID string) error
}

// ChatService defines grounded question answering over a single document.
type ChatService interface {
	// Ask answers a question and appends the exchange to the ledger.
	Ask(ctx context.Context, userID, documentID, question string) (*services.Answer, error)
	// Explain answers without writing to the ledger.
	Explain(ctx context.Context, userID, documentID, concept string) (*services.Answer, error)
	// History returns the conversation ledger in chronological order.
	History(ctx context.Context, userID, documentID string) ([]domain.Message, error)
}

// StudyService defines study material generation operations.
type StudyService interface {
	Flashcards(ctx context.Context, userID, documentID string, count int) (*domain.FlashcardSet, error)
	Quiz(ctx context.Context, userID, documentID, title string, numQuestions int) (*domain.Quiz, error)
	Summary(ctx context.Context, userID, documentID string) (string, error)
	ListFlashcards(ctx context.Context, userID, documentID string) ([]domain.FlashcardSet, error)
	ListQuizzes(ctx context.Context, userID, documentID string) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, userID, quizID string) (*domain.Quiz, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for documents, chat, and study material.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	docSvc   DocumentService
	chatSvc  ChatService
	studySvc StudyService

	// db backs idempotency bookkeeping for POST /documents/:id/ask.
	db      *gorm.DB
	idemTTL time.Duration

	// maxUpload caps the accepted upload size in bytes; 0 disables the check
	// (the body size limit middleware still applies).
	maxUpload int64
}

// New constructs a Handlers instance bound to the given services.
func New(docSvc DocumentService, chatSvc ChatService, studySvc StudyService, db *gorm.DB, idemTTL time.Duration, maxUpload int64) *Handlers {
	return &Handlers{
		docSvc:    docSvc,
		chatSvc:   chatSvc,
		studySvc:  studySvc,
		db:        db,
		idemTTL:   idemTTL,
		maxUpload: maxUpload,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// documentID validates the :id path parameter as a UUID and writes a 400 on
// failure. The boolean reports whether the caller should continue.
func documentID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "document id must be a UUID")
		return "", false
	}
	return id, true
}

// mapServiceError translates service sentinel errors into HTTP responses.
// Unrecognized errors become 500 internal_error.
func mapServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrDocumentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
	case errors.Is(err, services.ErrDocumentNotReady):
		fail(c, http.StatusConflict, ErrCodeDocumentNotReady, "document is not ready for this operation")
	case errors.Is(err, services.ErrEmptyQuestion):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question must not be empty")
	case errors.Is(err, services.ErrQuestionTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question exceeds the maximum length")
	case errors.Is(err, services.ErrQuizNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "quiz not found")
	case errors.Is(err, services.ErrInvalidCount):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "requested count exceeds the limit")
	case errors.Is(err, services.ErrGenerationUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeGenerationUnavailable, "answer generation is temporarily unavailable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListDocumentsResponse wraps a page of documents and pagination information.
type ListDocumentsResponse struct {
	Documents  []domain.Document `json:"documents"`
	Pagination Pagination        `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.BoundedInt(c.Query("page"), 1, 0)
	pageSize = utils.BoundedInt(c.Query("page_size"), 20, 100)
	return
}

//
// Handlers
//

// UploadDocument godoc
// @ID          uploadDocument
// @Summary     Upload a document
// @Description Accepts a PDF as multipart form data and starts processing. Returns 202 with the document in the processing state; poll GET /documents/{id} until it reaches ready or failed.
// @Tags        Documents
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       file       formData file   true  "PDF file"
//
// @Success     202  {object}  domain.Document
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     413  {object}  handlers.ErrorResponse  "File too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /documents [post]
func (h *Handlers) UploadDocument(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field 'file' is required")
		return
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "file exceeds the upload size limit")
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "only PDF uploads are supported")
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot read uploaded file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, "reading upload failed")
		return
	}

	doc, err := h.docSvc.Ingest(c.Request.Context(), userID(c), fh.Filename, data)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
		return
	}
	accepted(c, doc)
}

// ListDocuments godoc
// @ID          listDocuments
// @Summary     List documents (paginated)
// @Description Returns a page of the user's documents, newest first.
// @Tags        Documents
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       page       query   int     false "Page number"      minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"   minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListDocumentsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /documents [get]
func (h *Handlers) ListDocuments(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.docSvc.ListPage(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListDocumentsResponse{
		Documents: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetDocument godoc
// @ID          getDocument
// @Summary     Get a document
// @Description Returns a single document, including its processing status and failure reason if processing failed.
// @Tags        Documents
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"     format(uuid)
//
// @Success     200  {object}  domain.Document
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Router      /documents/{id} [get]
func (h *Handlers) GetDocument(c *gin.Context) {
	id, okID := documentID(c)
	if !okID {
		return
	}
	doc, err := h.docSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, doc)
}

// DeleteDocument godoc
// @ID          deleteDocument
// @Summary     Delete a document
// @Description Removes the document together with its chunks, conversation ledger, flashcards, and quizzes.
// @Tags        Documents
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Document ID (UUID)"     format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Document not found"
// @Router      /documents/{id} [delete]
func (h *Handlers) DeleteDocument(c *gin.Context) {
	id, okID := documentID(c)
	if !okID {
		return
	}
	if err := h.docSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		mapServiceError(c, err)
		return
	}
	noContent(c)
}
