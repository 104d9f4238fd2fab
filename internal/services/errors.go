// Package services defines the business logic for documents, grounded chat,
// and generated study material. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrDocumentNotFound indicates that the requested document does not
	// exist or is not accessible to the current user.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentNotReady is returned when an operation requires a ready
	// document but its lifecycle status is uploading, processing, or failed.
	ErrDocumentNotReady = errors.New("document is not ready")

	// ErrEmptyQuestion is returned when a chat or explain request carries a
	// blank question or concept.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrQuestionTooLong is returned when a question exceeds the maximum
	// configured rune length.
	ErrQuestionTooLong = errors.New("question too long")

	// ErrEmptyDocument indicates that extraction produced no usable text.
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrGenerationUnavailable is returned when the generation backend
	// errors or times out. No ledger writes happen in that case; the caller
	// may retry by resubmitting the question.
	ErrGenerationUnavailable = errors.New("generation backend unavailable")

	// ErrProvenanceMismatch indicates an internal invariant violation: a
	// chunk index selected for grounding does not resolve to a stored chunk.
	// It is treated as a bug, logged, and never silently dropped.
	ErrProvenanceMismatch = errors.New("provenance does not resolve to stored chunks")

	// ErrInvalidCount is returned when a flashcard or quiz request asks for
	// more items than a single generation allows.
	ErrInvalidCount = errors.New("requested count exceeds the limit")

	// ErrQuizNotFound indicates that the requested quiz does not exist or is
	// not accessible to the current user.
	ErrQuizNotFound = errors.New("quiz not found")
)
