// Package domain defines the persistence models for documents, chunks,
// conversations, and generated study material. These types are mapped with
// GORM and form the core data layer of the application.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Document lifecycle states. Ready and Failed are terminal; a failed
// document must be deleted and re-uploaded, never re-processed in place.
const (
	StatusUploading  = "uploading"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Document represents an uploaded PDF owned by a single user. Extracted text
// and chunks are populated when the document transitions to StatusReady and
// are frozen from that point on.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the owner; indexed for efficient retrieval.
//   - Title: human-readable title derived from the upload filename.
//   - Status: one of uploading|processing|ready|failed.
//   - FailureReason: populated only when Status = failed.
//   - ChunkSize / ChunkOverlap: the chunking parameters actually applied,
//     recorded so provenance stays interpretable after config changes.
type Document struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID        string    `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_user_documents"`
	Title         string    `json:"title"          gorm:"type:varchar(255);not null"`
	Filename      string    `json:"filename"       gorm:"type:varchar(255);not null"`
	ExtractedText string    `json:"-"              gorm:"type:text"`
	PageCount     int       `json:"page_count"`
	Status        string    `json:"status"         gorm:"type:varchar(16);not null;default:'uploading';check:status IN ('uploading','processing','ready','failed')"`
	FailureReason string    `json:"failure_reason,omitempty" gorm:"type:text"`
	ChunkSize     int       `json:"chunk_size"`
	ChunkOverlap  int       `json:"chunk_overlap"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Chunks is the ordered partition of ExtractedText. Non-empty iff
	// Status = ready. Cascade-deleted with the document.
	Chunks []Chunk `json:"-" gorm:"foreignKey:DocumentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }

// Chunk is one contiguous, indexed fragment of a document's extracted text.
// Indices are 0-based and dense; offset ranges are monotonic and overlap by
// exactly the document's ChunkOverlap (except the final chunk). Chunks are
// immutable once created.
type Chunk struct {
	ID          string `json:"-"            gorm:"type:char(36);primaryKey"`
	DocumentID  string `json:"-"            gorm:"type:char(36);not null;uniqueIndex:ux_doc_chunk,priority:1"`
	Idx         int    `json:"index"        gorm:"not null;uniqueIndex:ux_doc_chunk,priority:2"`
	Content     string `json:"content"      gorm:"type:text;not null"`
	StartOffset int    `json:"start_offset" gorm:"not null"`
	EndOffset   int    `json:"end_offset"   gorm:"not null"`
}

// TableName returns the database table name for Chunk.
func (Chunk) TableName() string { return "chunks" }

// ChatHistory is the append-only conversation ledger for one
// (user, document) pair. At most one ledger exists per pair, enforced by a
// unique index; creation is a conditional insert so concurrent first
// questions cannot race two ledgers into existence.
type ChatHistory struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(64);not null;uniqueIndex:ux_history_user_doc,priority:1"`
	DocumentID string    `json:"document_id" gorm:"type:char(36);not null;uniqueIndex:ux_history_user_doc,priority:2"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Document Document `json:"-" gorm:"foreignKey:DocumentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatHistory.
func (ChatHistory) TableName() string { return "chat_histories" }

// ChunkRefs is an ordered set of chunk indices persisted as a JSON array.
// It records which chunks grounded an assistant message.
type ChunkRefs []int

// Value implements driver.Valuer, serializing the refs as JSON.
func (r ChunkRefs) Value() (driver.Value, error) {
	if r == nil {
		r = ChunkRefs{}
	}
	b, err := json.Marshal(r)
	return string(b), err
}

// Scan implements sql.Scanner, accepting TEXT or BLOB columns.
func (r *ChunkRefs) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = ChunkRefs{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), r)
	case []byte:
		return json.Unmarshal(v, r)
	default:
		return errors.New("chunk refs: unsupported column type")
	}
}

// Message is a single utterance within a ledger. Seq is a dense per-ledger
// sequence number assigned at append time; ordering by Seq reproduces
// arrival order and keeps each (user, assistant) pair adjacent.
type Message struct {
	ID            string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ChatHistoryID string    `json:"-"          gorm:"type:char(36);not null;index:idx_history_msgs,priority:1"`
	Seq           int       `json:"seq"        gorm:"not null;index:idx_history_msgs,priority:2"`
	Role          string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content       string    `json:"content"    gorm:"type:text;not null"`
	ChunkRefs     ChunkRefs `json:"chunk_refs" gorm:"type:text;not null"`
	CreatedAt     time.Time `json:"created_at"`

	ChatHistory ChatHistory `json:"-" gorm:"foreignKey:ChatHistoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// FlashcardSet groups the flashcards generated from one document in a single
// request. Cascade-deleted with the document.
type FlashcardSet struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"     gorm:"type:varchar(64);not null;index"`
	DocumentID string    `json:"document_id" gorm:"type:char(36);not null;index"`
	CreatedAt  time.Time `json:"created_at"`

	Cards []Flashcard `json:"cards" gorm:"foreignKey:SetID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	Document Document `json:"-" gorm:"foreignKey:DocumentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for FlashcardSet.
func (FlashcardSet) TableName() string { return "flashcard_sets" }

// Flashcard is one question/answer card within a set.
type Flashcard struct {
	ID         string `json:"id"         gorm:"type:char(36);primaryKey"`
	SetID      string `json:"-"          gorm:"type:char(36);not null;index"`
	Position   int    `json:"position"   gorm:"not null"`
	Question   string `json:"question"   gorm:"type:text;not null"`
	Answer     string `json:"answer"     gorm:"type:text;not null"`
	Difficulty string `json:"difficulty" gorm:"type:varchar(16)"`
}

// TableName returns the database table name for Flashcard.
func (Flashcard) TableName() string { return "flashcards" }

// Options is a JSON-encoded list of multiple-choice options.
type Options []string

// Value implements driver.Valuer.
func (o Options) Value() (driver.Value, error) {
	if o == nil {
		o = Options{}
	}
	b, err := json.Marshal(o)
	return string(b), err
}

// Scan implements sql.Scanner.
func (o *Options) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*o = Options{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), o)
	case []byte:
		return json.Unmarshal(v, o)
	default:
		return errors.New("options: unsupported column type")
	}
}

// Quiz is a generated multiple-choice quiz over one document.
type Quiz struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID         string    `json:"user_id"         gorm:"type:varchar(64);not null;index"`
	DocumentID     string    `json:"document_id"     gorm:"type:char(36);not null;index"`
	Title          string    `json:"title"           gorm:"type:varchar(255);not null"`
	TotalQuestions int       `json:"total_questions" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`

	Questions []QuizQuestion `json:"questions" gorm:"foreignKey:QuizID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	Document Document `json:"-" gorm:"foreignKey:DocumentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Quiz.
func (Quiz) TableName() string { return "quizzes" }

// QuizQuestion is one multiple-choice question. Answer is the index into
// Options of the correct choice.
type QuizQuestion struct {
	ID       string  `json:"id"       gorm:"type:char(36);primaryKey"`
	QuizID   string  `json:"-"        gorm:"type:char(36);not null;index"`
	Position int     `json:"position" gorm:"not null"`
	Prompt   string  `json:"prompt"   gorm:"type:text;not null"`
	Options  Options `json:"options"  gorm:"type:text;not null"`
	Answer   int     `json:"answer"   gorm:"not null"`
}

// TableName returns the database table name for QuizQuestion.
func (QuizQuestion) TableName() string { return "quiz_questions" }
