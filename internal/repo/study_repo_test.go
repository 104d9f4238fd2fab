package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/studylens/go-docchat-backend/internal/ai"
	"github.com/studylens/go-docchat-backend/internal/domain"
)

func TestCreateFlashcardSet_PersistsCardsInOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, db, "u1")

	cards := []ai.Card{
		{Question: "What is the powerhouse of the cell?", Answer: "The mitochondrion", Difficulty: "easy"},
		{Question: "What does ATP stand for?", Answer: "Adenosine triphosphate", Difficulty: "medium"},
	}
	set, err := CreateFlashcardSet(ctx, db, "u1", doc.ID, cards)
	if err != nil {
		t.Fatalf("create set: %v", err)
	}
	if len(set.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(set.Cards))
	}

	var stored []domain.Flashcard
	if err := db.Where("set_id = ?", set.ID).Order("position ASC").Find(&stored).Error; err != nil {
		t.Fatalf("load cards: %v", err)
	}
	for i, c := range stored {
		if c.Position != i {
			t.Fatalf("card %d stored at position %d", i, c.Position)
		}
		if c.Question != cards[i].Question || c.Answer != cards[i].Answer {
			t.Fatalf("card %d content mismatch: %+v", i, c)
		}
	}
}

func TestCreateQuiz_PersistsQuestionsWithOptions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, db, "u1")

	items := []ai.QuizItem{
		{Prompt: "Which organelle produces ATP?", Options: []string{"Nucleus", "Mitochondrion", "Ribosome", "Golgi"}, Answer: 1},
		{Prompt: "Where does glycolysis occur?", Options: []string{"Cytoplasm", "Nucleus", "Membrane", "Lysosome"}, Answer: 0},
	}
	quiz, err := CreateQuiz(ctx, db, "u1", doc.ID, "Cell energy quiz", items)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.Title != "Cell energy quiz" || quiz.TotalQuestions != 2 {
		t.Fatalf("unexpected quiz header: %+v", quiz)
	}

	var stored []domain.QuizQuestion
	if err := db.Where("quiz_id = ?", quiz.ID).Order("position ASC").Find(&stored).Error; err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(stored))
	}
	if len(stored[0].Options) != 4 || stored[0].Options[1] != "Mitochondrion" {
		t.Fatalf("options not round-tripped: %+v", stored[0].Options)
	}
	if stored[1].Answer != 0 {
		t.Fatalf("answer index not preserved: %+v", stored[1])
	}
}

func TestIdempotency_CreateGetAndExpiry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, db, "u1")

	rec, err := CreateIdempotency(ctx, db, "u1", doc.ID, "key-1", "msg-1", 200, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.MessageID != "msg-1" || rec.Status != 200 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", doc.ID, "key-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("expected record %s, got %s", rec.ID, got.ID)
	}

	// The same tuple cannot be inserted twice.
	if _, err := CreateIdempotency(ctx, db, "u1", doc.ID, "key-1", "msg-2", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Lookups after expiry miss.
	if _, err := GetIdempotency(ctx, db, "u1", doc.ID, "key-1", time.Now().UTC().Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestGetIdempotency_ScopedByUserAndKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	doc := seedDocument(t, db, "u1")
	now := time.Now().UTC()

	if _, err := CreateIdempotency(ctx, db, "u1", doc.ID, "key-1", "msg-1", 200, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := GetIdempotency(ctx, db, "u2", doc.ID, "key-1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected miss for other user, got %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "u1", doc.ID, "key-2", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected miss for other key, got %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "u1", "", "key-1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected miss for blank document id, got %v", err)
	}
}
