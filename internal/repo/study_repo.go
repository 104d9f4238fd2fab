// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file persists generated study material (flashcard
// sets and quizzes).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studylens/go-docchat-backend/internal/ai"
	"github.com/studylens/go-docchat-backend/internal/domain"
)

// CreateFlashcardSet persists a generated flashcard set with its cards in
// one transaction and returns the stored aggregate.
func CreateFlashcardSet(ctx context.Context, db *gorm.DB, userID, documentID string, cards []ai.Card) (*domain.FlashcardSet, error) {
	set := &domain.FlashcardSet{
		ID:         uuid.NewString(),
		UserID:     userID,
		DocumentID: documentID,
		CreatedAt:  time.Now().UTC(),
	}
	for i, c := range cards {
		set.Cards = append(set.Cards, domain.Flashcard{
			ID:         uuid.NewString(),
			SetID:      set.ID,
			Position:   i,
			Question:   c.Question,
			Answer:     c.Answer,
			Difficulty: c.Difficulty,
		})
	}
	if err := db.WithContext(ctx).Create(set).Error; err != nil {
		return nil, err
	}
	return set, nil
}

// ListFlashcardSets returns the user's flashcard sets for a document, newest
// first, with cards ordered by position.
func ListFlashcardSets(ctx context.Context, db *gorm.DB, userID, documentID string) ([]domain.FlashcardSet, error) {
	var sets []domain.FlashcardSet
	err := db.WithContext(ctx).
		Preload("Cards", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("user_id = ? AND document_id = ?", userID, documentID).
		Order("created_at DESC").
		Find(&sets).Error
	return sets, err
}

// ListQuizzes returns the user's quizzes for a document, newest first, with
// questions ordered by position.
func ListQuizzes(ctx context.Context, db *gorm.DB, userID, documentID string) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	err := db.WithContext(ctx).
		Preload("Questions", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("user_id = ? AND document_id = ?", userID, documentID).
		Order("created_at DESC").
		Find(&quizzes).Error
	return quizzes, err
}

// GetQuiz returns one quiz with its questions, scoped to the owner. Returns
// ErrNotFound when the quiz does not exist or belongs to someone else.
func GetQuiz(ctx context.Context, db *gorm.DB, userID, quizID string) (*domain.Quiz, error) {
	var quiz domain.Quiz
	err := db.WithContext(ctx).
		Preload("Questions", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("id = ? AND user_id = ?", quizID, userID).
		First(&quiz).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// CreateQuiz persists a generated quiz with its questions in one transaction
// and returns the stored aggregate.
func CreateQuiz(ctx context.Context, db *gorm.DB, userID, documentID, title string, items []ai.QuizItem) (*domain.Quiz, error) {
	quiz := &domain.Quiz{
		ID:             uuid.NewString(),
		UserID:         userID,
		DocumentID:     documentID,
		Title:          title,
		TotalQuestions: len(items),
		CreatedAt:      time.Now().UTC(),
	}
	for i, q := range items {
		quiz.Questions = append(quiz.Questions, domain.QuizQuestion{
			ID:       uuid.NewString(),
			QuizID:   quiz.ID,
			Position: i,
			Prompt:   q.Prompt,
			Options:  domain.Options(q.Options),
			Answer:   q.Answer,
		})
	}
	if err := db.WithContext(ctx).Create(quiz).Error; err != nil {
		return nil, err
	}
	return quiz, nil
}
