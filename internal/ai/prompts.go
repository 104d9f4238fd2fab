package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt builders for the study operations. Each keeps the grounding rule
// explicit: answers must come from the supplied document context only.

const chatPromptTmpl = `You are a study assistant answering questions about a document.
Use ONLY the context below. If the context does not contain the answer, say so plainly.

Context:
%s

Question: %s

Answer:`

const explainPromptTmpl = `You are a study assistant. Explain the concept below to a student,
using ONLY the provided document context. Keep it clear and concise.

Context:
%s

Concept: %s

Explanation:`

const summaryPromptTmpl = `Summarize the following document for a student preparing for an exam.
Capture the key points in a few short paragraphs.

Document:
%s

Summary:`

const flashcardPromptTmpl = `Create exactly %d study flashcards from the document below.
Respond with ONLY a JSON array, no prose and no markdown fences. Each element:
{"question": "...", "answer": "...", "difficulty": "easy|medium|hard"}

Document:
%s`

const quizPromptTmpl = `Create a multiple-choice quiz with exactly %d questions from the document below.
Respond with ONLY a JSON array, no prose and no markdown fences. Each element:
{"prompt": "...", "options": ["...", "...", "...", "..."], "answer": 0}
where answer is the zero-based index of the correct option.

Document:
%s`

// ChatPrompt builds the grounded question-answering prompt.
func ChatPrompt(question, context string) string {
	return fmt.Sprintf(chatPromptTmpl, context, question)
}

// ExplainPrompt builds the concept-explanation prompt.
func ExplainPrompt(concept, context string) string {
	return fmt.Sprintf(explainPromptTmpl, context, concept)
}

// SummaryPrompt builds the document-summary prompt.
func SummaryPrompt(text string) string {
	return fmt.Sprintf(summaryPromptTmpl, text)
}

// FlashcardPrompt builds the flashcard-generation prompt.
func FlashcardPrompt(count int, text string) string {
	return fmt.Sprintf(flashcardPromptTmpl, count, text)
}

// QuizPrompt builds the quiz-generation prompt.
func QuizPrompt(numQuestions int, text string) string {
	return fmt.Sprintf(quizPromptTmpl, numQuestions, text)
}

// Card is one generated flashcard.
type Card struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"`
}

// QuizItem is one generated multiple-choice question.
type QuizItem struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

// stripFences removes a surrounding markdown code fence, which models emit
// despite instructions not to.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// ParseCards decodes a generated flashcard payload, discarding cards with a
// blank question or answer.
func ParseCards(raw string) ([]Card, error) {
	var cards []Card
	if err := json.Unmarshal([]byte(stripFences(raw)), &cards); err != nil {
		return nil, fmt.Errorf("parse flashcards: %w", err)
	}
	out := cards[:0]
	for _, c := range cards {
		if strings.TrimSpace(c.Question) == "" || strings.TrimSpace(c.Answer) == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parse flashcards: no usable cards in response")
	}
	return out, nil
}

// ParseQuiz decodes a generated quiz payload, discarding questions whose
// answer index does not resolve to an option.
func ParseQuiz(raw string) ([]QuizItem, error) {
	var items []QuizItem
	if err := json.Unmarshal([]byte(stripFences(raw)), &items); err != nil {
		return nil, fmt.Errorf("parse quiz: %w", err)
	}
	out := items[:0]
	for _, q := range items {
		if strings.TrimSpace(q.Prompt) == "" || len(q.Options) < 2 {
			continue
		}
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parse quiz: no usable questions in response")
	}
	return out, nil
}
