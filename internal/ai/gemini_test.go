package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewGemini_RequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(GeminiConfig{}); err == nil {
		t.Fatalf("expected error without API key")
	}
}

func TestGemini_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"the answer"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := g.Generate(context.Background(), "question")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "the answer" {
		t.Fatalf("unexpected answer %q", got)
	}
}

func TestGemini_Generate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	g, err := NewGemini(GeminiConfig{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := g.Generate(context.Background(), "q"); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestGemini_Generate_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(GeminiConfig{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := g.Generate(context.Background(), "q"); err == nil {
		t.Fatalf("expected error on empty candidates")
	}
}
