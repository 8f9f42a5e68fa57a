package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func geminiReply(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Fatalf("encode reply: %v", err)
	}
}

func TestGetAnalysisParsesFencedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		geminiReply(t, w, "```json\n{\"analysis\": \"ok\", \"recommended_jobs\": [{\"job\": \"Developer\", \"reason\": \"fits\"}]}\n```")
	}))
	defer srv.Close()

	svc := NewAIService("test-key", "gemini-2.5-flash")
	svc.baseURL = srv.URL

	analysis := svc.GetAnalysis(map[string]any{"1": "yes"}, "prompt")

	if analysis["analysis"] != "ok" {
		t.Fatalf("unexpected analysis: %v", analysis)
	}
	jobs, ok := analysis["recommended_jobs"].([]any)
	if !ok || len(jobs) != 1 {
		t.Fatalf("expected one recommended job, got %v", analysis["recommended_jobs"])
	}
}

func TestGetAnalysisErrorShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := NewAIService("test-key", "gemini-2.5-flash")
	svc.baseURL = srv.URL

	analysis := svc.GetAnalysis(map[string]any{"1": "yes"}, "prompt")

	if _, ok := analysis["mbti"]; !ok {
		t.Fatalf("expected error marker in analysis, got %v", analysis)
	}
	jobs, ok := analysis["recommended_jobs"].([]any)
	if !ok || len(jobs) != 0 {
		t.Fatalf("expected empty recommended_jobs, got %v", analysis["recommended_jobs"])
	}
}

func TestGetAnalysisMalformedModelOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geminiReply(t, w, "Sure! Here is your analysis: it went well.")
	}))
	defer srv.Close()

	svc := NewAIService("test-key", "gemini-2.5-flash")
	svc.baseURL = srv.URL

	analysis := svc.GetAnalysis(map[string]any{"1": "yes"}, "prompt")
	if _, ok := analysis["mbti"]; !ok {
		t.Fatalf("expected error marker for malformed output, got %v", analysis)
	}
}

func TestSimplifyAnswers(t *testing.T) {
	rich := map[string]any{
		"responses": []any{
			map[string]any{"question_id": float64(1), "answer": "blue"},
			map[string]any{"question_id": "q2", "answer": float64(7)},
		},
	}

	simple := SimplifyAnswers(rich)

	if simple["1"] != "blue" {
		t.Fatalf("expected answer for question 1, got %v", simple)
	}
	if simple["q2"] != float64(7) {
		t.Fatalf("expected answer for q2, got %v", simple)
	}
}

func TestSimplifyAnswersFlatFallback(t *testing.T) {
	flat := map[string]any{"1": "a", "2": "b"}

	simple := SimplifyAnswers(flat)

	if len(simple) != 2 || simple["1"] != "a" {
		t.Fatalf("expected flat mapping passthrough, got %v", simple)
	}
}

func TestStripCodeFences(t *testing.T) {
	got := StripCodeFences("```json\n{\"a\": 1}\n```")
	if got != "{\"a\": 1}" {
		t.Fatalf("unexpected strip result: %q", got)
	}
}
