package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// AIService calls the Gemini generateContent API to score assessment answers.
type AIService struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewAIService creates a new AIService.
func NewAIService(apiKey, model string) *AIService {
	return &AIService{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GetAnalysis submits the user's answers together with the test's system
// prompt and returns the parsed analysis object. On any failure it returns a
// fixed error-shaped object so callers never have to special-case the
// collaborator beyond checking the markers inside.
func (s *AIService) GetAnalysis(answers map[string]any, systemPrompt string) map[string]any {
	simple := SimplifyAnswers(answers)

	answersJSON, err := json.MarshalIndent(simple, "", "  ")
	if err != nil {
		log.Printf("[AI] Failed to marshal answers: %v", err)
		return errorAnalysis()
	}

	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: fmt.Sprintf("Analyze the following user answers:\n\n%s", answersJSON)}}},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		log.Printf("[AI] Failed to marshal request: %v", err)
		return errorAnalysis()
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, s.model)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("[AI] Failed to build request: %v", err)
		return errorAnalysis()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[AI] Request failed: %v", err)
		return errorAnalysis()
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("[AI] Unexpected status %d: %s", resp.StatusCode, string(respBody))
		return errorAnalysis()
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		log.Printf("[AI] Failed to unmarshal response: %v", err)
		return errorAnalysis()
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		log.Println("[AI] Empty response from model")
		return errorAnalysis()
	}

	text := StripCodeFences(parsed.Candidates[0].Content.Parts[0].Text)

	var analysis map[string]any
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		log.Printf("[AI] Model returned malformed JSON: %v", err)
		return errorAnalysis()
	}

	return analysis
}

// SimplifyAnswers reduces rich submission data to a question-id to answer
// mapping. The model already knows the questions from its system prompt.
func SimplifyAnswers(answers map[string]any) map[string]any {
	responses, ok := answers["responses"].([]any)
	if !ok {
		// Old submission format: already a flat mapping.
		return answers
	}

	simple := make(map[string]any, len(responses))
	for _, item := range responses {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, ok := entry["question_id"]
		if !ok {
			continue
		}
		simple[fmt.Sprint(id)] = entry["answer"]
	}

	return simple
}

// StripCodeFences removes markdown code fences the model sometimes wraps its
// JSON output in.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func errorAnalysis() map[string]any {
	return map[string]any{
		"mbti":             map[string]any{"type": "خطا", "description": "عدم دریافت پاسخ از هوش مصنوعی"},
		"recommended_jobs": []any{},
		"development_path": []any{},
	}
}
