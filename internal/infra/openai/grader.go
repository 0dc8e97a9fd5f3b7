package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/EfrenHaskell/Cosi166Project/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"
)

// Grader sends student submissions to a chat-completions endpoint and parses
// the structured feedback out of the reply. Controller treats any error here
// as grading-unavailable; nothing is retried.
type Grader struct {
	httpClient   *http.Client
	baseURL      string
	model        string
	apiKey       string
	instructions string
}

func NewGrader(apiKey, baseURL, model, instructions string, timeout time.Duration) *Grader {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Grader{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		model:        model,
		apiKey:       apiKey,
		instructions: instructions,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *Grader) Grade(ctx context.Context, prompt, submission, language string) (domain.Feedback, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a coding assistant, " + g.instructions},
			{Role: "user", Content: fmt.Sprintf(
				"I was asked to write code that behaves as follows:\n%s\ncan you %s, my %s code:\n%s",
				prompt, g.instructions, language, submission)},
		},
	})
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("marshal grading request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("build grading request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("grading request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return domain.Feedback{}, fmt.Errorf("grading request: status %d: %s", resp.StatusCode, snippet)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Feedback{}, fmt.Errorf("decode grading response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return domain.Feedback{}, fmt.Errorf("grading response had no choices")
	}
	return ParseFeedback(parsed.Choices[0].Message.Content)
}
