package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/pkg/provider"
)

// OllamaGenerator asks a local Ollama model for the next interviewer line.
type OllamaGenerator struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

var _ provider.QuestionGenerator = &OllamaGenerator{}

func NewOllamaGenerator(baseURL, modelName string) *OllamaGenerator {
	return &OllamaGenerator{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client: &http.Client{
			// per-call deadlines come from provider.Call
			Timeout: 60 * time.Second,
		},
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (o *OllamaGenerator) NextQuestion(ctx context.Context, req provider.QuestionRequest) (string, error) {
	payload := ollamaChatRequest{
		Model:    o.ModelName,
		Messages: buildMessages(req),
		Stream:   false,
		// temperature 0 keeps questions reproducible for the same transcript
		Options: &ollamaOptions{Temperature: 0, NumPredict: 120},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	question := strings.TrimSpace(out.Message.Content)
	if question == "" {
		return "", fmt.Errorf("ollama returned an empty question")
	}
	return question, nil
}

func buildMessages(req provider.QuestionRequest) []ollamaMessage {
	var system strings.Builder
	system.WriteString("You are a professional interviewer running a spoken behavioural interview. ")
	system.WriteString("Ask exactly one concise question per reply, with no preamble.")
	if req.Job.Title != "" {
		fmt.Fprintf(&system, " The role is %s", req.Job.Title)
		if req.Job.Company != "" {
			fmt.Fprintf(&system, " at %s", req.Job.Company)
		}
		system.WriteString(".")
	}
	if req.Job.Description != "" {
		fmt.Fprintf(&system, " Job description: %s", req.Job.Description)
	}
	if req.Competency != nil {
		fmt.Fprintf(&system, " Focus on %s: %s.", req.Competency.Name, req.Competency.Description)
	}

	messages := []ollamaMessage{{Role: "system", Content: system.String()}}
	for _, t := range req.History {
		switch t.Role {
		case entity.TurnRoleInterviewer:
			messages = append(messages, ollamaMessage{Role: "assistant", Content: t.Content})
		case entity.TurnRoleCandidate:
			messages = append(messages, ollamaMessage{Role: "user", Content: t.Content})
		}
	}

	if req.FollowUp != nil && req.FollowUp.Required {
		var hint strings.Builder
		hint.WriteString("The last answer was incomplete")
		if len(req.FollowUp.MissingElements) > 0 {
			parts := make([]string, len(req.FollowUp.MissingElements))
			for i, e := range req.FollowUp.MissingElements {
				parts[i] = string(e)
			}
			fmt.Fprintf(&hint, "; it did not cover the %s", strings.Join(parts, ", "))
		}
		hint.WriteString(". Ask a clarifying follow-up question.")
		messages = append(messages, ollamaMessage{Role: "system", Content: hint.String()})
	}
	return messages
}
