package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-interviewer-be/internal/entity"
	"ai-interviewer-be/pkg/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextQuestion(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   got.Model,
			Message: ollamaMessage{Role: "assistant", Content: "  What was the outcome?  "},
			Done:    true,
		})
	}))
	defer srv.Close()

	g := NewOllamaGenerator(srv.URL+"/", "llama3")
	q, err := g.NextQuestion(context.Background(), provider.QuestionRequest{
		Job: entity.JobContext{Title: "SRE", Company: "Acme"},
		History: []*entity.Turn{
			{Role: entity.TurnRoleInterviewer, Content: "Tell me about yourself"},
			{Role: entity.TurnRoleCandidate, Content: "I fixed a bug there."},
			{Role: entity.TurnRoleSystem, Content: "ignored"},
		},
		FollowUp: &entity.FollowUpSignal{Required: true, MissingElements: []entity.StarElement{entity.StarResult}},
	})
	require.NoError(t, err)
	assert.Equal(t, "What was the outcome?", q)

	assert.Equal(t, "llama3", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "SRE at Acme")
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "user", got.Messages[2].Role)
	assert.Contains(t, got.Messages[3].Content, "result")
}

func TestNextQuestionErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		}},
		{"empty content", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ollamaChatResponse{Done: true})
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewOllamaGenerator(srv.URL, "llama3").NextQuestion(context.Background(), provider.QuestionRequest{})
			assert.Error(t, err)
		})
	}
}
