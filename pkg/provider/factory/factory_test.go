package factory

import (
	"testing"

	"ai-interviewer-be/pkg/provider"
	"ai-interviewer-be/pkg/provider/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuestionGenerator(t *testing.T) {
	g, err := NewQuestionGenerator("none", "", "")
	require.NoError(t, err)
	assert.IsType(t, &provider.StaticGenerator{}, g)

	g, err = NewQuestionGenerator("ollama", "llama3", "")
	require.NoError(t, err)
	require.IsType(t, &ollama.OllamaGenerator{}, g)
	assert.Equal(t, "http://localhost:11434", g.(*ollama.OllamaGenerator).BaseURL)

	_, err = NewQuestionGenerator("openai", "", "")
	assert.Error(t, err)
}
