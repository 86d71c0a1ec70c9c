package factory

import (
	"fmt"

	"ai-interviewer-be/pkg/provider"
	"ai-interviewer-be/pkg/provider/ollama"
)

const (
	GeneratorNone   = "none"
	GeneratorOllama = "ollama"
)

func NewQuestionGenerator(providerType, modelName, baseURL string) (provider.QuestionGenerator, error) {
	switch providerType {
	case GeneratorNone, "":
		return provider.NewStaticGenerator(), nil
	case GeneratorOllama:
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaGenerator(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported question generator: %s", providerType)
	}
}
