package ai

import (
	"context"
	"errors"
	"net/http"
)

// OllamaProvider calls a local Ollama server's /api/chat without streaming.
type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: defaultTimeout},
	}
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []wireMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message wireMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", errors.New("ollama: http client is nil")
	}

	var out ollamaResponse
	err := postJSON(ctx, p.Client, "ollama", joinURL(p.BaseURL, "/api/chat"), nil, ollamaRequest{
		Model:    p.Model,
		Messages: toWire(messages),
		// same input, same translation
		Options: map[string]any{"temperature": 0},
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", errors.New("ollama: " + out.Error)
	}
	return out.Message.Content, nil
}
