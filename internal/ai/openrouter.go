package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// OpenRouterProvider calls the OpenAI-compatible chat completions endpoint of
// OpenRouter.
type OpenRouterProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	SiteURL string
	AppName string
	Client  *http.Client
}

func NewOpenRouterProvider(baseURL, apiKey, model, siteURL, appName string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		SiteURL: siteURL,
		AppName: appName,
		Client:  &http.Client{Timeout: defaultTimeout},
	}
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouterProvider) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+p.APIKey)
	if p.SiteURL != "" {
		h.Set("HTTP-Referer", p.SiteURL)
	}
	if p.AppName != "" {
		h.Set("X-Title", p.AppName)
	}
	return h
}

func (p *OpenRouterProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	switch {
	case p.Client == nil:
		return "", errors.New("openrouter: http client is nil")
	case strings.TrimSpace(p.APIKey) == "":
		return "", errors.New("openrouter: api key is required")
	case strings.TrimSpace(p.Model) == "":
		return "", errors.New("openrouter: model is required")
	}

	var out completionResponse
	err := postJSON(ctx, p.Client, "openrouter", joinURL(p.BaseURL, "/chat/completions"), p.headers(), completionRequest{
		Model:    strings.TrimSpace(p.Model),
		Messages: toWire(messages),
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Error != nil && out.Error.Message != "" {
		return "", errors.New("openrouter: " + out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openrouter: empty response")
	}
	return out.Choices[0].Message.Content, nil
}
