package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Prober issues non-benchmark calls through the go-openai client: a single
// blocking completion to check connectivity and model discovery.
type Prober struct {
	client *openai.Client
}

// NewProber creates a Prober for the service described by cfg.
func NewProber(cfg ClientConfig) *Prober {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	config.HTTPClient = cfg.httpClient()
	return &Prober{client: openai.NewClientWithConfig(config)}
}

// Complete sends one non-streaming completion and returns the service response.
func (p *Prober) Complete(ctx context.Context, model, prompt string, maxTokens int) (CompletionResponse, error) {
	resp, err := p.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       model,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: DefaultTemperature,
	})
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("completion failed: %w", err)
	}

	// Normalize into the wire type shared with the streaming path.
	raw, err := json.Marshal(resp)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("encode completion response: %w", err)
	}
	var out CompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return CompletionResponse{}, fmt.Errorf("decode completion response: %w", err)
	}
	return out, nil
}

// ListModels returns the ids of all models served by the service.
func (p *Prober) ListModels(ctx context.Context) ([]string, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, model := range list.Models {
		ids = append(ids, model.ID)
	}
	return ids, nil
}

// FirstAvailableModel returns the first model the service reports.
func (p *Prober) FirstAvailableModel(ctx context.Context) (string, error) {
	ids, err := p.ListModels(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("no models available")
	}
	return ids[0], nil
}
