package api

import "llmperfbench/internal/types"

// CompletionRequest is the body of POST {base_url}/completions.
type CompletionRequest struct {
	Model         string         `json:"model"`
	Prompt        string         `json:"prompt"`
	MaxTokens     uint32         `json:"max_tokens"`
	Temperature   float64        `json:"temperature"`
	Stream        bool           `json:"stream"`
	Stop          *string        `json:"stop"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
}

// StreamOptions asks the service to append a usage summary to the stream.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// CompletionResponse is one streamed event payload, or the full body of a
// non-streaming completion.
type CompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []Choice     `json:"choices"`
	Usage   *types.Usage `json:"usage,omitempty"`
}

// Choice is a single generated alternative. Streams carry the text increment.
type Choice struct {
	Text         string  `json:"text"`
	Index        int     `json:"index"`
	FinishReason *string `json:"finish_reason"`
}
