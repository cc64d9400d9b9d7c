package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProbeServer(t *testing.T, models []string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		data := make([]map[string]any, 0, len(models))
		for _, id := range models {
			data = append(data, map[string]any{"id": id, "object": "model", "owned_by": "test"})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data}))
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "probe-model", req["model"])
		assert.EqualValues(t, 16, req["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "text_completion",
			"created": 1700000000,
			"model":   "probe-model",
			"choices": []map[string]any{{"text": "pong", "index": 0, "finish_reason": "length"}},
			"usage":   map[string]any{"prompt_tokens": 3, "completion_tokens": 16, "total_tokens": 19},
		}))
	})
	return httptest.NewServer(mux)
}

func TestProberComplete(t *testing.T) {
	srv := newProbeServer(t, nil)
	defer srv.Close()

	prober := NewProber(ClientConfig{BaseURL: srv.URL + "/v1", APIKey: "k"})
	resp, err := prober.Complete(context.Background(), "probe-model", "ping", 16)

	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "pong", resp.Choices[0].Text)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, uint32(19), resp.Usage.TotalTokens)
}

func TestProberFirstAvailableModel(t *testing.T) {
	srv := newProbeServer(t, []string{"alpha", "beta"})
	defer srv.Close()

	prober := NewProber(ClientConfig{BaseURL: srv.URL + "/v1"})

	ids, err := prober.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, ids)

	model, err := prober.FirstAvailableModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alpha", model)
}

func TestProberNoModels(t *testing.T) {
	srv := newProbeServer(t, nil)
	defer srv.Close()

	_, err := NewProber(ClientConfig{BaseURL: srv.URL + "/v1"}).FirstAvailableModel(context.Background())
	assert.EqualError(t, err, "no models available")
}
