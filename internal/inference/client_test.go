package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.InferenceConfig{
		Endpoint:  srv.URL,
		AuthToken: "tok-123",
		Timeout:   2 * time.Second,
	}, zerolog.Nop())
}

func TestGenerateImageReturnsResultURL(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"resultURL": "https://inference.test/out/1.png",
		})
	})

	url, err := client.GenerateImage(context.Background(), "aGVsbG8=")

	require.NoError(t, err)
	assert.Equal(t, "https://inference.test/out/1.png", url)
	assert.Equal(t, "aGVsbG8=", got["imageBase64"])
	assert.Equal(t, "tok-123", got["authToken"])
}

func TestGenerateImageFailsWithoutResultURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	_, err := client.GenerateImage(context.Background(), "aGVsbG8=")
	assert.Error(t, err)
}

func TestAnalyzeTextSurfacesRemoteError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "model overloaded"})
	})

	_, err := client.AnalyzeText(context.Background(), "a rainy day")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestCallRequiresConfiguredEndpoint(t *testing.T) {
	client := New(config.InferenceConfig{}, zerolog.Nop())
	_, err := client.AnalyzeText(context.Background(), "text")
	assert.Error(t, err)
}
