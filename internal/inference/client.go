// Package inference calls the remote persona-image / emotion-analysis
// endpoint. The call is single-shot: no retry policy beyond the user
// re-triggering the action.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"linkbio/internal/config"
)

type request struct {
	ImageBase64 string `json:"imageBase64,omitempty"`
	Text        string `json:"text,omitempty"`
	AuthToken   string `json:"authToken"`
}

type response struct {
	Success   bool   `json:"success"`
	ResultURL string `json:"resultURL,omitempty"`
	Analysis  string `json:"analysis,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Client struct {
	endpoint string
	token    string
	http     *http.Client
	log      zerolog.Logger
}

func New(cfg config.InferenceConfig, log zerolog.Logger) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		token:    cfg.AuthToken,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      log,
	}
}

// GenerateImage submits a base64-encoded photo and returns the URL of the
// generated persona image.
func (c *Client) GenerateImage(ctx context.Context, imageBase64 string) (string, error) {
	resp, err := c.call(ctx, request{ImageBase64: imageBase64, AuthToken: c.token})
	if err != nil {
		return "", err
	}
	if resp.ResultURL == "" {
		return "", fmt.Errorf("inference returned no result url")
	}
	return resp.ResultURL, nil
}

// AnalyzeText submits diary text and returns the emotion analysis.
func (c *Client) AnalyzeText(ctx context.Context, text string) (string, error) {
	resp, err := c.call(ctx, request{Text: text, AuthToken: c.token})
	if err != nil {
		return "", err
	}
	return resp.Analysis, nil
}

func (c *Client) call(ctx context.Context, payload request) (response, error) {
	if c.endpoint == "" {
		return response{}, fmt.Errorf("inference endpoint not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return response{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("inference call: %w", err)
	}
	defer res.Body.Close()

	var out response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return response{}, fmt.Errorf("decode response: %w", err)
	}

	if !out.Success {
		if out.Error != "" {
			return response{}, fmt.Errorf("inference failed: %s", out.Error)
		}
		return response{}, fmt.Errorf("inference failed with status %d", res.StatusCode)
	}
	return out, nil
}
