package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/reelworks/mediagen/internal/config"
)

// KeyartGenerator defines the interface for cover-image generation.
type KeyartGenerator interface {
	GenerateImage(ctx context.Context, req *GenerateImageRequest) (*GenerateImageResponse, error)
	IsConfigured() bool
}

// KeyartClient calls the image-generation provider used for trailer
// variant covers. Calls are synchronous; callers wrap them in the retry
// executor.
type KeyartClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// GenerateImageRequest describes one cover render.
type GenerateImageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	Style       string `json:"style,omitempty"`
}

// GenerateImageResponse carries the rendered image location.
type GenerateImageResponse struct {
	ImageURL string `json:"image_url"`
	Model    string `json:"model,omitempty"`
}

// NewKeyartClient creates a new image-generation client.
func NewKeyartClient(cfg *config.KeyartConfig) *KeyartClient {
	return &KeyartClient{
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// GenerateImage renders one cover image.
func (c *KeyartClient) GenerateImage(ctx context.Context, req *GenerateImageRequest) (*GenerateImageResponse, error) {
	body := map[string]any{
		"model":  c.model,
		"prompt": req.Prompt,
	}
	if req.AspectRatio != "" {
		body["aspect_ratio"] = req.AspectRatio
	}
	if req.Style != "" {
		body["style"] = req.Style
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images/generations", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[Keyart API] → POST %s", httpReq.URL.String())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("keyart API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result GenerateImageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *KeyartClient) IsConfigured() bool {
	return c.apiKey != ""
}
