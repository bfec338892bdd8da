package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"self-evolving-ai/domain"
)

const huggingFaceBaseURL = "https://api-inference.huggingface.co/models"

// HuggingFaceClient is a domain.Provider backed by the HuggingFace
// Inference API. There is no official Go SDK, so the client speaks the
// HTTP API directly.
type HuggingFaceClient struct {
	token      string
	model      string
	httpClient *http.Client
	baseURL    string
}

// hfRequest is the Inference API request body for text generation.
type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	Temperature  float32 `json:"temperature,omitempty"`
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
}

// hfGeneration is one element of the Inference API response array.
type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

// NewHuggingFaceClient creates a HuggingFace provider for the given
// model identifier.
func NewHuggingFaceClient(token, model string) (*HuggingFaceClient, error) {
	if token == "" {
		return nil, fmt.Errorf("huggingface token is not set")
	}
	if model == "" {
		model = "mistralai/Mistral-7B-Instruct-v0.3"
	}

	return &HuggingFaceClient{
		token:      token,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    huggingFaceBaseURL,
	}, nil
}

func (h *HuggingFaceClient) Name() string {
	return "huggingface"
}

// Ask posts the prompt to the model's inference endpoint and returns the
// generated text.
func (h *HuggingFaceClient) Ask(ctx context.Context, prompt string, params domain.GenerationParams) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			Temperature:  params.Temperature,
			MaxNewTokens: params.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", h.baseURL, h.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", &domain.ProviderError{Provider: h.Name(), Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		// 429 is the rate limit; 503 means the model is still loading.
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", &domain.ProviderError{
			Provider:   h.Name(),
			StatusCode: resp.StatusCode,
			Retryable:  retryable,
			Err:        fmt.Errorf("API error (status code %d): %s", resp.StatusCode, string(respBody)),
		}
	}

	var generations []hfGeneration
	if err := json.NewDecoder(resp.Body).Decode(&generations); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(generations) == 0 || generations[0].GeneratedText == "" {
		return "", &domain.ProviderError{
			Provider: h.Name(),
			Err:      errors.New("empty generation response"),
		}
	}

	return generations[0].GeneratedText, nil
}
