// Package gateway holds the stateless HTTP clients for the generative AI
// providers: Gemini chat completion, HuggingFace image generation, the
// MagicAPI image host and Veo video generation.
//
// No call is ever retried automatically. A failed call is terminal for the
// user action that triggered it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/abhiramiramadas/minibot/pkg/history"
)

const (
	defaultChatURL   = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	defaultImageURL  = "https://router.huggingface.co/fal-ai/fal-ai/flux/krea"
	defaultUploadURL = "https://prod.api.market/api/v1/magicapi/image-upload/upload"
	defaultVideoURL  = "https://generativelanguage.googleapis.com/v1beta/models/veo-3.0-generate-001:predictLongRunning"
	defaultVideoBase = "https://generativelanguage.googleapis.com/v1beta"

	defaultTimeout      = 60 * time.Second
	defaultPollInterval = 5 * time.Second
	defaultPollAttempts = 60
)

// ErrUnexpectedResponse means the provider answered with success but the
// expected field was missing from the body.
var ErrUnexpectedResponse = errors.New("gateway: unexpected provider response")

// StatusError is a non-success provider response. Message carries the
// provider-reported error text when the body was parseable, else a generic
// description.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Config overrides endpoints and polling behavior, mainly for tests.
// Zero values select the production defaults.
type Config struct {
	ChatURL      string
	ImageURL     string
	UploadURL    string
	VideoURL     string
	VideoBaseURL string

	Timeout      time.Duration
	PollInterval time.Duration
	PollAttempts int
}

// Client calls the provider endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.ChatURL == "" {
		cfg.ChatURL = defaultChatURL
	}
	if cfg.ImageURL == "" {
		cfg.ImageURL = defaultImageURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = defaultUploadURL
	}
	if cfg.VideoURL == "" {
		cfg.VideoURL = defaultVideoURL
	}
	if cfg.VideoBaseURL == "" {
		cfg.VideoBaseURL = defaultVideoBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollAttempts == 0 {
		cfg.PollAttempts = defaultPollAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// SendChat posts the conversation payload to the chat completion endpoint
// and returns the reply text.
func (c *Client) SendChat(ctx context.Context, payload []history.Turn, apiKey string) (string, error) {
	body, err := json.Marshal(chatRequest{Contents: payload})
	if err != nil {
		return "", fmt.Errorf("gateway: marshal chat request: %w", err)
	}

	headers := map[string]string{"X-goog-api-key": apiKey}
	respBody, err := c.post(ctx, c.cfg.ChatURL, headers, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("gateway: parse chat response: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrUnexpectedResponse
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// GenerateImage asks the image endpoint for a rendering of prompt and
// returns the hosted image URL.
func (c *Client) GenerateImage(ctx context.Context, prompt, apiKey string) (string, error) {
	body, err := json.Marshal(imageRequest{SyncMode: true, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("gateway: marshal image request: %w", err)
	}

	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	respBody, err := c.post(ctx, c.cfg.ImageURL, headers, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var resp imageResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("gateway: parse image response: %w", err)
	}
	if len(resp.Images) == 0 || resp.Images[0].URL == "" {
		return "", ErrUnexpectedResponse
	}
	return resp.Images[0].URL, nil
}

// UploadFile sends an attachment to the image host and returns the hosted
// URL used for re-display after reload.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte, apiKey string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("filename", filename)
	if err != nil {
		return "", fmt.Errorf("gateway: build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("gateway: write upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("gateway: close upload form: %w", err)
	}

	headers := map[string]string{"x-magicapi-key": apiKey}
	respBody, err := c.post(ctx, c.cfg.UploadURL, headers, writer.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	var resp uploadResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("gateway: parse upload response: %w", err)
	}
	if resp.URL == "" {
		return "", ErrUnexpectedResponse
	}
	return resp.URL, nil
}

// post runs one HTTP POST and returns the response body, mapping non-2xx
// responses to *StatusError with the provider message when available.
func (c *Client) post(ctx context.Context, url string, headers map[string]string, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Message: providerMessage(respBody)}
	}
	return respBody, nil
}

// providerMessage extracts the error text from a provider error body.
// Providers disagree on shape: Gemini nests it under "error", the image
// host puts it at the top level.
func providerMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &nested); err == nil {
		if nested.Error.Message != "" {
			return nested.Error.Message
		}
		if nested.Message != "" {
			return nested.Message
		}
	}
	return "provider returned an error"
}

// get runs one HTTP GET with the same error mapping as post.
func (c *Client) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Message: providerMessage(respBody)}
	}
	return respBody, nil
}
