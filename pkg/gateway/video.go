package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrNoVideoResult means the operation completed but no result URL was
// present in the response.
var ErrNoVideoResult = errors.New("gateway: no result found")

// ErrVideoTimeout means the poll budget ran out before the operation
// finished.
var ErrVideoTimeout = errors.New("gateway: video generation did not complete in time")

// GenerateVideo submits a generation request, then polls the returned
// operation handle on a fixed interval until it reports done or the attempt
// budget runs out. Cancelling ctx stops the poll loop between attempts.
func (c *Client) GenerateVideo(ctx context.Context, prompt, apiKey string) (string, error) {
	op, err := c.submitVideo(ctx, prompt, apiKey)
	if err != nil {
		return "", err
	}
	c.logger.Debug("video generation submitted", zap.String("operation", op))

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.cfg.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		url, done, err := c.pollVideo(ctx, op, apiKey)
		if err != nil {
			return "", err
		}
		if done {
			return url, nil
		}
	}

	return "", ErrVideoTimeout
}

func (c *Client) submitVideo(ctx context.Context, prompt, apiKey string) (string, error) {
	body, err := json.Marshal(videoSubmitRequest{Instances: []videoInstance{{Prompt: prompt}}})
	if err != nil {
		return "", fmt.Errorf("gateway: marshal video request: %w", err)
	}

	headers := map[string]string{"X-goog-api-key": apiKey}
	respBody, err := c.post(ctx, c.cfg.VideoURL, headers, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var resp videoSubmitResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("gateway: parse video submit response: %w", err)
	}
	if resp.Name == "" {
		return "", ErrUnexpectedResponse
	}
	return resp.Name, nil
}

// pollVideo checks the operation once. The URL is only meaningful when done
// is true.
func (c *Client) pollVideo(ctx context.Context, operation, apiKey string) (string, bool, error) {
	headers := map[string]string{"X-goog-api-key": apiKey}
	respBody, err := c.get(ctx, c.cfg.VideoBaseURL+"/"+operation, headers)
	if err != nil {
		return "", false, err
	}

	var resp videoPollResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", false, fmt.Errorf("gateway: parse video poll response: %w", err)
	}
	if !resp.Done {
		return "", false, nil
	}
	if resp.Error.Message != "" {
		return "", false, fmt.Errorf("gateway: video generation failed: %s", resp.Error.Message)
	}

	samples := resp.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 || samples[0].Video.URI == "" {
		return "", false, ErrNoVideoResult
	}
	return samples[0].Video.URI, true, nil
}
