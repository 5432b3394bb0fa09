package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.replicate.com"

// Client calls the hosted image-to-image model. The prediction request is
// made with "Prefer: wait" so a single round trip returns the finished
// output.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	APIToken   string
	Version    string
}

func NewClient(apiToken, version string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		BaseURL:    defaultBaseURL,
		APIToken:   apiToken,
		Version:    version,
	}
}

type predictionRequest struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type predictionInput struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

type predictionResponse struct {
	Output json.RawMessage `json:"output"`
	Status string          `json:"status"`
	Error  string          `json:"error"`
}

// Generate runs one prediction and downloads the produced image.
func (c *Client) Generate(ctx context.Context, imageURL, prompt string) ([]byte, error) {
	outputURL, err := c.predict(ctx, imageURL, prompt)
	if err != nil {
		return nil, err
	}
	return c.download(ctx, outputURL)
}

func (c *Client) predict(ctx context.Context, imageURL, prompt string) (string, error) {
	body, err := json.Marshal(predictionRequest{
		Version: c.Version,
		Input:   predictionInput{Image: imageURL, Prompt: prompt},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/predictions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("replicate: request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("replicate: status %d: %s", res.StatusCode, b)
	}

	var pr predictionResponse
	if err := json.NewDecoder(res.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("replicate: decode response: %w", err)
	}
	if pr.Error != "" {
		return "", fmt.Errorf("replicate: prediction error: %s", pr.Error)
	}

	return outputURL(pr.Output)
}

// outputURL tolerates both shapes the model has returned over time: a plain
// URL string or a one-element array of URLs.
func outputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("replicate: empty output")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[len(list)-1], nil
	}

	return "", fmt.Errorf("replicate: unrecognized output shape: %s", raw)
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: download failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("replicate: download status %d", res.StatusCode)
	}
	return io.ReadAll(res.Body)
}
