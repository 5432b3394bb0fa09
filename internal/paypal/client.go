package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client covers the one PayPal interaction this system needs: capturing an
// approved order so the frontend can credit the account afterwards.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	ClientID   string
}

func NewClient(baseURL, clientID string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    baseURL,
		ClientID:   clientID,
	}
}

// CaptureOrder posts the capture and returns PayPal's response verbatim; the
// caller owns interpreting the capture status.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (json.RawMessage, error) {
	if orderID == "" {
		return nil, fmt.Errorf("paypal: order id is required")
	}

	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.BaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.ClientID)

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal: capture failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("paypal: capture status %d: %s", res.StatusCode, body)
	}
	return json.RawMessage(body), nil
}
