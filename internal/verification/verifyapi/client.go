// Package verifyapi calls a hosted verification service (Twilio Verify style)
// that generates, delivers and checks one-time codes. The service owns the code
// itself; this process never sees or stores it.
package verifyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"yfi-bank/backend/internal/verification/domain"
)

const defaultTimeout = 15 * time.Second

// Client talks to the verification provider over HTTP. One Client serves one
// delivery channel (sms or email), selected at construction.
type Client struct {
	APIKey     string
	BaseURL    string
	Channel    string
	HTTPClient *http.Client
}

// NewClient returns a provider client for the given channel kind.
func NewClient(apiKey, baseURL string, kind domain.ChannelKind) *Client {
	channel := "sms"
	if kind == domain.ChannelEmail {
		channel = "email"
	}
	return &Client{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Channel:    channel,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Send asks the provider to deliver a fresh code to target. A prior pending
// code for the same target is superseded on the provider side.
func (c *Client) Send(ctx context.Context, target string) error {
	body := map[string]string{
		"to":      target,
		"channel": c.Channel,
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.post(ctx, "/v2/verifications", body, &resp); err != nil {
		return err
	}
	if resp.Status != "pending" {
		return fmt.Errorf("verifyapi: unexpected verification status %q", resp.Status)
	}
	return nil
}

// Check submits code for target and reports whether the provider approved it.
// A provider-side rejection is (false, nil); transport and API failures are errors.
func (c *Client) Check(ctx context.Context, target, code string) (bool, error) {
	body := map[string]string{
		"to":   target,
		"code": code,
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.post(ctx, "/v2/verification-checks", body, &resp); err != nil {
		return false, err
	}
	return resp.Status == "approved", nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	if c.APIKey == "" {
		return fmt.Errorf("verifyapi: API key not configured")
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("verifyapi: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
