// Package captcha wraps the external image-recognition service used to
// read portal captcha challenges.
package captcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gradex/internal/config"
)

// Client posts captcha screenshots to the recognition endpoint and
// returns the decoded text.
type Client struct {
	endpoint string
	userID   string
	apiKey   string
	http     *http.Client
}

// New builds a client from configuration. The timeout bounds the whole
// request; a slow solve counts as a failed attempt upstream.
func New(cfg config.CaptchaConfig) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		userID:   cfg.UserID,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type solveRequest struct {
	UserID string `json:"userid"`
	APIKey string `json:"apikey"`
	Data   string `json:"data"`
	Tag    string `json:"tag"`
	Mode   string `json:"mode"`
	LenStr string `json:"len_str"`
}

type solveResponse struct {
	Result string `json:"result"`
}

// Solve sends a PNG screenshot and returns the recognized six-character
// code. The tag labels the request for the provider's usage logs.
func (c *Client) Solve(ctx context.Context, png []byte, tag string) (string, error) {
	body, err := json.Marshal(solveRequest{
		UserID: c.userID,
		APIKey: c.apiKey,
		Data:   base64.StdEncoding.EncodeToString(png),
		Tag:    tag,
		Mode:   "auto",
		LenStr: "6",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("captcha request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("captcha service returned status %d", resp.StatusCode)
	}

	var out solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("captcha decode: %w", err)
	}
	if out.Result == "" {
		return "", fmt.Errorf("captcha service returned empty result")
	}
	return out.Result, nil
}
