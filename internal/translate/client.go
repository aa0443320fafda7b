// Package translate calls a LibreTranslate-compatible HTTP service to
// translate finished sentences.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrEmptyTranslation is returned when the service answers without text.
var ErrEmptyTranslation = errors.New("translate: empty translation")

// Client talks to one translation endpoint.
type Client struct {
	http   *resty.Client
	apiKey string
}

type request struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type response struct {
	TranslatedText string `json:"translatedText"`
}

type apiError struct {
	Error string `json:"error"`
}

// New returns a client for the service at baseURL. timeout bounds each
// request; <= 0 leaves requests bounded only by their context.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &Client{http: c, apiKey: apiKey}
}

// Translate returns text translated from source to target. source may be
// "auto".
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	var out response
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request{Q: text, Source: source, Target: target, Format: "text", APIKey: c.apiKey}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/translate")
	if err != nil {
		return "", fmt.Errorf("translate: request: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return "", fmt.Errorf("translate: %s: %s", resp.Status(), apiErr.Error)
		}
		return "", fmt.Errorf("translate: %s", resp.Status())
	}
	translated := strings.TrimSpace(out.TranslatedText)
	if translated == "" {
		return "", ErrEmptyTranslation
	}
	return translated, nil
}
