package quotable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.quotable.io"

type Quote struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

var fallbackQuotes = []Quote{
	{Content: "Keep going. Small consistent steps beat big plans.", Author: "NicLog"},
	{Content: "Measure, don't guess. What you track, you change.", Author: "NicLog"},
	{Content: "Tiny improvements add up when you repeat them daily.", Author: "NicLog"},
}

// Fallback picks one of the bundled quotes shown when the API is unreachable.
func Fallback() Quote {
	return fallbackQuotes[rand.IntN(len(fallbackQuotes))]
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Client) Random(ctx context.Context) (Quote, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/random", nil)
	if err != nil {
		return Quote{}, fmt.Errorf("create quotable request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("execute quotable request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, fmt.Errorf("read quotable response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Quote{}, fmt.Errorf("quotable request failed with status %d", resp.StatusCode)
	}

	var q Quote
	if err := json.Unmarshal(body, &q); err != nil {
		return Quote{}, fmt.Errorf("decode quotable response: %w", err)
	}
	q.Content = strings.TrimSpace(q.Content)
	if q.Content == "" {
		return Quote{}, fmt.Errorf("quotable response has no content")
	}
	if strings.TrimSpace(q.Author) == "" {
		q.Author = "Unknown"
	}
	return q, nil
}

// RandomOrFallback never fails; any fetch error yields a bundled quote.
func (c *Client) RandomOrFallback(ctx context.Context) (Quote, bool) {
	q, err := c.Random(ctx)
	if err != nil {
		return Fallback(), false
	}
	return q, true
}
