package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/saadjs/niclog/internal/model"
)

const defaultBaseURL = "https://api.exchangerate.host"

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Now        func() time.Time
}

type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (c *Client) FetchLatest(ctx context.Context, base string) (*model.RateSnapshot, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return nil, fmt.Errorf("base currency is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}

	endpoint := fmt.Sprintf("%s/latest?base=%s", baseURL, url.QueryEscape(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create exchangerate request: %w", err)
	}
	req.Header.Set("User-Agent", "niclog/1.0 (+https://github.com/saadjs/niclog)")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute exchangerate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read exchangerate response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("exchangerate request failed with status %d", resp.StatusCode)
	}

	var parsed latestResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode exchangerate response: %w", err)
	}
	if len(parsed.Rates) == 0 {
		return nil, fmt.Errorf("exchangerate response for %s has no rates", base)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return &model.RateSnapshot{
		Base:        base,
		Rates:       parsed.Rates,
		LastUpdated: now().UTC(),
	}, nil
}
