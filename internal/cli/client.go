// Package cli talks to a running bot's HTTP API.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"throne/internal/api"
	"throne/internal/economy"
	"throne/internal/store"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Health(ctx context.Context) (api.Health, error) {
	var out api.Health
	err := c.getJSON(ctx, "/healthz", &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context) (store.Stats, error) {
	var out store.Stats
	err := c.getJSON(ctx, "/v1/stats", &out)
	return out, err
}

func (c *Client) Economy(ctx context.Context) (economy.Info, error) {
	var out economy.Info
	err := c.getJSON(ctx, "/v1/economy", &out)
	return out, err
}

func (c *Client) Chat(ctx context.Context, chatID string) (api.ChatResponse, error) {
	var out api.ChatResponse
	err := c.getJSON(ctx, "/v1/chats/"+url.PathEscape(chatID), &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
