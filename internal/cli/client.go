package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kingo/internal/game"
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

type JoinResult struct {
	Handle string `json:"handle"`
	Token  string `json:"token"`
}

func (c *Client) Join(ctx context.Context, handle string) (JoinResult, error) {
	var out JoinResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/join", "", map[string]any{
		"handle": handle,
	}, &out)
	return out, err
}

func (c *Client) Game(ctx context.Context, token string) (game.GameView, error) {
	var out game.GameView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/game", token, nil, &out)
	return out, err
}

func (c *Client) Assets(ctx context.Context, token string) ([]game.AssetView, error) {
	var out struct {
		Assets []game.AssetView `json:"assets"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/assets", token, nil, &out)
	return out.Assets, err
}

func (c *Client) RegisterAsset(ctx context.Context, token string, assetID int64) (game.Asset, error) {
	var out game.Asset
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/assets", token, map[string]any{
		"asset_id": assetID,
	}, &out)
	return out, err
}

func (c *Client) Subscribe(ctx context.Context, token string) (game.PortfolioView, error) {
	var out game.PortfolioView
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/subscribe", token, map[string]any{}, &out)
	return out, err
}

func (c *Client) Swap(ctx context.Context, token string, fromAsset, toAsset, amountMicros int64) (game.SwapResult, error) {
	var out game.SwapResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/swaps", token, map[string]any{
		"from_asset":    fromAsset,
		"to_asset":      toAsset,
		"amount_micros": amountMicros,
	}, &out)
	return out, err
}

func (c *Client) Portfolio(ctx context.Context, token, handle string) (game.PortfolioView, error) {
	path := "/v1/portfolio"
	if handle != "" {
		path += "/" + url.PathEscape(handle)
	}
	var out game.PortfolioView
	err := c.jsonRequest(ctx, http.MethodGet, path, token, nil, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context, token string) ([]game.LeaderboardRow, error) {
	var out struct {
		Rows []game.LeaderboardRow `json:"rows"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/leaderboard", token, nil, &out)
	return out.Rows, err
}

func (c *Client) Crown(ctx context.Context, token string) (game.CrownView, error) {
	var out game.CrownView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/crown", token, nil, &out)
	return out, err
}

func (c *Client) StealCrown(ctx context.Context, token string) (game.StealResult, error) {
	var out game.StealResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/crown/steal", token, map[string]any{}, &out)
	return out, err
}

func (c *Client) Prizes(ctx context.Context, token string) ([]game.PrizeView, error) {
	var out struct {
		Prizes []game.PrizeView `json:"prizes"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/prize", token, nil, &out)
	return out.Prizes, err
}

func (c *Client) TopUpPrize(ctx context.Context, token, rewardToken string, amountMicros int64) (game.PrizeView, error) {
	var out game.PrizeView
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/prize/topup", token, map[string]any{
		"token":         rewardToken,
		"amount_micros": amountMicros,
	}, &out)
	return out, err
}

func (c *Client) RedeemPrize(ctx context.Context, token, rewardToken string, amountMicros int64) (game.PrizeView, error) {
	var out game.PrizeView
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/prize/redeem", token, map[string]any{
		"token":         rewardToken,
		"amount_micros": amountMicros,
	}, &out)
	return out, err
}

func (c *Client) Events(ctx context.Context, token string, limit int) ([]map[string]any, error) {
	var out struct {
		Events []map[string]any `json:"events"`
	}
	path := fmt.Sprintf("/v1/events?limit=%d", limit)
	err := c.jsonRequest(ctx, http.MethodGet, path, token, nil, &out)
	return out.Events, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
