package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFeed reads one asset's quote from a JSON price service:
// GET {base}/v1/prices/{symbol} -> {"description": "...",
// "price_micros": 123, "observed_at": "..."}.
type HTTPFeed struct {
	baseURL    string
	symbol     string
	httpClient *http.Client
}

type priceResponse struct {
	Description string    `json:"description"`
	PriceMicros int64     `json:"price_micros"`
	ObservedAt  time.Time `json:"observed_at"`
}

func NewHTTPFeed(baseURL, symbol string) *HTTPFeed {
	return &HTTPFeed{
		baseURL: strings.TrimRight(baseURL, "/"),
		symbol:  symbol,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (f *HTTPFeed) Description(ctx context.Context) (string, error) {
	resp, err := f.fetch(ctx)
	if err != nil {
		return "", err
	}
	if resp.Description == "" {
		return f.symbol, nil
	}
	return resp.Description, nil
}

func (f *HTTPFeed) LatestPrice(ctx context.Context) (Quote, error) {
	resp, err := f.fetch(ctx)
	if err != nil {
		return Quote{}, err
	}
	return Quote{PriceMicros: resp.PriceMicros, ObservedAt: resp.ObservedAt}, nil
}

func (f *HTTPFeed) fetch(ctx context.Context) (priceResponse, error) {
	var out priceResponse
	u := f.baseURL + "/v1/prices/" + url.PathEscape(f.symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return out, fmt.Errorf("price status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode price: %w", err)
	}
	return out, nil
}
