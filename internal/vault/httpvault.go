package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPVault delegates custody to a remote token service. The service is
// expected to apply each transfer atomically; any non-2xx answer means
// nothing moved.
type HTTPVault struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPVault(baseURL, apiKey string) *HTTPVault {
	return &HTTPVault{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

func (v *HTTPVault) TransferIn(ctx context.Context, token, from string, amountMicros int64) error {
	return v.post(ctx, "/v1/transfers/in", map[string]any{
		"token":         token,
		"from":          from,
		"to":            CustodyAccount,
		"amount_micros": amountMicros,
	})
}

func (v *HTTPVault) TransferOut(ctx context.Context, token, to string, amountMicros int64) error {
	return v.post(ctx, "/v1/transfers/out", map[string]any{
		"token":         token,
		"from":          CustodyAccount,
		"to":            to,
		"amount_micros": amountMicros,
	})
}

func (v *HTTPVault) post(ctx context.Context, path string, in any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: status %d: %s", ErrTransferFailed, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}
