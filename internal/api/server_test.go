package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"kingo/internal/auth"
	"kingo/internal/game"
	"kingo/internal/journal"
	"kingo/internal/vault"
)

const testSecret = "b7e1f2a3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakePrices struct{}

func (fakePrices) Description(_ context.Context, assetID int64) (string, error) {
	return fmt.Sprintf("Asset %d / v-USD", assetID), nil
}

func (fakePrices) CurrentPrice(_ context.Context, assetID int64) (int64, error) {
	return 2 * game.MicrosPerUnit, nil
}

type testEnv struct {
	server *httptest.Server
	minter *auth.Minter
	clock  *fakeClock
	bank   *vault.Bank
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	minter, err := auth.NewMinter(testSecret)
	if err != nil {
		t.Fatalf("minter: %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	bank := vault.NewBank()
	bank.Mint("REWARD", "organizer", 10_000*game.MicrosPerUnit)
	rec := journal.NewMemory(256)

	g, err := game.New(game.Config{
		GameDuration:    7 * 24 * time.Hour,
		DisputeDuration: 24 * time.Hour,
		SwapCooldown:    5 * time.Minute,
		AllotmentMicros: 100_000 * game.MicrosPerUnit,
		FeeBps:          20,
	}, game.Deps{
		Clock:     clock,
		Prices:    fakePrices{},
		Vault:     bank,
		Journal:   rec,
		Organizer: "organizer",
	})
	if err != nil {
		t.Fatalf("game: %v", err)
	}
	if _, err := g.RegisterAsset(context.Background(), "organizer", 1); err != nil {
		t.Fatalf("register asset: %v", err)
	}

	srv := httptest.NewServer(New(nil, minter, g, rec).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, minter: minter, clock: clock, bank: bank}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp, out
}

func (e *testEnv) token(t *testing.T, handle string) string {
	t.Helper()
	token, err := e.minter.Mint(handle)
	if err != nil {
		t.Fatalf("mint %s: %v", handle, err)
	}
	return token
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, out := env.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if out["phase"] != "trading" {
		t.Fatalf("phase: %v", out["phase"])
	}
}

func TestJoinSubscribeSwapFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, out := env.do(t, http.MethodPost, "/v1/auth/join", "", map[string]any{"handle": "alice"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("join status: %d", resp.StatusCode)
	}
	token, _ := out["token"].(string)
	if token == "" {
		t.Fatalf("join returned no token: %v", out)
	}

	resp, out = env.do(t, http.MethodPost, "/v1/subscribe", token, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("subscribe status: %d body: %v", resp.StatusCode, out)
	}
	if out["total_value_micros"].(float64) != float64(100_000*game.MicrosPerUnit) {
		t.Fatalf("allotment: %v", out["total_value_micros"])
	}

	resp, out = env.do(t, http.MethodPost, "/v1/swaps", token, map[string]any{
		"from_asset": 0, "to_asset": 1, "amount_micros": 100 * game.MicrosPerUnit,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("swap status: %d body: %v", resp.StatusCode, out)
	}
	if out["net_micros"].(float64) != 49_900_000 {
		t.Fatalf("swap net: %v", out["net_micros"])
	}

	// Same pair again inside the cooldown window.
	resp, _ = env.do(t, http.MethodPost, "/v1/swaps", token, map[string]any{
		"from_asset": 0, "to_asset": 1, "amount_micros": 100 * game.MicrosPerUnit,
	})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("cooldown status: %d", resp.StatusCode)
	}

	resp, out = env.do(t, http.MethodGet, "/v1/portfolio", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("portfolio status: %d", resp.StatusCode)
	}
	if out["handle"] != "alice" {
		t.Fatalf("portfolio handle: %v", out["handle"])
	}

	resp, out = env.do(t, http.MethodGet, "/v1/events?limit=5", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status: %d", resp.StatusCode)
	}
	events, _ := out["events"].([]any)
	if len(events) == 0 {
		t.Fatalf("expected journaled events")
	}
}

func TestJoinClaimsHandleOnce(t *testing.T) {
	env := newTestEnv(t)

	resp, out := env.do(t, http.MethodPost, "/v1/auth/join", "", map[string]any{"handle": "alice"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first join: %d", resp.StatusCode)
	}
	token, _ := out["token"].(string)
	if resp, _ := env.do(t, http.MethodPost, "/v1/subscribe", token, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("subscribe: %d", resp.StatusCode)
	}

	// A second join for the same handle must not hand out a token that
	// could mutate alice's ledger.
	resp, out = env.do(t, http.MethodPost, "/v1/auth/join", "", map[string]any{"handle": "alice"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("re-join status: %d body: %v", resp.StatusCode, out)
	}
	if _, leaked := out["token"]; leaked {
		t.Fatalf("re-join leaked a token: %v", out)
	}

	// The original token keeps working.
	if resp, _ := env.do(t, http.MethodGet, "/v1/portfolio", token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("original token rejected: %d", resp.StatusCode)
	}
}

func TestJoinRefusesOrganizerHandle(t *testing.T) {
	env := newTestEnv(t)

	resp, out := env.do(t, http.MethodPost, "/v1/auth/join", "", map[string]any{"handle": "organizer"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("organizer join status: %d body: %v", resp.StatusCode, out)
	}
	if _, leaked := out["token"]; leaked {
		t.Fatalf("organizer join leaked a token: %v", out)
	}

	// The organizer token minted out of band from the secret still runs
	// organizer-only operations.
	organizer := env.token(t, "organizer")
	resp, out = env.do(t, http.MethodPost, "/v1/prize/topup", organizer, map[string]any{
		"token": "REWARD", "amount_micros": game.MicrosPerUnit,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("out-of-band organizer token: %d body: %v", resp.StatusCode, out)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/v1/game", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, "/v1/game", "alice.bogusmac", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", resp.StatusCode)
	}

	resp, out := env.do(t, http.MethodPost, "/v1/auth/join", "", map[string]any{"handle": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short handle: %d body: %v", resp.StatusCode, out)
	}
}

func TestDomainErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "alice")
	bob := env.token(t, "bob")

	if resp, _ := env.do(t, http.MethodPost, "/v1/subscribe", alice, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("subscribe: %d", resp.StatusCode)
	}
	// Duplicate subscription conflicts.
	if resp, _ := env.do(t, http.MethodPost, "/v1/subscribe", alice, nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate subscribe: %d", resp.StatusCode)
	}
	// The registry seals on first subscription.
	if resp, _ := env.do(t, http.MethodPost, "/v1/assets", alice, map[string]any{"asset_id": 2}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-organizer register: %d", resp.StatusCode)
	}
	// Unknown asset in a swap.
	if resp, _ := env.do(t, http.MethodPost, "/v1/swaps", alice, map[string]any{
		"from_asset": 0, "to_asset": 42, "amount_micros": 1,
	}); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown asset: %d", resp.StatusCode)
	}
	// A player that never subscribed.
	if resp, _ := env.do(t, http.MethodGet, "/v1/portfolio", bob, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown player: %d", resp.StatusCode)
	}
	// Overdraw.
	if resp, _ := env.do(t, http.MethodPost, "/v1/swaps", alice, map[string]any{
		"from_asset": 0, "to_asset": 1, "amount_micros": 200_000 * game.MicrosPerUnit,
	}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("overdraw: %d", resp.StatusCode)
	}
	// Prize operations are organizer / phase gated.
	if resp, _ := env.do(t, http.MethodPost, "/v1/prize/topup", alice, map[string]any{
		"token": "REWARD", "amount_micros": game.MicrosPerUnit,
	}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-organizer topup: %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, http.MethodPost, "/v1/prize/redeem", alice, map[string]any{
		"token": "REWARD", "amount_micros": game.MicrosPerUnit,
	}); resp.StatusCode != http.StatusConflict {
		t.Fatalf("early redeem: %d", resp.StatusCode)
	}
	// Steals only run during the dispute window.
	if resp, _ := env.do(t, http.MethodPost, "/v1/crown/steal", alice, nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("early steal: %d", resp.StatusCode)
	}
}

func TestCrownAndPrizeFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "alice")
	organizer := env.token(t, "organizer")

	if resp, _ := env.do(t, http.MethodPost, "/v1/subscribe", alice, nil); resp.StatusCode != http.StatusCreated {
		t.Fatalf("subscribe failed")
	}
	resp, out := env.do(t, http.MethodPost, "/v1/prize/topup", organizer, map[string]any{
		"token": "REWARD", "amount_micros": 100 * game.MicrosPerUnit,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("topup: %d body: %v", resp.StatusCode, out)
	}

	env.clock.Advance(7*24*time.Hour + time.Hour)
	resp, out = env.do(t, http.MethodPost, "/v1/crown/steal", alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("steal: %d body: %v", resp.StatusCode, out)
	}
	if out["taken"] != true {
		t.Fatalf("steal result: %v", out)
	}

	env.clock.Advance(24 * time.Hour)
	resp, out = env.do(t, http.MethodPost, "/v1/prize/redeem", alice, map[string]any{
		"token": "REWARD", "amount_micros": 10 * game.MicrosPerUnit,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("redeem: %d body: %v", resp.StatusCode, out)
	}
	if env.bank.Balance("REWARD", "alice") != 10*game.MicrosPerUnit {
		t.Fatalf("reward balance: %d", env.bank.Balance("REWARD", "alice"))
	}

	resp, out = env.do(t, http.MethodGet, "/v1/prize", alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("prize list: %d", resp.StatusCode)
	}
	prizes, _ := out["prizes"].([]any)
	if len(prizes) != 1 {
		t.Fatalf("prizes: %v", out)
	}
}

func TestBearerTokenParsing(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"Bearer abc":         "abc",
		"bearer abc":         "abc",
		"Basic abc":          "",
		"Bearer":             "",
		"Bearer  two  parts": "two  parts",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Fatalf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestUnknownAssetDetail(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, "alice")
	resp, _ := env.do(t, http.MethodGet, "/v1/assets/99", alice, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	resp, out := env.do(t, http.MethodGet, "/v1/assets/1", alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	asset, _ := out["asset"].(map[string]any)
	if asset == nil || !strings.Contains(asset["description"].(string), "Asset 1") {
		t.Fatalf("asset detail: %v", out)
	}
}
