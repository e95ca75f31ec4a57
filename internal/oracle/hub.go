// Package oracle maps asset identifiers to live price feeds. The hub is
// the only price source the game engine consumes; feeds behind it can be
// remote HTTP endpoints or fixed local quotes.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrUnknownAsset = errors.New("no oracle registered for asset")
	ErrStalePrice   = errors.New("oracle price is stale")
	ErrUnavailable  = errors.New("oracle unavailable")
)

// Quote is a single price observation in v-USD micros per whole unit.
type Quote struct {
	PriceMicros int64
	ObservedAt  time.Time
}

// Feed answers for one asset. Implementations must be safe for concurrent
// use.
type Feed interface {
	Description(ctx context.Context) (string, error)
	LatestPrice(ctx context.Context) (Quote, error)
}

// Hub is an append-only registry of feeds keyed by asset id. A quote older
// than maxAge fails the read; there is no fallback price.
type Hub struct {
	maxAge time.Duration
	clock  func() time.Time

	mu    sync.RWMutex
	feeds map[int64]Feed
}

func NewHub(maxAge time.Duration) *Hub {
	return &Hub{
		maxAge: maxAge,
		clock:  time.Now,
		feeds:  map[int64]Feed{},
	}
}

// Register binds assetID to feed. Registering an id twice fails: entries
// are immutable for the lifetime of a game.
func (h *Hub) Register(assetID int64, feed Feed) error {
	if feed == nil {
		return fmt.Errorf("feed is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.feeds[assetID]; ok {
		return fmt.Errorf("asset %d already registered", assetID)
	}
	h.feeds[assetID] = feed
	return nil
}

func (h *Hub) Description(ctx context.Context, assetID int64) (string, error) {
	feed, err := h.feed(assetID)
	if err != nil {
		return "", err
	}
	desc, err := feed.Description(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: asset %d: %v", ErrUnavailable, assetID, err)
	}
	return desc, nil
}

// CurrentPrice reads the feed's latest quote and enforces the staleness
// bound. Feed failures surface as ErrUnavailable; the caller fails rather
// than suspends.
func (h *Hub) CurrentPrice(ctx context.Context, assetID int64) (int64, error) {
	feed, err := h.feed(assetID)
	if err != nil {
		return 0, err
	}
	q, err := feed.LatestPrice(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: asset %d: %v", ErrUnavailable, assetID, err)
	}
	if q.PriceMicros <= 0 {
		return 0, fmt.Errorf("%w: asset %d: non-positive answer", ErrUnavailable, assetID)
	}
	if h.maxAge > 0 && h.clock().Sub(q.ObservedAt) > h.maxAge {
		return 0, fmt.Errorf("%w: asset %d observed at %s", ErrStalePrice, assetID, q.ObservedAt.Format(time.RFC3339))
	}
	return q.PriceMicros, nil
}

// AssetIDs lists the registered ids in ascending order.
func (h *Hub) AssetIDs() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]int64, 0, len(h.feeds))
	for id := range h.feeds {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (h *Hub) feed(assetID int64) (Feed, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	feed, ok := h.feeds[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: asset %d", ErrUnknownAsset, assetID)
	}
	return feed, nil
}
