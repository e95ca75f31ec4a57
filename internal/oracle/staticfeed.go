package oracle

import (
	"context"
	"sync"
	"time"
)

// StaticFeed serves a fixed description and an updatable price. Used for
// local play and as the boot-time seed when no remote feed is configured.
// The quote is stamped when it is read, not when the price was set, so a
// static price never goes stale over a multi-day game.
type StaticFeed struct {
	description string

	mu          sync.RWMutex
	priceMicros int64
}

func NewStaticFeed(description string, priceMicros int64) *StaticFeed {
	return &StaticFeed{description: description, priceMicros: priceMicros}
}

func (f *StaticFeed) Description(_ context.Context) (string, error) {
	return f.description, nil
}

func (f *StaticFeed) LatestPrice(_ context.Context) (Quote, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Quote{PriceMicros: f.priceMicros, ObservedAt: time.Now()}, nil
}

func (f *StaticFeed) SetPrice(priceMicros int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceMicros = priceMicros
}
