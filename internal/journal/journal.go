// Package journal keeps the game's history: one append-only event stream
// and per-asset price points. It is observability, not ledger state; a
// failed write is logged by the caller and the game plays on.
package journal

import (
	"context"
	"time"

	"kingo/internal/game"
)

type StoredEvent struct {
	ID string `json:"id"`
	game.Event
}

type PricePoint struct {
	AssetID     int64     `json:"asset_id"`
	PriceMicros int64     `json:"price_micros"`
	TickAt      time.Time `json:"tick_at"`
}

type Recorder interface {
	RecordEvent(ctx context.Context, ev game.Event) error
	RecordPrice(ctx context.Context, p PricePoint) error
	ListEvents(ctx context.Context, limit int) ([]StoredEvent, error)
	ListPrices(ctx context.Context, assetID int64, limit int) ([]PricePoint, error)
}
