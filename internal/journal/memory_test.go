package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"kingo/internal/game"
)

func TestMemoryEventsNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)
	for i := 0; i < 5; i++ {
		ev := game.Event{Kind: game.EventSwap, Player: fmt.Sprintf("p%d", i), At: time.Now()}
		if err := m.RecordEvent(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	out, err := m.ListEvents(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("limit: got %d want 3", len(out))
	}
	if out[0].Player != "p4" || out[2].Player != "p2" {
		t.Fatalf("order: got %s..%s", out[0].Player, out[2].Player)
	}
	if out[0].ID == "" || out[0].ID == out[1].ID {
		t.Fatalf("stored events need distinct ids")
	}

	// Zero or oversized limits return everything.
	all, err := m.ListEvents(ctx, 0)
	if err != nil || len(all) != 5 {
		t.Fatalf("unlimited list: %d %v", len(all), err)
	}
}

func TestMemoryCapEvictsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)
	for i := 0; i < 6; i++ {
		if err := m.RecordEvent(ctx, game.Event{Kind: game.EventSwap, Player: fmt.Sprintf("p%d", i)}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	out, err := m.ListEvents(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("cap: got %d want 3", len(out))
	}
	if out[0].Player != "p5" || out[2].Player != "p3" {
		t.Fatalf("evicted wrong records: %s..%s", out[0].Player, out[2].Player)
	}
}

func TestMemoryPricesFilterByAsset(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		assetID := int64(1 + i%2)
		p := PricePoint{AssetID: assetID, PriceMicros: int64(100 + i), TickAt: base.Add(time.Duration(i) * time.Minute)}
		if err := m.RecordPrice(ctx, p); err != nil {
			t.Fatalf("record price: %v", err)
		}
	}

	out, err := m.ListPrices(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list prices: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("filtered rows: got %d want 2", len(out))
	}
	if out[0].PriceMicros != 102 || out[1].PriceMicros != 100 {
		t.Fatalf("order: got %d, %d", out[0].PriceMicros, out[1].PriceMicros)
	}
}
