package journal

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"kingo/internal/game"
)

// Memory keeps the most recent records in a bounded in-process buffer.
// Used when no DATABASE_URL is configured.
type Memory struct {
	cap int

	mu     sync.Mutex
	events []StoredEvent
	prices []PricePoint
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Memory{cap: capacity}
}

func (m *Memory) RecordEvent(_ context.Context, ev game.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, StoredEvent{ID: uuid.NewString(), Event: ev})
	if len(m.events) > m.cap {
		m.events = m.events[len(m.events)-m.cap:]
	}
	return nil
}

func (m *Memory) RecordPrice(_ context.Context, p PricePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = append(m.prices, p)
	if len(m.prices) > m.cap {
		m.prices = m.prices[len(m.prices)-m.cap:]
	}
	return nil
}

func (m *Memory) ListEvents(_ context.Context, limit int) ([]StoredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lastN(m.events, limit), nil
}

func (m *Memory) ListPrices(_ context.Context, assetID int64, limit int) ([]PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := make([]PricePoint, 0, limit)
	for _, p := range m.prices {
		if p.AssetID == assetID {
			matched = append(matched, p)
		}
	}
	return lastN(matched, limit), nil
}

// lastN returns up to n items, newest first.
func lastN[T any](items []T, n int) []T {
	if n <= 0 || n > len(items) {
		n = len(items)
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= len(items)-n; i-- {
		out = append(out, items[i])
	}
	return out
}
