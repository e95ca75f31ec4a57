package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"kingo/internal/game"
)

// PG journals into Postgres. Schema is created on demand so a fresh
// database works out of the box.
type PG struct {
	db *pgxpool.Pool
}

func Connect(ctx context.Context, databaseURL string) (*PG, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	pg := &PG{db: pool}
	if err := pg.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pg, nil
}

func (p *PG) Close() {
	p.db.Close()
}

func (p *PG) ensureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS kingo;
		CREATE TABLE IF NOT EXISTS kingo.events (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			player        TEXT,
			token         TEXT,
			from_asset    BIGINT,
			to_asset      BIGINT,
			amount_micros BIGINT,
			net_micros    BIGINT,
			fee_micros    BIGINT,
			value_micros  BIGINT,
			at            TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS kingo.price_points (
			asset_id     BIGINT NOT NULL,
			price_micros BIGINT NOT NULL,
			tick_at      TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS price_points_asset_tick
			ON kingo.price_points (asset_id, tick_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *PG) RecordEvent(ctx context.Context, ev game.Event) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO kingo.events
		    (id, kind, player, token, from_asset, to_asset, amount_micros, net_micros, fee_micros, value_micros, at)
		VALUES
		    ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, uuid.NewString(), ev.Kind, ev.Player, ev.Token, ev.FromAsset, ev.ToAsset,
		ev.AmountMicros, ev.NetMicros, ev.FeeMicros, ev.ValueMicros, ev.At)
	return err
}

func (p *PG) RecordPrice(ctx context.Context, pt PricePoint) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO kingo.price_points (asset_id, price_micros, tick_at)
		VALUES ($1, $2, $3)
	`, pt.AssetID, pt.PriceMicros, pt.TickAt)
	return err
}

func (p *PG) ListEvents(ctx context.Context, limit int) ([]StoredEvent, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, kind, player, token, from_asset, to_asset, amount_micros, net_micros, fee_micros, value_micros, at
		FROM kingo.events
		ORDER BY at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Player, &ev.Token, &ev.FromAsset, &ev.ToAsset,
			&ev.AmountMicros, &ev.NetMicros, &ev.FeeMicros, &ev.ValueMicros, &ev.At); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (p *PG) ListPrices(ctx context.Context, assetID int64, limit int) ([]PricePoint, error) {
	rows, err := p.db.Query(ctx, `
		SELECT asset_id, price_micros, tick_at
		FROM kingo.price_points
		WHERE asset_id = $1
		ORDER BY tick_at DESC
		LIMIT $2
	`, assetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PricePoint
	for rows.Next() {
		var pt PricePoint
		if err := rows.Scan(&pt.AssetID, &pt.PriceMicros, &pt.TickAt); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}
