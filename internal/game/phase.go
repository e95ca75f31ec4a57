package game

import (
	"fmt"
	"time"
)

// Phase is derived from the clock on every call; it is never stored, so it
// cannot drift from wall-clock reality. Subscriptions share the trading
// window: they close when trading closes.
type Phase int

const (
	PhaseTrading Phase = iota
	PhaseDisputing
	PhaseClaimable
)

func (p Phase) String() string {
	switch p {
	case PhaseTrading:
		return "trading"
	case PhaseDisputing:
		return "disputing"
	case PhaseClaimable:
		return "claimable"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Config is immutable once a game instance is constructed.
type Config struct {
	GameDuration    time.Duration
	DisputeDuration time.Duration
	SwapCooldown    time.Duration
	AllotmentMicros int64
	FeeBps          int64
}

func (c Config) validate() error {
	if c.GameDuration <= 0 {
		return fmt.Errorf("game duration must be > 0")
	}
	if c.DisputeDuration <= 0 {
		return fmt.Errorf("dispute duration must be > 0")
	}
	if c.SwapCooldown < 0 {
		return fmt.Errorf("swap cooldown must be >= 0")
	}
	if c.AllotmentMicros <= 0 {
		return fmt.Errorf("starting allotment must be > 0")
	}
	if c.FeeBps < 0 || c.FeeBps >= BpsDenom {
		return fmt.Errorf("fee bps must be in [0, %d)", BpsDenom)
	}
	return nil
}

type schedule struct {
	start      time.Time
	tradingEnd time.Time
	disputeEnd time.Time
}

func newSchedule(start time.Time, cfg Config) schedule {
	tradingEnd := start.Add(cfg.GameDuration)
	return schedule{
		start:      start,
		tradingEnd: tradingEnd,
		disputeEnd: tradingEnd.Add(cfg.DisputeDuration),
	}
}

func (s schedule) phaseAt(now time.Time) Phase {
	switch {
	case now.Before(s.tradingEnd):
		return PhaseTrading
	case now.Before(s.disputeEnd):
		return PhaseDisputing
	default:
		return PhaseClaimable
	}
}
