package game

import (
	"testing"
	"time"
)

func TestPhaseBoundaries(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	sched := newSchedule(start, cfg)

	tests := []struct {
		at   time.Time
		want Phase
	}{
		{start, PhaseTrading},
		{sched.tradingEnd.Add(-time.Nanosecond), PhaseTrading},
		{sched.tradingEnd, PhaseDisputing},
		{sched.disputeEnd.Add(-time.Nanosecond), PhaseDisputing},
		{sched.disputeEnd, PhaseClaimable},
		{sched.disputeEnd.Add(365 * 24 * time.Hour), PhaseClaimable},
	}
	for _, tc := range tests {
		if got := sched.phaseAt(tc.at); got != tc.want {
			t.Fatalf("phaseAt(%s) = %s, want %s", tc.at, got, tc.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := testConfig().validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}

	bad := []Config{
		{GameDuration: 0, DisputeDuration: time.Hour, AllotmentMicros: 1},
		{GameDuration: time.Hour, DisputeDuration: 0, AllotmentMicros: 1},
		{GameDuration: time.Hour, DisputeDuration: time.Hour, SwapCooldown: -time.Second, AllotmentMicros: 1},
		{GameDuration: time.Hour, DisputeDuration: time.Hour, AllotmentMicros: 0},
		{GameDuration: time.Hour, DisputeDuration: time.Hour, AllotmentMicros: 1, FeeBps: BpsDenom},
		{GameDuration: time.Hour, DisputeDuration: time.Hour, AllotmentMicros: 1, FeeBps: -1},
	}
	for i, cfg := range bad {
		if err := cfg.validate(); err == nil {
			t.Fatalf("case %d: expected config to fail", i)
		}
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseTrading.String() != "trading" || PhaseDisputing.String() != "disputing" || PhaseClaimable.String() != "claimable" {
		t.Fatalf("phase names changed")
	}
}
