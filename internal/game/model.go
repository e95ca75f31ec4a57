package game

import (
	"errors"
	"math"
	"math/big"
)

const (
	// MicrosPerUnit is the fixed-point scale: 1 whole unit of any asset
	// (v-USD included) is 1_000_000 micros.
	MicrosPerUnit = int64(1_000_000)

	// VUSD is the reserved numéraire asset. It has no oracle feed and an
	// implicit price of exactly one v-USD unit.
	VUSD = int64(0)

	BpsDenom = int64(10_000)
)

var (
	ErrPhaseViolation        = errors.New("operation not allowed in current phase")
	ErrAlreadySubscribed     = errors.New("already subscribed")
	ErrUnknownAsset          = errors.New("unknown asset")
	ErrUnknownPlayer         = errors.New("player has not subscribed")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrCooldownActive        = errors.New("swap delay not elapsed")
	ErrNotCrownHolder        = errors.New("only the crown holder can redeem")
	ErrInsufficientPrizePool = errors.New("insufficient prize pool")
	ErrRegistrySealed        = errors.New("asset registry is sealed")
	ErrNotOrganizer          = errors.New("organizer only")
	ErrInvalidAmount         = errors.New("amount must be > 0")
)

func UnitsToMicros(v float64) int64 {
	return int64(math.Round(v * float64(MicrosPerUnit)))
}

func MicrosToUnits(v int64) float64 {
	return float64(v) / float64(MicrosPerUnit)
}

// convertMicros prices amountMicros of the from-asset in micros of the
// to-asset: amount * priceFrom / priceTo, floor division.
func convertMicros(amountMicros, priceFromMicros, priceToMicros int64) (int64, error) {
	if priceFromMicros <= 0 || priceToMicros <= 0 {
		return 0, errors.New("price must be > 0")
	}
	v := new(big.Int).Mul(big.NewInt(amountMicros), big.NewInt(priceFromMicros))
	v.Div(v, big.NewInt(priceToMicros))
	if !v.IsInt64() {
		return 0, errors.New("conversion overflow")
	}
	return v.Int64(), nil
}

// valueMicros is the v-USD value of balanceMicros of an asset priced at
// priceMicros v-USD micros per whole unit.
func valueMicros(balanceMicros, priceMicros int64) (int64, error) {
	v := new(big.Int).Mul(big.NewInt(balanceMicros), big.NewInt(priceMicros))
	v.Div(v, big.NewInt(MicrosPerUnit))
	if !v.IsInt64() {
		return 0, errors.New("valuation overflow")
	}
	return v.Int64(), nil
}

// applyFee splits a gross out-amount into the net credited to the player
// and the fee, which is burned: net = gross * (BpsDenom - feeBps) / BpsDenom.
func applyFee(grossMicros, feeBps int64) (netMicros, feeMicros int64) {
	if feeBps <= 0 {
		return grossMicros, 0
	}
	v := new(big.Int).Mul(big.NewInt(grossMicros), big.NewInt(BpsDenom-feeBps))
	v.Div(v, big.NewInt(BpsDenom))
	net := v.Int64()
	return net, grossMicros - net
}
