package game

import "testing"

func TestConvertMicros(t *testing.T) {
	tests := []struct {
		amount, priceFrom, priceTo int64
		want                       int64
	}{
		// 100 v-USD at 2 v-USD per unit.
		{100 * MicrosPerUnit, MicrosPerUnit, 2 * MicrosPerUnit, 50 * MicrosPerUnit},
		// Back the other way.
		{50 * MicrosPerUnit, 2 * MicrosPerUnit, MicrosPerUnit, 100 * MicrosPerUnit},
		// Floor division on an uneven ratio.
		{1, MicrosPerUnit, 3 * MicrosPerUnit, 0},
		{10 * MicrosPerUnit, 3 * MicrosPerUnit, 7 * MicrosPerUnit, 4_285_714},
	}
	for _, tc := range tests {
		got, err := convertMicros(tc.amount, tc.priceFrom, tc.priceTo)
		if err != nil {
			t.Fatalf("convert(%d,%d,%d): %v", tc.amount, tc.priceFrom, tc.priceTo, err)
		}
		if got != tc.want {
			t.Fatalf("convert(%d,%d,%d) = %d, want %d", tc.amount, tc.priceFrom, tc.priceTo, got, tc.want)
		}
	}

	if _, err := convertMicros(MicrosPerUnit, 0, MicrosPerUnit); err == nil {
		t.Fatalf("expected zero price to fail")
	}
	if _, err := convertMicros(MicrosPerUnit, MicrosPerUnit, -1); err == nil {
		t.Fatalf("expected negative price to fail")
	}
}

func TestConvertMicrosLargeAmounts(t *testing.T) {
	// int64 would overflow on the intermediate product; big.Int must not.
	amount := int64(100_000) * MicrosPerUnit
	got, err := convertMicros(amount, 64_250*MicrosPerUnit, MicrosPerUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := int64(100_000) * 64_250 * MicrosPerUnit
	if got != want {
		t.Fatalf("got %d want %d", got, want)
	}
}

func TestValueMicros(t *testing.T) {
	got, err := valueMicros(50*MicrosPerUnit, 2*MicrosPerUnit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100*MicrosPerUnit {
		t.Fatalf("got %d want %d", got, 100*MicrosPerUnit)
	}
}

func TestApplyFee(t *testing.T) {
	net, fee := applyFee(50*MicrosPerUnit, 20)
	if net != 49_900_000 || fee != 100_000 {
		t.Fatalf("20bps: net=%d fee=%d", net, fee)
	}
	if net+fee != 50*MicrosPerUnit {
		t.Fatalf("net+fee must equal gross")
	}

	net, fee = applyFee(50*MicrosPerUnit, 0)
	if net != 50*MicrosPerUnit || fee != 0 {
		t.Fatalf("zero fee: net=%d fee=%d", net, fee)
	}

	// Rounding always favors the pool: the fee absorbs the remainder.
	net, fee = applyFee(3, 20)
	if net+fee != 3 || net > 3 {
		t.Fatalf("tiny gross: net=%d fee=%d", net, fee)
	}
}

func TestUnitConversion(t *testing.T) {
	if got := UnitsToMicros(1.5); got != 1_500_000 {
		t.Fatalf("UnitsToMicros(1.5) = %d", got)
	}
	if got := MicrosToUnits(2_500_000); got != 2.5 {
		t.Fatalf("MicrosToUnits(2500000) = %f", got)
	}
}
