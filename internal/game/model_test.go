package game

import (
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"
)

func TestSellGainFloors(t *testing.T) {
	cases := []struct {
		qty         int64
		priceTenths int64
		want        string
	}{
		{10, 12, "12"},  // ten water at 1.2 each
		{7, 12, "8"},    // 8.4 floors to 8
		{1, 12, "1"},    // 1.2 floors to 1
		{1, 8, "0"},     // below one coin floors to zero
		{3, 25, "7"},    // 7.5 floors to 7
		{1000, 4, "400"},
	}
	for _, c := range cases {
		got := sellGain(big.NewInt(c.qty), c.priceTenths)
		if got.String() != c.want {
			t.Errorf("sellGain(%d, %d) = %s, want %s", c.qty, c.priceTenths, got, c.want)
		}
	}
}

func TestSellGainLargeQuantity(t *testing.T) {
	qty, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	got := sellGain(qty, 12)
	want := "148148146814814814681481481468"
	if got.String() != want {
		t.Fatalf("sellGain big = %s, want %s", got, want)
	}
}

func TestFeeOf(t *testing.T) {
	total := big.NewInt(200)
	fee := feeOf(total, 7)
	if fee.String() != "14" {
		t.Fatalf("feeOf(200, 7) = %s, want 14", fee)
	}
	payout := new(big.Int).Sub(total, fee)
	if payout.String() != "186" {
		t.Fatalf("payout = %s, want 186", payout)
	}

	// Flooring, never rounding up.
	if got := feeOf(big.NewInt(99), 7); got.String() != "6" {
		t.Fatalf("feeOf(99, 7) = %s, want 6", got)
	}
	if got := feeOf(big.NewInt(13), 7); got.String() != "0" {
		t.Fatalf("feeOf(13, 7) = %s, want 0", got)
	}
	if got := feeOf(big.NewInt(50), 0); got.String() != "0" {
		t.Fatalf("feeOf(50, 0) = %s, want 0", got)
	}
}

func TestUpgradeCostCurve(t *testing.T) {
	want := map[int32]string{
		1: "100",
		2: "160",
		3: "256",
		4: "409",
		5: "655",
	}
	for level, w := range want {
		got := upgradeCost(100, 1.6, level)
		if got.String() != w {
			t.Errorf("upgradeCost(level=%d) = %s, want %s", level, got, w)
		}
	}
	// Degenerate level clamps to the base cost.
	if got := upgradeCost(100, 1.6, 0); got.String() != "100" {
		t.Fatalf("upgradeCost(level=0) = %s, want 100", got)
	}
}

func TestUpgradeCostHighLevelsStayPositive(t *testing.T) {
	// The curve crosses int64 range near level 90; costs must keep growing
	// instead of wrapping negative and passing the balance check.
	prev := upgradeCost(100, 1.6, 1)
	for _, level := range []int32{50, 84, 85, 90, 95, 120} {
		got := upgradeCost(100, 1.6, level)
		if got.Sign() <= 0 {
			t.Fatalf("upgradeCost(level=%d) = %s, want positive", level, got)
		}
		if got.Cmp(prev) <= 0 {
			t.Fatalf("upgradeCost(level=%d) = %s, not above previous %s", level, got, prev)
		}
		prev = got
	}
	if upgradeCost(100, 1.6, 90).Cmp(maxCoinTotal) <= 0 {
		t.Fatal("level 90 cost should already exceed int64 range")
	}
}

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("123456789012345678901234567890")
	if err != nil {
		t.Fatalf("parseAmount: %v", err)
	}
	if v.String() != "123456789012345678901234567890" {
		t.Fatalf("parseAmount round trip = %s", v)
	}
	if _, err := parseAmount("12.5"); err == nil {
		t.Fatal("parseAmount accepted a fractional string")
	}
	if _, err := parseAmount(""); err == nil {
		t.Fatal("parseAmount accepted an empty string")
	}
}

func TestMaxCoinTotalGuard(t *testing.T) {
	r := DefaultRules()
	// The worst legal listing must settle under the transfer cap, otherwise
	// valid listings would become unbuyable.
	worst := new(big.Int).Mul(big.NewInt(r.MaxListQuantity), big.NewInt(r.MaxPricePerUnit))
	if worst.Cmp(maxCoinTotal) > 0 {
		t.Fatalf("max legal listing total %s exceeds the transfer cap %s", worst, maxCoinTotal)
	}
	over := new(big.Int).Add(maxCoinTotal, big.NewInt(1))
	if over.Cmp(maxCoinTotal) <= 0 {
		t.Fatal("cap comparison must reject totals past int64 range")
	}
}

func TestErrorMatching(t *testing.T) {
	wrapped := fmt.Errorf("buying listing 7: %w", ErrListingExpired)
	if !errors.Is(wrapped, ErrListingExpired) {
		t.Fatal("wrapped listing_expired did not match its sentinel")
	}
	if errors.Is(wrapped, ErrListingNotActive) {
		t.Fatal("listing_expired matched a different sentinel")
	}

	var domain *Error
	if !errors.As(wrapped, &domain) {
		t.Fatal("wrapped error lost its *Error")
	}
	if domain.Kind != KindStateConflict {
		t.Fatalf("kind = %v, want KindStateConflict", domain.Kind)
	}
}

func TestNotEnoughResourceCodes(t *testing.T) {
	err := notEnoughResource(ResourceWood)
	if err.Code != "not_enough_wood" {
		t.Fatalf("code = %q", err.Code)
	}
	if err.Kind != KindInsufficient {
		t.Fatalf("kind = %v", err.Kind)
	}
	// Same resource matches, a different resource does not.
	if !errors.Is(err, notEnoughResource(ResourceWood)) {
		t.Fatal("identical shortage errors did not match")
	}
	if errors.Is(err, notEnoughResource(ResourceStone)) {
		t.Fatal("wood shortage matched stone shortage")
	}
}

func TestNotReadyYetCarriesDeadline(t *testing.T) {
	at := time.Now().Add(30 * time.Second)
	err := notReadyYet(at)
	if err.Code != "not_ready_yet" {
		t.Fatalf("code = %q", err.Code)
	}
	if !err.ReadyAt.Equal(at) {
		t.Fatalf("ready_at = %v, want %v", err.ReadyAt, at)
	}
}

func TestInvalidInputCarriesDetail(t *testing.T) {
	err := invalidInput("quantity must be in [1, %d]", 500)
	if err.Kind != KindValidation || err.Code != "invalid_input" {
		t.Fatalf("unexpected error %+v", err)
	}
	if err.Error() == "" {
		t.Fatal("empty message")
	}
}
