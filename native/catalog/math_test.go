package catalog

import (
	"errors"
	"math/big"
	"testing"

	coreerrors "fanmarket/core/errors"
)

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestSplitAmountsConservation(t *testing.T) {
	cases := []struct {
		name   string
		splits []RoyaltySplit
		amount int64
	}{
		{"no splits", nil, 200_000},
		{"single ten percent", []RoyaltySplit{{Recipient: addr(0x01), Bps: 1_000}}, 200_000},
		{"full table", []RoyaltySplit{{Recipient: addr(0x01), Bps: 2_500}, {Recipient: addr(0x02), Bps: 7_500}}, 999_999},
		{"rounding dust", []RoyaltySplit{{Recipient: addr(0x01), Bps: 3_333}, {Recipient: addr(0x02), Bps: 3_333}, {Recipient: addr(0x03), Bps: 3_333}}, 1_000_001},
		{"tiny amount", []RoyaltySplit{{Recipient: addr(0x01), Bps: 1}}, 7},
		{"zero amount", []RoyaltySplit{{Recipient: addr(0x01), Bps: 5_000}}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amount := big.NewInt(tc.amount)
			payments, remainder := SplitAmounts(tc.splits, amount)
			total := new(big.Int).Set(remainder)
			for _, payment := range payments {
				if payment.Amount.Sign() < 0 {
					t.Fatalf("negative share %s", payment.Amount)
				}
				total.Add(total, payment.Amount)
			}
			if total.Cmp(amount) != 0 {
				t.Fatalf("split does not conserve amount: got %s want %s", total, amount)
			}
			if remainder.Sign() < 0 {
				t.Fatalf("negative remainder %s", remainder)
			}
		})
	}
}

func TestSplitAmountsExactShares(t *testing.T) {
	payments, remainder := SplitAmounts([]RoyaltySplit{{Recipient: addr(0x01), Bps: 1_000}}, big.NewInt(200_000))
	if len(payments) != 1 {
		t.Fatalf("expected one payment, got %d", len(payments))
	}
	if payments[0].Amount.Cmp(big.NewInt(20_000)) != 0 {
		t.Fatalf("recipient share = %s, want 20000", payments[0].Amount)
	}
	if remainder.Cmp(big.NewInt(180_000)) != 0 {
		t.Fatalf("platform remainder = %s, want 180000", remainder)
	}
}

func TestValidateSplits(t *testing.T) {
	if err := ValidateSplits([]RoyaltySplit{{Recipient: addr(0x01), Bps: 10_000}}); err != nil {
		t.Fatalf("full allocation should validate: %v", err)
	}
	err := ValidateSplits([]RoyaltySplit{{Recipient: addr(0x01), Bps: 6_000}, {Recipient: addr(0x02), Bps: 6_000}})
	if !errors.Is(err, coreerrors.ErrValidation) {
		t.Fatalf("over-allocated table should fail validation, got %v", err)
	}
	err = ValidateSplits([]RoyaltySplit{{Bps: 100}})
	if !errors.Is(err, coreerrors.ErrValidation) {
		t.Fatalf("zero recipient should fail validation, got %v", err)
	}
}
