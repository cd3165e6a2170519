package catalog

import "math/big"

// SplitPayment pairs a royalty recipient with its computed share of a sale.
type SplitPayment struct {
	Recipient [20]byte
	Amount    *big.Int
}

// SplitAmounts applies a royalty table to a sale amount. Each recipient
// receives amount*bps/10000 with integer division; the returned remainder is
// everything the recipients did not claim and accrues to the platform
// account. Both settlement engines must route their splits through this
// function so rounding behaves identically everywhere.
//
// For every valid table: sum(payments) + remainder == amount, exactly.
func SplitAmounts(splits []RoyaltySplit, amount *big.Int) ([]SplitPayment, *big.Int) {
	if amount == nil {
		amount = big.NewInt(0)
	}
	remainder := new(big.Int).Set(amount)
	if len(splits) == 0 {
		return nil, remainder
	}
	payments := make([]SplitPayment, 0, len(splits))
	denominator := big.NewInt(BpsDenominator)
	for _, split := range splits {
		share := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(split.Bps)))
		share = share.Div(share, denominator)
		payments = append(payments, SplitPayment{Recipient: split.Recipient, Amount: share})
		remainder = remainder.Sub(remainder, share)
	}
	return payments, remainder
}

// ValidateSplits checks a royalty table for zero recipients and an aggregate
// percentage above 100%.
func ValidateSplits(splits []RoyaltySplit) error {
	total := uint64(0)
	for _, split := range splits {
		if isZeroAddress(split.Recipient) {
			return errZeroRecipient
		}
		total += uint64(split.Bps)
	}
	if total > BpsDenominator {
		return errSplitsExceedTotal
	}
	return nil
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
