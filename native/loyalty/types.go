package loyalty

import "math/big"

// SpendingRecord accumulates an account's lifetime marketplace spend. The
// total and tier only ever move upward and only through the tracker.
type SpendingRecord struct {
	TotalSpent    *big.Int `json:"totalSpent"`
	PurchaseCount uint64   `json:"purchaseCount"`
	Tier          Tier     `json:"tier"`
}

// Clone returns a deep copy of the spending record.
func (r *SpendingRecord) Clone() *SpendingRecord {
	if r == nil {
		return nil
	}
	clone := *r
	if r.TotalSpent != nil {
		clone.TotalSpent = new(big.Int).Set(r.TotalSpent)
	}
	return &clone
}

func newSpendingRecord() *SpendingRecord {
	return &SpendingRecord{TotalSpent: big.NewInt(0)}
}

// Promotion records a tier crossing produced by a recorded spend.
type Promotion struct {
	From Tier
	To   Tier
}
