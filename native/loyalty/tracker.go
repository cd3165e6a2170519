package loyalty

import (
	"math/big"

	"github.com/google/uuid"

	"fanmarket/core/events"
)

// TrackerState describes the persistence the tier tracker needs.
type TrackerState interface {
	LoyaltySpendingGet(addr [20]byte) (*SpendingRecord, bool, error)
	LoyaltySpendingPut(addr [20]byte, record *SpendingRecord) error
}

// Tracker is the shared loyalty bookkeeping used by both settlement engines.
// It owns spending records: totals and tiers move only upward, and a tier is
// crossed at most once per account.
type Tracker struct {
	state   TrackerState
	emitter events.Emitter
}

// NewTracker constructs a tier tracker.
func NewTracker() *Tracker {
	return &Tracker{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the tracker.
func (t *Tracker) SetState(state TrackerState) { t.state = state }

// SetEmitter configures the event emitter used by the tracker.
func (t *Tracker) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		t.emitter = events.NoopEmitter{}
		return
	}
	t.emitter = emitter
}

// RecordSpend adds a settled purchase amount to the account's lifetime spend
// and re-evaluates its tier. The returned promotion is nil when no threshold
// was newly crossed. Tiers never regress: an account already above a
// threshold is not re-promoted by later purchases.
func (t *Tracker) RecordSpend(account [20]byte, amount *big.Int) (*SpendingRecord, *Promotion, error) {
	if t == nil || t.state == nil {
		return nil, nil, errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, errInvalidAmount
	}
	record, ok, err := t.state.LoyaltySpendingGet(account)
	if err != nil {
		return nil, nil, err
	}
	if !ok || record == nil {
		record = newSpendingRecord()
	}
	if record.TotalSpent == nil {
		record.TotalSpent = big.NewInt(0)
	}
	record.TotalSpent = new(big.Int).Add(record.TotalSpent, amount)
	record.PurchaseCount++

	var promotion *Promotion
	if next := TierForSpend(record.TotalSpent); next > record.Tier {
		promotion = &Promotion{From: record.Tier, To: next}
		record.Tier = next
	}
	if err := t.state.LoyaltySpendingPut(account, record); err != nil {
		return nil, nil, err
	}
	if promotion != nil && t.emitter != nil {
		t.emitter.Emit(events.TierAdvanced{
			OperationID: uuid.NewString(),
			Account:     account,
			FromTier:    uint8(promotion.From),
			ToTier:      uint8(promotion.To),
			TotalSpent:  new(big.Int).Set(record.TotalSpent),
		})
	}
	return record.Clone(), promotion, nil
}

// SpendingInfo returns the account's spending record without mutating it.
// Accounts that never purchased resolve to an empty record.
func (t *Tracker) SpendingInfo(account [20]byte) (*SpendingRecord, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	record, ok, err := t.state.LoyaltySpendingGet(account)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return newSpendingRecord(), nil
	}
	return record.Clone(), nil
}
