package loyalty

import (
	"github.com/google/uuid"

	"fanmarket/core/events"
)

// AuthorityState describes the persistence the badge authority needs.
type AuthorityState interface {
	LoyaltyMinterGet(addr [20]byte) (bool, error)
	LoyaltyMinterSet(addr [20]byte, allowed bool) error
	LoyaltyBadgeGet(addr [20]byte, tier Tier) (uint64, error)
	LoyaltyBadgeSet(addr [20]byte, tier Tier, balance uint64) error
}

// Authority is the capability-gated badge issuer. Only identities on the
// authorized-minter allow-list may request mints, and only the platform owner
// may edit the list. Badge balances only ever increase; there is no burn.
type Authority struct {
	state   AuthorityState
	emitter events.Emitter
	owner   [20]byte
}

// NewAuthority constructs a badge authority owned by the supplied platform
// account.
func NewAuthority(owner [20]byte) *Authority {
	return &Authority{owner: owner, emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the authority.
func (a *Authority) SetState(state AuthorityState) { a.state = state }

// SetEmitter configures the event emitter used by the authority.
func (a *Authority) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		a.emitter = events.NoopEmitter{}
		return
	}
	a.emitter = emitter
}

// Owner returns the platform owner identity controlling the allow-list.
func (a *Authority) Owner() [20]byte { return a.owner }

// SetAuthorizedMinter edits the minter allow-list. Owner only.
func (a *Authority) SetAuthorizedMinter(caller [20]byte, minter [20]byte, allowed bool) error {
	if a == nil || a.state == nil {
		return errNilState
	}
	if caller != a.owner {
		return errNotOwner
	}
	var zero [20]byte
	if minter == zero {
		return errZeroAccount
	}
	return a.state.LoyaltyMinterSet(minter, allowed)
}

// MinterAuthorized reports whether the identity may request mints.
func (a *Authority) MinterAuthorized(addr [20]byte) (bool, error) {
	if a == nil || a.state == nil {
		return false, errNilState
	}
	return a.state.LoyaltyMinterGet(addr)
}

// Mint credits count badges of the supplied tier to the account and returns
// the new balance. The caller must be on the allow-list; the gate is checked
// before any state is touched.
func (a *Authority) Mint(caller [20]byte, account [20]byte, tier Tier, count uint64) (uint64, error) {
	if a == nil || a.state == nil {
		return 0, errNilState
	}
	allowed, err := a.state.LoyaltyMinterGet(caller)
	if err != nil {
		return 0, err
	}
	if !allowed {
		return 0, errMintGateClosed
	}
	if !tier.Valid() {
		return 0, errInvalidTier
	}
	if count == 0 {
		return 0, errZeroCount
	}
	var zero [20]byte
	if account == zero {
		return 0, errZeroAccount
	}
	balance, err := a.state.LoyaltyBadgeGet(account, tier)
	if err != nil {
		return 0, err
	}
	balance += count
	if err := a.state.LoyaltyBadgeSet(account, tier, balance); err != nil {
		return 0, err
	}
	if a.emitter != nil {
		a.emitter.Emit(events.BadgeMinted{
			OperationID: uuid.NewString(),
			Account:     account,
			Tier:        uint8(tier),
			Count:       count,
			Balance:     balance,
		})
	}
	return balance, nil
}

// Balance returns the badge count held by the account for the tier.
func (a *Authority) Balance(account [20]byte, tier Tier) (uint64, error) {
	if a == nil || a.state == nil {
		return 0, errNilState
	}
	if !tier.Valid() {
		return 0, errInvalidTier
	}
	return a.state.LoyaltyBadgeGet(account, tier)
}
