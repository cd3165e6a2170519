package loyalty

import (
	"errors"
	"testing"

	coreerrors "fanmarket/core/errors"
)

func newTestAuthority(st *mockState, owner [20]byte) *Authority {
	authority := NewAuthority(owner)
	authority.SetState(st)
	return authority
}

func TestMintRequiresAllowList(t *testing.T) {
	st := newMockState()
	owner := testAddr(0xAA)
	authority := newTestAuthority(st, owner)
	account := testAddr(0x01)

	// Even the owner cannot mint without being on the allow-list.
	if _, err := authority.Mint(owner, account, TierBronze, 1); !errors.Is(err, coreerrors.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if balance, _ := authority.Balance(account, TierBronze); balance != 0 {
		t.Fatalf("rejected mint must not change balances")
	}
}

func TestSetAuthorizedMinterOwnerOnly(t *testing.T) {
	st := newMockState()
	owner := testAddr(0xAA)
	authority := newTestAuthority(st, owner)
	minter := testAddr(0x10)

	if err := authority.SetAuthorizedMinter(testAddr(0x99), minter, true); !errors.Is(err, coreerrors.ErrAuthorization) {
		t.Fatalf("non-owner editing the allow-list should fail, got %v", err)
	}
	if err := authority.SetAuthorizedMinter(owner, minter, true); err != nil {
		t.Fatalf("owner edit: %v", err)
	}
	allowed, err := authority.MinterAuthorized(minter)
	if err != nil || !allowed {
		t.Fatalf("minter should be authorized, got %v %v", allowed, err)
	}
}

func TestMintIncrementsBalance(t *testing.T) {
	st := newMockState()
	owner := testAddr(0xAA)
	authority := newTestAuthority(st, owner)
	minter := testAddr(0x10)
	account := testAddr(0x01)
	if err := authority.SetAuthorizedMinter(owner, minter, true); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	balance, err := authority.Mint(minter, account, TierSilver, 1)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if balance != 1 {
		t.Fatalf("balance = %d, want 1", balance)
	}
	balance, err = authority.Mint(minter, account, TierSilver, 2)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if balance != 3 {
		t.Fatalf("balance = %d, want 3", balance)
	}
	// Other tiers stay untouched.
	if other, _ := authority.Balance(account, TierBronze); other != 0 {
		t.Fatalf("bronze balance = %d, want 0", other)
	}
}

func TestMintRevocation(t *testing.T) {
	st := newMockState()
	owner := testAddr(0xAA)
	authority := newTestAuthority(st, owner)
	minter := testAddr(0x10)
	if err := authority.SetAuthorizedMinter(owner, minter, true); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := authority.SetAuthorizedMinter(owner, minter, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := authority.Mint(minter, testAddr(0x01), TierBronze, 1); !errors.Is(err, coreerrors.ErrAuthorization) {
		t.Fatalf("revoked minter must be rejected, got %v", err)
	}
}

func TestMintValidation(t *testing.T) {
	st := newMockState()
	owner := testAddr(0xAA)
	authority := newTestAuthority(st, owner)
	minter := testAddr(0x10)
	if err := authority.SetAuthorizedMinter(owner, minter, true); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if _, err := authority.Mint(minter, testAddr(0x01), TierNone, 1); !errors.Is(err, coreerrors.ErrValidation) {
		t.Fatalf("tier none must be rejected, got %v", err)
	}
	if _, err := authority.Mint(minter, testAddr(0x01), Tier(9), 1); !errors.Is(err, coreerrors.ErrValidation) {
		t.Fatalf("out-of-range tier must be rejected, got %v", err)
	}
	if _, err := authority.Mint(minter, testAddr(0x01), TierBronze, 0); !errors.Is(err, coreerrors.ErrValidation) {
		t.Fatalf("zero count must be rejected, got %v", err)
	}
	var zero [20]byte
	if _, err := authority.Mint(minter, zero, TierBronze, 1); !errors.Is(err, coreerrors.ErrValidation) {
		t.Fatalf("zero account must be rejected, got %v", err)
	}
}
