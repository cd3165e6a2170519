package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"fanmarket/core/types"
	"fanmarket/native/catalog"
	"fanmarket/native/loyalty"
	"fanmarket/native/market"
	"fanmarket/native/resale"
)

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func productID(fill byte) catalog.ProductID {
	var id catalog.ProductID
	id[0] = fill
	return id
}

func TestRevertRestoresAccounts(t *testing.T) {
	m := NewManager()
	alice := addr(0x01)
	require.NoError(t, m.Credit(alice, big.NewInt(1_000)))
	m.Commit()

	mark := m.Snapshot()
	require.NoError(t, m.Credit(alice, big.NewInt(500)))
	require.NoError(t, m.PutAccount(addr(0x02), &types.Account{Balance: big.NewInt(42)}))
	m.RevertToSnapshot(mark)

	account, err := m.GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, int64(1_000), account.Balance.Int64())

	fresh, err := m.GetAccount(addr(0x02))
	require.NoError(t, err)
	require.Zero(t, fresh.Balance.Sign(), "account created after the snapshot must vanish")
}

func TestRevertRestoresEveryStore(t *testing.T) {
	m := NewManager()
	id := productID(0x42)
	owner := addr(0x01)

	mark := m.Snapshot()
	require.NoError(t, m.CatalogProductPut(&catalog.Product{ID: id, Name: "Print", Price: big.NewInt(10), Active: true}))
	require.NoError(t, m.PurchaseAppend(&market.Purchase{ProductID: id, Buyer: owner, Price: big.NewInt(10)}))
	require.NoError(t, m.LoyaltySpendingPut(owner, &loyalty.SpendingRecord{TotalSpent: big.NewInt(10), PurchaseCount: 1}))
	require.NoError(t, m.LoyaltyMinterSet(owner, true))
	require.NoError(t, m.LoyaltyBadgeSet(owner, loyalty.TierBronze, 1))
	require.NoError(t, m.HoldingSet(owner, id, true))
	m.RevertToSnapshot(mark)

	_, ok, err := m.CatalogProductGet(id)
	require.NoError(t, err)
	require.False(t, ok)

	history, err := m.PurchasesByProduct(id)
	require.NoError(t, err)
	require.Empty(t, history)

	_, ok, err = m.LoyaltySpendingGet(owner)
	require.NoError(t, err)
	require.False(t, ok)

	allowed, err := m.LoyaltyMinterGet(owner)
	require.NoError(t, err)
	require.False(t, allowed)

	balance, err := m.LoyaltyBadgeGet(owner, loyalty.TierBronze)
	require.NoError(t, err)
	require.Zero(t, balance)

	held, err := m.HoldingGet(owner, id)
	require.NoError(t, err)
	require.False(t, held)
}

func TestCommitPinsMutations(t *testing.T) {
	m := NewManager()
	alice := addr(0x01)
	mark := m.Snapshot()
	require.NoError(t, m.Credit(alice, big.NewInt(77)))
	m.Commit()

	// The revert mark predates the commit; committed state must survive it.
	m.RevertToSnapshot(mark)
	account, err := m.GetAccount(alice)
	require.NoError(t, err)
	require.Equal(t, int64(77), account.Balance.Int64())
}

func TestActiveListingIndex(t *testing.T) {
	m := NewManager()
	seller := addr(0x01)
	id := productID(0x42)
	var listingID resale.ListingID
	listingID[0] = 0x77

	listing := &resale.Listing{ID: listingID, ProductID: id, Seller: seller, Price: big.NewInt(100), Active: true}
	require.NoError(t, m.ListingPut(listing))

	found, ok, err := m.ActiveListingBySellerProduct(seller, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, listingID, found.ID)

	// Retiring the listing drops the index entry.
	listing.Active = false
	require.NoError(t, m.ListingPut(listing))
	_, ok, err = m.ActiveListingBySellerProduct(seller, id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestActiveListingIndexRevert(t *testing.T) {
	m := NewManager()
	seller := addr(0x01)
	id := productID(0x42)
	var listingID resale.ListingID
	listingID[0] = 0x77

	mark := m.Snapshot()
	require.NoError(t, m.ListingPut(&resale.Listing{ID: listingID, ProductID: id, Seller: seller, Price: big.NewInt(100), Active: true}))
	m.RevertToSnapshot(mark)

	_, ok, err := m.ActiveListingBySellerProduct(seller, id)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = m.ListingGet(listingID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoredValuesAreIsolated(t *testing.T) {
	m := NewManager()
	id := productID(0x42)
	product := &catalog.Product{ID: id, Name: "Print", Price: big.NewInt(10), Active: true}
	require.NoError(t, m.CatalogProductPut(product))

	// Mutating the caller's copy must not leak into the store.
	product.Price.SetInt64(999)
	stored, ok, err := m.CatalogProductGet(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(10), stored.Price.Int64())

	// Mutating a returned copy must not leak either.
	stored.Name = "changed"
	again, _, err := m.CatalogProductGet(id)
	require.NoError(t, err)
	require.Equal(t, "Print", again.Name)
}

func TestHoldingsByAccountSorted(t *testing.T) {
	m := NewManager()
	owner := addr(0x01)
	require.NoError(t, m.HoldingSet(owner, productID(0x20), true))
	require.NoError(t, m.HoldingSet(owner, productID(0x10), true))
	require.NoError(t, m.HoldingSet(owner, productID(0x30), true))
	require.NoError(t, m.HoldingSet(owner, productID(0x30), false))
	require.NoError(t, m.HoldingSet(addr(0x02), productID(0x05), true))

	ids, err := m.HoldingsByAccount(owner)
	require.NoError(t, err)
	require.Equal(t, []catalog.ProductID{productID(0x10), productID(0x20)}, ids)
}

func TestCreditRejectsNegative(t *testing.T) {
	m := NewManager()
	require.Error(t, m.Credit(addr(0x01), big.NewInt(-1)))
	require.Error(t, m.Credit(addr(0x01), nil))
}
