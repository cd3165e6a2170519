// Package state holds the marketplace ledger: accounts, products, purchases,
// spending records, badge balances, listings, and holdings. All mutation goes
// through the engines; the manager adds an undo journal so the node facade
// can make every public operation all-or-nothing.
package state

import (
	"fmt"
	"math/big"
	"sort"

	"fanmarket/core/types"
	"fanmarket/native/catalog"
	"fanmarket/native/loyalty"
	"fanmarket/native/market"
	"fanmarket/native/resale"
)

type holdingKey struct {
	addr    [20]byte
	product catalog.ProductID
}

type badgeKey struct {
	addr [20]byte
	tier loyalty.Tier
}

// Manager is the in-memory ledger shared by every engine. It is not safe for
// concurrent use; the node serializes access.
type Manager struct {
	accounts       map[[20]byte]*types.Account
	products       map[catalog.ProductID]*catalog.Product
	purchases      map[catalog.ProductID][]*market.Purchase
	spending       map[[20]byte]*loyalty.SpendingRecord
	badges         map[badgeKey]uint64
	minters        map[[20]byte]bool
	listings       map[resale.ListingID]*resale.Listing
	activeListings map[holdingKey]resale.ListingID
	holdings       map[holdingKey]bool
	journal        []func()
}

// NewManager constructs an empty ledger.
func NewManager() *Manager {
	return &Manager{
		accounts:       make(map[[20]byte]*types.Account),
		products:       make(map[catalog.ProductID]*catalog.Product),
		purchases:      make(map[catalog.ProductID][]*market.Purchase),
		spending:       make(map[[20]byte]*loyalty.SpendingRecord),
		badges:         make(map[badgeKey]uint64),
		minters:        make(map[[20]byte]bool),
		listings:       make(map[resale.ListingID]*resale.Listing),
		activeListings: make(map[holdingKey]resale.ListingID),
		holdings:       make(map[holdingKey]bool),
	}
}

// Snapshot marks the current journal position. Reverting to it undoes every
// mutation applied since.
func (m *Manager) Snapshot() int { return len(m.journal) }

// RevertToSnapshot unwinds the journal back to the supplied mark.
func (m *Manager) RevertToSnapshot(mark int) {
	if mark < 0 || mark > len(m.journal) {
		return
	}
	for i := len(m.journal) - 1; i >= mark; i-- {
		m.journal[i]()
	}
	m.journal = m.journal[:mark]
}

// Commit discards the undo journal. Committed mutations can no longer be
// reverted.
func (m *Manager) Commit() { m.journal = m.journal[:0] }

func (m *Manager) record(undo func()) { m.journal = append(m.journal, undo) }

// --- accounts ---

// GetAccount returns a copy of the account, creating an empty view for
// unknown addresses.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	if account, ok := m.accounts[addr]; ok {
		return account.Clone(), nil
	}
	return &types.Account{Balance: big.NewInt(0)}, nil
}

// PutAccount stores a copy of the account.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	prev, existed := m.accounts[addr]
	m.record(func() {
		if existed {
			m.accounts[addr] = prev
		} else {
			delete(m.accounts, addr)
		}
	})
	m.accounts[addr] = account.Clone()
	return nil
}

// Credit adds funds to an account's payment balance. This is the hook the
// external payment gateway drives; it participates in the undo journal like
// every other mutation.
func (m *Manager) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: credit amount must be non-negative")
	}
	account, err := m.GetAccount(addr)
	if err != nil {
		return err
	}
	account = account.Normalize()
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return m.PutAccount(addr, account)
}

// --- catalog ---

// CatalogProductGet returns a copy of the stored product.
func (m *Manager) CatalogProductGet(id catalog.ProductID) (*catalog.Product, bool, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, false, nil
	}
	return product.Clone(), true, nil
}

// CatalogProductPut stores a copy of the product.
func (m *Manager) CatalogProductPut(product *catalog.Product) error {
	if product == nil {
		return fmt.Errorf("state: nil product")
	}
	id := product.ID
	prev, existed := m.products[id]
	m.record(func() {
		if existed {
			m.products[id] = prev
		} else {
			delete(m.products, id)
		}
	})
	m.products[id] = product.Clone()
	return nil
}

// CatalogProducts returns copies of every stored product.
func (m *Manager) CatalogProducts() ([]*catalog.Product, error) {
	products := make([]*catalog.Product, 0, len(m.products))
	for _, product := range m.products {
		products = append(products, product.Clone())
	}
	return products, nil
}

// --- purchases ---

// PurchaseAppend appends an immutable purchase record to the product's
// history.
func (m *Manager) PurchaseAppend(purchase *market.Purchase) error {
	if purchase == nil {
		return fmt.Errorf("state: nil purchase")
	}
	id := purchase.ProductID
	m.record(func() {
		history := m.purchases[id]
		if len(history) == 0 {
			return
		}
		m.purchases[id] = history[:len(history)-1]
	})
	m.purchases[id] = append(m.purchases[id], purchase.Clone())
	return nil
}

// PurchasesByProduct returns copies of the product's purchase history.
func (m *Manager) PurchasesByProduct(id catalog.ProductID) ([]*market.Purchase, error) {
	history := m.purchases[id]
	cloned := make([]*market.Purchase, 0, len(history))
	for _, purchase := range history {
		cloned = append(cloned, purchase.Clone())
	}
	return cloned, nil
}

// --- loyalty ---

// LoyaltySpendingGet returns a copy of the account's spending record.
func (m *Manager) LoyaltySpendingGet(addr [20]byte) (*loyalty.SpendingRecord, bool, error) {
	record, ok := m.spending[addr]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

// LoyaltySpendingPut stores a copy of the account's spending record.
func (m *Manager) LoyaltySpendingPut(addr [20]byte, record *loyalty.SpendingRecord) error {
	if record == nil {
		return fmt.Errorf("state: nil spending record")
	}
	prev, existed := m.spending[addr]
	m.record(func() {
		if existed {
			m.spending[addr] = prev
		} else {
			delete(m.spending, addr)
		}
	})
	m.spending[addr] = record.Clone()
	return nil
}

// LoyaltyMinterGet reports whether the address is on the minter allow-list.
func (m *Manager) LoyaltyMinterGet(addr [20]byte) (bool, error) {
	return m.minters[addr], nil
}

// LoyaltyMinterSet edits the minter allow-list.
func (m *Manager) LoyaltyMinterSet(addr [20]byte, allowed bool) error {
	prev, existed := m.minters[addr]
	m.record(func() {
		if existed {
			m.minters[addr] = prev
		} else {
			delete(m.minters, addr)
		}
	})
	m.minters[addr] = allowed
	return nil
}

// LoyaltyBadgeGet returns the badge balance for (account, tier).
func (m *Manager) LoyaltyBadgeGet(addr [20]byte, tier loyalty.Tier) (uint64, error) {
	return m.badges[badgeKey{addr: addr, tier: tier}], nil
}

// LoyaltyBadgeSet stores the badge balance for (account, tier).
func (m *Manager) LoyaltyBadgeSet(addr [20]byte, tier loyalty.Tier, balance uint64) error {
	key := badgeKey{addr: addr, tier: tier}
	prev, existed := m.badges[key]
	m.record(func() {
		if existed {
			m.badges[key] = prev
		} else {
			delete(m.badges, key)
		}
	})
	m.badges[key] = balance
	return nil
}

// --- resale listings ---

// ListingGet returns a copy of the stored listing.
func (m *Manager) ListingGet(id resale.ListingID) (*resale.Listing, bool, error) {
	listing, ok := m.listings[id]
	if !ok {
		return nil, false, nil
	}
	return listing.Clone(), true, nil
}

// ListingPut stores a copy of the listing and maintains the active-listing
// index keyed by (seller, product).
func (m *Manager) ListingPut(listing *resale.Listing) error {
	if listing == nil {
		return fmt.Errorf("state: nil listing")
	}
	id := listing.ID
	key := holdingKey{addr: listing.Seller, product: listing.ProductID}
	prevListing, hadListing := m.listings[id]
	prevIndex, hadIndex := m.activeListings[key]
	m.record(func() {
		if hadListing {
			m.listings[id] = prevListing
		} else {
			delete(m.listings, id)
		}
		if hadIndex {
			m.activeListings[key] = prevIndex
		} else {
			delete(m.activeListings, key)
		}
	})
	m.listings[id] = listing.Clone()
	if listing.Active {
		m.activeListings[key] = id
	} else if current, ok := m.activeListings[key]; ok && current == id {
		delete(m.activeListings, key)
	}
	return nil
}

// Listings returns copies of every stored listing.
func (m *Manager) Listings() ([]*resale.Listing, error) {
	listings := make([]*resale.Listing, 0, len(m.listings))
	for _, listing := range m.listings {
		listings = append(listings, listing.Clone())
	}
	return listings, nil
}

// ActiveListingBySellerProduct resolves the seller's live listing for a
// product, if any.
func (m *Manager) ActiveListingBySellerProduct(seller [20]byte, id catalog.ProductID) (*resale.Listing, bool, error) {
	listingID, ok := m.activeListings[holdingKey{addr: seller, product: id}]
	if !ok {
		return nil, false, nil
	}
	listing, ok := m.listings[listingID]
	if !ok || listing == nil || !listing.Active {
		return nil, false, nil
	}
	return listing.Clone(), true, nil
}

// --- holdings ---

// HoldingGet reports whether the account currently holds a redeemable unit of
// the product.
func (m *Manager) HoldingGet(addr [20]byte, id catalog.ProductID) (bool, error) {
	return m.holdings[holdingKey{addr: addr, product: id}], nil
}

// HoldingSet flips the account's holding flag for the product.
func (m *Manager) HoldingSet(addr [20]byte, id catalog.ProductID, held bool) error {
	key := holdingKey{addr: addr, product: id}
	prev, existed := m.holdings[key]
	m.record(func() {
		if existed {
			m.holdings[key] = prev
		} else {
			delete(m.holdings, key)
		}
	})
	if held {
		m.holdings[key] = true
	} else {
		delete(m.holdings, key)
	}
	return nil
}

// HoldingsByAccount returns the product ids the account holds, ordered by id
// for determinism.
func (m *Manager) HoldingsByAccount(addr [20]byte) ([]catalog.ProductID, error) {
	ids := make([]catalog.ProductID, 0)
	for key, held := range m.holdings {
		if held && key.addr == addr {
			ids = append(ids, key.product)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return string(ids[i][:]) < string(ids[j][:])
	})
	return ids, nil
}
