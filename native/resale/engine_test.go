package resale

import (
	"errors"
	"math/big"
	"sort"
	"testing"

	coreerrors "fanmarket/core/errors"
	"fanmarket/core/events"
	"fanmarket/core/types"
	"fanmarket/native/catalog"
	"fanmarket/native/loyalty"
	"fanmarket/native/market"
)

type holdKey struct {
	addr    [20]byte
	product catalog.ProductID
}

type badgeTestKey struct {
	addr [20]byte
	tier loyalty.Tier
}

type mockState struct {
	products  map[catalog.ProductID]*catalog.Product
	accounts  map[[20]byte]*types.Account
	listings  map[ListingID]*Listing
	holdings  map[holdKey]bool
	purchases []*market.Purchase
	spending  map[[20]byte]*loyalty.SpendingRecord
	minters   map[[20]byte]bool
	badges    map[badgeTestKey]uint64
}

func newMockState() *mockState {
	return &mockState{
		products: make(map[catalog.ProductID]*catalog.Product),
		accounts: make(map[[20]byte]*types.Account),
		listings: make(map[ListingID]*Listing),
		holdings: make(map[holdKey]bool),
		spending: make(map[[20]byte]*loyalty.SpendingRecord),
		minters:  make(map[[20]byte]bool),
		badges:   make(map[badgeTestKey]uint64),
	}
}

func (m *mockState) CatalogProductGet(id catalog.ProductID) (*catalog.Product, bool, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, false, nil
	}
	return product.Clone(), true, nil
}

func (m *mockState) GetAccount(addr [20]byte) (*types.Account, error) {
	if account, ok := m.accounts[addr]; ok {
		return account.Clone(), nil
	}
	return &types.Account{Balance: big.NewInt(0)}, nil
}

func (m *mockState) PutAccount(addr [20]byte, account *types.Account) error {
	m.accounts[addr] = account.Clone()
	return nil
}

func (m *mockState) ListingGet(id ListingID) (*Listing, bool, error) {
	listing, ok := m.listings[id]
	if !ok {
		return nil, false, nil
	}
	return listing.Clone(), true, nil
}

func (m *mockState) ListingPut(listing *Listing) error {
	m.listings[listing.ID] = listing.Clone()
	return nil
}

func (m *mockState) Listings() ([]*Listing, error) {
	out := make([]*Listing, 0, len(m.listings))
	for _, listing := range m.listings {
		out = append(out, listing.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i].ID[:]) < string(out[j].ID[:]) })
	return out, nil
}

func (m *mockState) ActiveListingBySellerProduct(seller [20]byte, id catalog.ProductID) (*Listing, bool, error) {
	for _, listing := range m.listings {
		if listing.Active && listing.Seller == seller && listing.ProductID == id {
			return listing.Clone(), true, nil
		}
	}
	return nil, false, nil
}

func (m *mockState) HoldingGet(addr [20]byte, id catalog.ProductID) (bool, error) {
	return m.holdings[holdKey{addr: addr, product: id}], nil
}

func (m *mockState) HoldingSet(addr [20]byte, id catalog.ProductID, held bool) error {
	m.holdings[holdKey{addr: addr, product: id}] = held
	return nil
}

func (m *mockState) HoldingsByAccount(addr [20]byte) ([]catalog.ProductID, error) {
	var out []catalog.ProductID
	for key, held := range m.holdings {
		if held && key.addr == addr {
			out = append(out, key.product)
		}
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i][:]) < string(out[j][:]) })
	return out, nil
}

func (m *mockState) PurchaseAppend(purchase *market.Purchase) error {
	m.purchases = append(m.purchases, purchase.Clone())
	return nil
}

func (m *mockState) LoyaltySpendingGet(addr [20]byte) (*loyalty.SpendingRecord, bool, error) {
	record, ok := m.spending[addr]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) LoyaltySpendingPut(addr [20]byte, record *loyalty.SpendingRecord) error {
	m.spending[addr] = record.Clone()
	return nil
}

func (m *mockState) LoyaltyMinterGet(addr [20]byte) (bool, error) { return m.minters[addr], nil }

func (m *mockState) LoyaltyMinterSet(addr [20]byte, allowed bool) error {
	m.minters[addr] = allowed
	return nil
}

func (m *mockState) LoyaltyBadgeGet(addr [20]byte, tier loyalty.Tier) (uint64, error) {
	return m.badges[badgeTestKey{addr: addr, tier: tier}], nil
}

func (m *mockState) LoyaltyBadgeSet(addr [20]byte, tier loyalty.Tier, balance uint64) error {
	m.badges[badgeTestKey{addr: addr, tier: tier}] = balance
	return nil
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	if account, ok := m.accounts[addr]; ok && account.Balance != nil {
		return new(big.Int).Set(account.Balance)
	}
	return big.NewInt(0)
}

func (m *mockState) fund(addr [20]byte, amount int64) {
	m.accounts[addr] = &types.Account{Balance: big.NewInt(amount)}
}

func testAddr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

var (
	platformAddr = testAddr(0xEE)
	moduleAddr   = testAddr(0xF1)
	ownerAddr    = testAddr(0xAA)
	creatorAddr  = testAddr(0x11)
)

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func newTestEngine(t *testing.T) (*Engine, *mockState, *captureEmitter) {
	t.Helper()
	st := newMockState()
	emitted := &captureEmitter{}

	tracker := loyalty.NewTracker()
	tracker.SetState(st)
	authority := loyalty.NewAuthority(ownerAddr)
	authority.SetState(st)
	if err := authority.SetAuthorizedMinter(ownerAddr, moduleAddr, true); err != nil {
		t.Fatalf("authorize module: %v", err)
	}

	engine := NewEngine()
	engine.SetState(st)
	engine.SetEmitter(emitted)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	engine.SetPlatformAccount(platformAddr)
	engine.SetModuleAccount(moduleAddr)
	engine.SetLoyalty(tracker, authority)
	return engine, st, emitted
}

func seedProduct(st *mockState, resaleRoyaltyBps uint32) catalog.ProductID {
	var id catalog.ProductID
	id[0] = 0x42
	st.products[id] = &catalog.Product{
		ID:               id,
		Name:             "Tour Poster",
		Price:            big.NewInt(500_000),
		Active:           true,
		Creator:          creatorAddr,
		ResaleRoyaltyBps: resaleRoyaltyBps,
	}
	return id
}

func TestListForResale(t *testing.T) {
	engine, st, emitted := newTestEngine(t)
	productID := seedProduct(st, 500)
	seller := testAddr(0x22)
	st.holdings[holdKey{addr: seller, product: productID}] = true

	listing, err := engine.ListForResale(seller, productID, big.NewInt(2_000_000))
	if err != nil {
		t.Fatalf("list for resale: %v", err)
	}
	if !listing.Active || listing.Seller != seller || listing.Price.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if len(emitted.events) != 1 || emitted.events[0].EventType() != events.TypeResaleListed {
		t.Fatalf("listing must emit resale.listing.created")
	}

	// The same seller cannot double-list the same product.
	if _, err := engine.ListForResale(seller, productID, big.NewInt(3_000_000)); !errors.Is(err, coreerrors.ErrState) {
		t.Fatalf("double listing must fail with state error, got %v", err)
	}
}

func TestListForResaleRejections(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	productID := seedProduct(st, 500)
	seller := testAddr(0x22)

	if _, err := engine.ListForResale(seller, productID, big.NewInt(0)); !errors.Is(err, coreerrors.ErrValidation) {
		t.Fatalf("zero price must fail validation, got %v", err)
	}
	if _, err := engine.ListForResale(seller, productID, nil); !errors.Is(err, coreerrors.ErrValidation) {
		t.Fatalf("nil price must fail validation, got %v", err)
	}
	var missing catalog.ProductID
	missing[0] = 0x99
	if _, err := engine.ListForResale(seller, missing, big.NewInt(1_000)); !errors.Is(err, coreerrors.ErrState) {
		t.Fatalf("unknown product must fail with state error, got %v", err)
	}
	// Seller does not hold the product.
	if _, err := engine.ListForResale(seller, productID, big.NewInt(1_000)); !errors.Is(err, coreerrors.ErrState) {
		t.Fatalf("non-holder listing must fail with state error, got %v", err)
	}
}

func TestCancelListing(t *testing.T) {
	engine, st, emitted := newTestEngine(t)
	productID := seedProduct(st, 500)
	seller := testAddr(0x22)
	st.holdings[holdKey{addr: seller, product: productID}] = true

	listing, err := engine.ListForResale(seller, productID, big.NewInt(2_000_000))
	if err != nil {
		t.Fatalf("list for resale: %v", err)
	}

	if _, err := engine.CancelListing(testAddr(0x33), listing.ID); !errors.Is(err, coreerrors.ErrAuthorization) {
		t.Fatalf("only the lister may cancel, got %v", err)
	}

	cancelled, err := engine.CancelListing(seller, listing.ID)
	if err != nil {
		t.Fatalf("cancel listing: %v", err)
	}
	if cancelled.Active {
		t.Fatalf("cancelled listing must be inactive")
	}
	if !st.holdings[holdKey{addr: seller, product: productID}] {
		t.Fatalf("cancellation must leave the holding with the seller")
	}
	if emitted.events[len(emitted.events)-1].EventType() != events.TypeResaleCancelled {
		t.Fatalf("cancellation must emit resale.listing.cancelled")
	}

	// Cancelling twice behaves like a missing listing.
	if _, err := engine.CancelListing(seller, listing.ID); !errors.Is(err, coreerrors.ErrState) {
		t.Fatalf("second cancel must fail with state error, got %v", err)
	}
}

func TestBuyResaleItemThreeWaySplit(t *testing.T) {
	engine, st, emitted := newTestEngine(t)
	productID := seedProduct(st, 500)
	seller := testAddr(0x22)
	buyer := testAddr(0x33)
	st.holdings[holdKey{addr: seller, product: productID}] = true
	st.fund(buyer, 3_000_000)

	listing, err := engine.ListForResale(seller, productID, big.NewInt(2_000_000))
	if err != nil {
		t.Fatalf("list for resale: %v", err)
	}
	sale, err := engine.BuyResaleItem(buyer, listing.ID)
	if err != nil {
		t.Fatalf("buy resale item: %v", err)
	}

	if st.balance(buyer).Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("buyer balance = %s, want 1000000", st.balance(buyer))
	}
	if st.balance(platformAddr).Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("platform fee = %s, want 50000", st.balance(platformAddr))
	}
	if st.balance(creatorAddr).Cmp(big.NewInt(100_000)) != 0 {
		t.Fatalf("creator royalty = %s, want 100000", st.balance(creatorAddr))
	}
	if st.balance(seller).Cmp(big.NewInt(1_850_000)) != 0 {
		t.Fatalf("seller amount = %s, want 1850000", st.balance(seller))
	}
	if st.holdings[holdKey{addr: seller, product: productID}] {
		t.Fatalf("holding must leave the seller")
	}
	if !st.holdings[holdKey{addr: buyer, product: productID}] {
		t.Fatalf("holding must move to the buyer")
	}
	if st.listings[listing.ID].Active {
		t.Fatalf("settled listing must be retired")
	}
	if sale.Purchase.Origin != market.OriginResale {
		t.Fatalf("purchase origin = %s, want resale", sale.Purchase.Origin)
	}
	record := st.spending[buyer]
	if record == nil || record.TotalSpent.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("resale spend must accrue loyalty, got %+v", record)
	}
	if record.Tier != loyalty.TierSilver {
		t.Fatalf("2m spend reaches silver, got %v", record.Tier)
	}
	if st.badges[badgeTestKey{addr: buyer, tier: loyalty.TierSilver}] != 1 {
		t.Fatalf("silver badge must be minted on promotion")
	}
	last := emitted.events[len(emitted.events)-1]
	if last.EventType() != events.TypeResaleSold {
		t.Fatalf("settlement must emit resale.sold last")
	}
}

func TestBuyResaleItemRejections(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	productID := seedProduct(st, 500)
	seller := testAddr(0x22)
	buyer := testAddr(0x33)
	st.holdings[holdKey{addr: seller, product: productID}] = true

	listing, err := engine.ListForResale(seller, productID, big.NewInt(2_000_000))
	if err != nil {
		t.Fatalf("list for resale: %v", err)
	}

	st.fund(buyer, 1_999_999)
	if _, err := engine.BuyResaleItem(buyer, listing.ID); !errors.Is(err, coreerrors.ErrPayment) {
		t.Fatalf("underfunded buyer must fail payment, got %v", err)
	}
	if st.balance(buyer).Cmp(big.NewInt(1_999_999)) != 0 {
		t.Fatalf("failed trade must not move funds")
	}

	var missing ListingID
	missing[0] = 0x77
	st.fund(buyer, 5_000_000)
	if _, err := engine.BuyResaleItem(buyer, missing); !errors.Is(err, coreerrors.ErrState) {
		t.Fatalf("unknown listing must fail with state error, got %v", err)
	}

	if _, err := engine.CancelListing(seller, listing.ID); err != nil {
		t.Fatalf("cancel listing: %v", err)
	}
	if _, err := engine.BuyResaleItem(buyer, listing.ID); !errors.Is(err, coreerrors.ErrState) {
		t.Fatalf("cancelled listing must not be purchasable, got %v", err)
	}
}

func TestCanResell(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	productID := seedProduct(st, 500)
	account := testAddr(0x22)

	ok, err := engine.CanResell(account, productID)
	if err != nil || ok {
		t.Fatalf("non-holder cannot resell, got ok=%v err=%v", ok, err)
	}

	st.holdings[holdKey{addr: account, product: productID}] = true
	ok, err = engine.CanResell(account, productID)
	if err != nil || !ok {
		t.Fatalf("holder without listing can resell, got ok=%v err=%v", ok, err)
	}

	if _, err := engine.ListForResale(account, productID, big.NewInt(1_000)); err != nil {
		t.Fatalf("list for resale: %v", err)
	}
	ok, err = engine.CanResell(account, productID)
	if err != nil || ok {
		t.Fatalf("already-listed holder cannot list again, got ok=%v err=%v", ok, err)
	}
}

func TestActiveListingsOrdering(t *testing.T) {
	engine, st, _ := newTestEngine(t)
	productID := seedProduct(st, 500)
	var other catalog.ProductID
	other[0] = 0x43
	st.products[other] = &catalog.Product{ID: other, Name: "Vinyl", Price: big.NewInt(100), Active: true, Creator: creatorAddr}

	now := int64(1_700_000_000)
	engine.SetNowFunc(func() int64 { now++; return now })

	sellerA := testAddr(0x21)
	sellerB := testAddr(0x22)
	st.holdings[holdKey{addr: sellerA, product: productID}] = true
	st.holdings[holdKey{addr: sellerB, product: other}] = true

	first, err := engine.ListForResale(sellerA, productID, big.NewInt(1_000))
	if err != nil {
		t.Fatalf("list first: %v", err)
	}
	second, err := engine.ListForResale(sellerB, other, big.NewInt(2_000))
	if err != nil {
		t.Fatalf("list second: %v", err)
	}
	if _, err := engine.CancelListing(sellerB, second.ID); err != nil {
		t.Fatalf("cancel second: %v", err)
	}

	active, err := engine.ActiveListings()
	if err != nil {
		t.Fatalf("active listings: %v", err)
	}
	if len(active) != 1 || active[0].ID != first.ID {
		t.Fatalf("only the live listing may appear, got %d entries", len(active))
	}
}
