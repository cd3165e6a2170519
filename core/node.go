// Package core wires the settlement engines, the loyalty tracker, the badge
// authority, and the ledger state into one serialized operation surface.
package core

import (
	"math/big"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	coreerrors "fanmarket/core/errors"
	"fanmarket/core/events"
	"fanmarket/core/types"
	"fanmarket/native/catalog"
	nativecommon "fanmarket/native/common"
	"fanmarket/native/loyalty"
	"fanmarket/native/market"
	"fanmarket/native/resale"
	"fanmarket/state"
)

// Config carries the node wiring knobs.
type Config struct {
	// Owner is the platform operator: it collects split remainders and
	// platform fees and controls the minter allow-list.
	Owner [20]byte
	// Emitter receives every outcome record. Nil means events are dropped.
	Emitter events.Emitter
	// Pauses optionally wires administrative module pausing.
	Pauses nativecommon.PauseView
	// NowFn overrides the time source for deterministic testing.
	NowFn func() int64
}

// Node executes marketplace operations under a strict total order: one mutex
// serializes every public call, and a state snapshot taken before each
// mutating operation is reverted on failure, so a failed call is
// indistinguishable from one never submitted.
type Node struct {
	mu      sync.Mutex
	state   *state.Manager
	emitter *operationEmitter
	catalog *catalog.Engine
	market  *market.Engine
	resale  *resale.Engine
	tracker *loyalty.Tracker
	badges  *loyalty.Authority
	owner   [20]byte
}

// operationEmitter buffers events emitted during one operation. Engines emit
// mid-operation, but outcome records must only reach the sink once the
// operation has committed; a reverted operation discards its buffer so the
// journal never sees an outcome for work that was rolled back.
type operationEmitter struct {
	sink events.Emitter
	buf  []events.Event
}

// Emit implements the events.Emitter interface.
func (e *operationEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	e.buf = append(e.buf, evt)
}

func (e *operationEmitter) flush() {
	for _, evt := range e.buf {
		e.sink.Emit(evt)
	}
	e.buf = e.buf[:0]
}

func (e *operationEmitter) discard() { e.buf = e.buf[:0] }

// moduleAccount derives the ledger identity a native module presents to the
// badge authority.
func moduleAccount(name string) [20]byte {
	hash := ethcrypto.Keccak256([]byte("fanmarket/module/" + name))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// NewNode assembles a node. The settlement engines are authorized as badge
// minters before the node accepts any operation.
func NewNode(cfg Config) (*Node, error) {
	var zero [20]byte
	if cfg.Owner == zero {
		return nil, coreerrors.Validationf("node: owner account required")
	}
	st := state.NewManager()
	sink := cfg.Emitter
	if sink == nil {
		sink = events.NoopEmitter{}
	}
	emitter := &operationEmitter{sink: sink}
	nowFn := cfg.NowFn
	if nowFn == nil {
		nowFn = func() int64 { return time.Now().Unix() }
	}

	tracker := loyalty.NewTracker()
	tracker.SetState(st)
	tracker.SetEmitter(emitter)

	badges := loyalty.NewAuthority(cfg.Owner)
	badges.SetState(st)
	badges.SetEmitter(emitter)

	catalogEngine := catalog.NewEngine()
	catalogEngine.SetState(st)
	catalogEngine.SetEmitter(emitter)
	catalogEngine.SetNowFunc(nowFn)
	catalogEngine.SetPlatformAccount(cfg.Owner)
	catalogEngine.SetPauses(cfg.Pauses)

	marketEngine := market.NewEngine()
	marketEngine.SetState(st)
	marketEngine.SetEmitter(emitter)
	marketEngine.SetNowFunc(nowFn)
	marketEngine.SetPlatformAccount(cfg.Owner)
	marketEngine.SetModuleAccount(moduleAccount("market"))
	marketEngine.SetLoyalty(tracker, badges)
	marketEngine.SetPauses(cfg.Pauses)

	resaleEngine := resale.NewEngine()
	resaleEngine.SetState(st)
	resaleEngine.SetEmitter(emitter)
	resaleEngine.SetNowFunc(nowFn)
	resaleEngine.SetPlatformAccount(cfg.Owner)
	resaleEngine.SetModuleAccount(moduleAccount("resale"))
	resaleEngine.SetLoyalty(tracker, badges)
	resaleEngine.SetPauses(cfg.Pauses)

	if err := badges.SetAuthorizedMinter(cfg.Owner, moduleAccount("market"), true); err != nil {
		return nil, err
	}
	if err := badges.SetAuthorizedMinter(cfg.Owner, moduleAccount("resale"), true); err != nil {
		return nil, err
	}
	st.Commit()
	emitter.discard()

	return &Node{
		state:   st,
		emitter: emitter,
		catalog: catalogEngine,
		market:  marketEngine,
		resale:  resaleEngine,
		tracker: tracker,
		badges:  badges,
		owner:   cfg.Owner,
	}, nil
}

// Owner returns the platform operator identity.
func (n *Node) Owner() [20]byte { return n.owner }

// do applies one operation in the global sequence. On error the ledger is
// rewound to its pre-call state and buffered events are discarded; outcome
// records reach the sink only after the commit.
func (n *Node) do(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	snapshot := n.state.Snapshot()
	if err := fn(); err != nil {
		n.state.RevertToSnapshot(snapshot)
		n.emitter.discard()
		return err
	}
	n.state.Commit()
	n.emitter.flush()
	return nil
}

// --- catalog operations ---

// DefineProduct registers a product without royalty splits.
func (n *Node) DefineProduct(creator [20]byte, def catalog.Definition) (*catalog.Product, error) {
	var product *catalog.Product
	err := n.do(func() error {
		var err error
		product, err = n.catalog.DefineProduct(creator, def)
		return err
	})
	return product, err
}

// DefineProductWithRoyalties registers a product from parallel recipient and
// share arrays.
func (n *Node) DefineProductWithRoyalties(creator [20]byte, def catalog.Definition, recipients [][20]byte, shares []uint32) (*catalog.Product, error) {
	var product *catalog.Product
	err := n.do(func() error {
		var err error
		product, err = n.catalog.DefineProductWithRoyalties(creator, def, recipients, shares)
		return err
	})
	return product, err
}

// SetProductActive toggles a product's active flag.
func (n *Node) SetProductActive(caller [20]byte, id catalog.ProductID, active bool) (*catalog.Product, error) {
	var product *catalog.Product
	err := n.do(func() error {
		var err error
		product, err = n.catalog.SetProductActive(caller, id, active)
		return err
	})
	return product, err
}

// GetProduct returns the product with the supplied id.
func (n *Node) GetProduct(id catalog.ProductID) (*catalog.Product, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.catalog.Product(id)
}

// GetAllProducts returns every defined product.
func (n *Node) GetAllProducts() ([]*catalog.Product, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.catalog.Products()
}

// --- primary settlement ---

// BuyItem settles a primary purchase.
func (n *Node) BuyItem(buyer [20]byte, productID catalog.ProductID) (*market.Purchase, error) {
	var purchase *market.Purchase
	err := n.do(func() error {
		var err error
		purchase, err = n.market.BuyItem(buyer, productID)
		return err
	})
	return purchase, err
}

// GetProductPurchaseHistory returns the append-only purchase log for a
// product.
func (n *Node) GetProductPurchaseHistory(id catalog.ProductID) ([]*market.Purchase, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.PurchaseHistory(id)
}

// --- loyalty ---

// GetAccountSpendingInfo returns the account's lifetime spend, purchase
// count, and current tier.
func (n *Node) GetAccountSpendingInfo(account [20]byte) (*loyalty.SpendingRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tracker.SpendingInfo(account)
}

// GetLoyaltyThresholds returns the fixed tier breakpoints.
func (n *Node) GetLoyaltyThresholds() loyalty.ThresholdSet {
	return loyalty.Thresholds()
}

// SetAuthorizedMinter edits the badge-minter allow-list. Owner only.
func (n *Node) SetAuthorizedMinter(caller [20]byte, minter [20]byte, allowed bool) error {
	return n.do(func() error {
		return n.badges.SetAuthorizedMinter(caller, minter, allowed)
	})
}

// MintBadge credits badges through the capability-gated authority.
func (n *Node) MintBadge(caller [20]byte, account [20]byte, tier loyalty.Tier, count uint64) (uint64, error) {
	var balance uint64
	err := n.do(func() error {
		var err error
		balance, err = n.badges.Mint(caller, account, tier, count)
		return err
	})
	return balance, err
}

// GetBadgeBalance returns the badge count held by (account, tier).
func (n *Node) GetBadgeBalance(account [20]byte, tier loyalty.Tier) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.badges.Balance(account, tier)
}

// --- resale ---

// ListForResale creates a secondary-market listing.
func (n *Node) ListForResale(seller [20]byte, productID catalog.ProductID, price *big.Int) (*resale.Listing, error) {
	var listing *resale.Listing
	err := n.do(func() error {
		var err error
		listing, err = n.resale.ListForResale(seller, productID, price)
		return err
	})
	return listing, err
}

// CancelResaleListing withdraws an active listing.
func (n *Node) CancelResaleListing(seller [20]byte, listingID resale.ListingID) (*resale.Listing, error) {
	var listing *resale.Listing
	err := n.do(func() error {
		var err error
		listing, err = n.resale.CancelListing(seller, listingID)
		return err
	})
	return listing, err
}

// GetAllActiveResaleListings returns every live listing.
func (n *Node) GetAllActiveResaleListings() ([]*resale.Listing, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resale.ActiveListings()
}

// CalculateResaleFees previews the three-way split a resale at the supplied
// price would produce.
func (n *Node) CalculateResaleFees(price *big.Int, productID catalog.ProductID) (resale.FeeBreakdown, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resale.FeesFor(price, productID)
}

// BuyResaleItem settles a secondary-market trade.
func (n *Node) BuyResaleItem(buyer [20]byte, listingID resale.ListingID) (*resale.Sale, error) {
	var sale *resale.Sale
	err := n.do(func() error {
		var err error
		sale, err = n.resale.BuyResaleItem(buyer, listingID)
		return err
	})
	return sale, err
}

// UserCanResell reports whether the account may list the product.
func (n *Node) UserCanResell(account [20]byte, productID catalog.ProductID) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resale.CanResell(account, productID)
}

// GetUserOwnedProducts returns the product ids the account currently holds.
func (n *Node) GetUserOwnedProducts(account [20]byte) ([]catalog.ProductID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resale.OwnedProducts(account)
}

// --- accounts ---

// FundAccount credits payment balance. Owner only; this is the hook the
// external payment gateway drives.
func (n *Node) FundAccount(caller [20]byte, account [20]byte, amount *big.Int) error {
	return n.do(func() error {
		if caller != n.owner {
			return coreerrors.Authorizationf("node: only the owner may fund accounts")
		}
		if amount == nil || amount.Sign() <= 0 {
			return coreerrors.Validationf("node: funding amount must be positive")
		}
		return n.state.Credit(account, amount)
	})
}

// GetAccount returns a copy of the account's ledger view.
func (n *Node) GetAccount(account [20]byte) (*types.Account, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state.GetAccount(account)
}
