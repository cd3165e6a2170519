package resale

import (
	"math/big"
	"sort"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"fanmarket/core/events"
	"fanmarket/core/types"
	"fanmarket/native/catalog"
	nativecommon "fanmarket/native/common"
	"fanmarket/native/loyalty"
	"fanmarket/native/market"
)

const moduleName = "resale"

type engineState interface {
	CatalogProductGet(id catalog.ProductID) (*catalog.Product, bool, error)
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	ListingGet(id ListingID) (*Listing, bool, error)
	ListingPut(listing *Listing) error
	Listings() ([]*Listing, error)
	ActiveListingBySellerProduct(seller [20]byte, id catalog.ProductID) (*Listing, bool, error)
	HoldingGet(addr [20]byte, id catalog.ProductID) (bool, error)
	HoldingSet(addr [20]byte, id catalog.ProductID, held bool) error
	HoldingsByAccount(addr [20]byte) ([]catalog.ProductID, error)
	PurchaseAppend(purchase *market.Purchase) error
}

// Engine operates the secondary market: it registers listings against held
// products and settles trades with a three-way fee split, moving the holding
// from seller to buyer. Resale purchases accrue loyalty exactly like primary
// ones via the shared tracker.
type Engine struct {
	state      engineState
	emitter    events.Emitter
	nowFn      func() int64
	platform   [20]byte
	moduleAddr [20]byte
	tracker    *loyalty.Tracker
	badges     *loyalty.Authority
	pauses     nativecommon.PauseView
}

// NewEngine constructs a resale settlement engine.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPlatformAccount configures where the platform fee accrues.
func (e *Engine) SetPlatformAccount(addr [20]byte) { e.platform = addr }

// SetModuleAccount configures the identity the engine presents to the badge
// authority.
func (e *Engine) SetModuleAccount(addr [20]byte) { e.moduleAddr = addr }

// SetLoyalty wires the shared tier tracker and badge authority.
func (e *Engine) SetLoyalty(tracker *loyalty.Tracker, badges *loyalty.Authority) {
	e.tracker = tracker
	e.badges = badges
}

// SetPauses wires the administrative pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	account = account.Normalize()
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return e.state.PutAccount(addr, account)
}

// ListForResale registers a listing for a product the seller currently holds.
// A seller may not keep two active listings for the same product.
func (e *Engine) ListForResale(seller [20]byte, productID catalog.ProductID, price *big.Int) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if price == nil || price.Sign() <= 0 {
		return nil, errInvalidPrice
	}
	if _, ok, err := e.state.CatalogProductGet(productID); err != nil {
		return nil, err
	} else if !ok {
		return nil, errProductNotFound
	}
	held, err := e.state.HoldingGet(seller, productID)
	if err != nil {
		return nil, err
	}
	if !held {
		return nil, errNotHolder
	}
	if _, exists, err := e.state.ActiveListingBySellerProduct(seller, productID); err != nil {
		return nil, err
	} else if exists {
		return nil, errAlreadyListed
	}
	salt := uuid.New()
	listing := &Listing{
		ID:        ListingID(ethcrypto.Keccak256Hash(seller[:], productID[:], salt[:])),
		ProductID: productID,
		Seller:    seller,
		Price:     new(big.Int).Set(price),
		Active:    true,
		ListedAt:  e.now(),
	}
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.ResaleListed{
		OperationID: uuid.NewString(),
		ListingID:   listing.ID,
		ProductID:   productID,
		Seller:      seller,
		Price:       new(big.Int).Set(price),
	})
	return listing.Clone(), nil
}

// CancelListing deactivates an active listing. Only the lister may cancel;
// the holding stays with the seller.
func (e *Engine) CancelListing(seller [20]byte, listingID ListingID) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	listing, ok, err := e.state.ListingGet(listingID)
	if err != nil {
		return nil, err
	}
	if !ok || listing == nil || !listing.Active {
		return nil, errListingNotFound
	}
	if listing.Seller != seller {
		return nil, errNotLister
	}
	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.ResaleCancelled{
		OperationID: uuid.NewString(),
		ListingID:   listing.ID,
		ProductID:   listing.ProductID,
		Seller:      seller,
	})
	return listing.Clone(), nil
}

// FeesFor resolves the fee breakdown a resale at the supplied price would
// produce for the product.
func (e *Engine) FeesFor(price *big.Int, productID catalog.ProductID) (FeeBreakdown, error) {
	if e == nil || e.state == nil {
		return FeeBreakdown{}, errNilState
	}
	product, ok, err := e.state.CatalogProductGet(productID)
	if err != nil {
		return FeeBreakdown{}, err
	}
	if !ok || product == nil {
		return FeeBreakdown{}, errProductNotFound
	}
	return CalculateFees(price, product.ResaleRoyaltyBps), nil
}

// BuyResaleItem settles a secondary-market trade: the buyer pays the listing
// price, the three fee legs are credited, the holding moves to the buyer, and
// the listing is retired. A failed call leaves no trace; the node facade
// reverts partial writes via the state snapshot.
func (e *Engine) BuyResaleItem(buyer [20]byte, listingID ListingID) (*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.tracker == nil {
		return nil, errNilTracker
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	listing, ok, err := e.state.ListingGet(listingID)
	if err != nil {
		return nil, err
	}
	if !ok || listing == nil || !listing.Active {
		return nil, errListingNotFound
	}
	product, ok, err := e.state.CatalogProductGet(listing.ProductID)
	if err != nil {
		return nil, err
	}
	if !ok || product == nil {
		return nil, errProductNotFound
	}
	price := listing.Price
	buyerAccount, err := e.state.GetAccount(buyer)
	if err != nil {
		return nil, err
	}
	buyerAccount = buyerAccount.Normalize()
	if buyerAccount.Balance.Cmp(price) < 0 {
		return nil, errInsufficientFunds
	}
	buyerAccount.Balance = new(big.Int).Sub(buyerAccount.Balance, price)
	if err := e.state.PutAccount(buyer, buyerAccount); err != nil {
		return nil, err
	}
	fees := CalculateFees(price, product.ResaleRoyaltyBps)
	if err := e.credit(e.platform, fees.PlatformFee); err != nil {
		return nil, err
	}
	if err := e.credit(product.Creator, fees.CreatorRoyalty); err != nil {
		return nil, err
	}
	if err := e.credit(listing.Seller, fees.SellerAmount); err != nil {
		return nil, err
	}
	if err := e.state.HoldingSet(listing.Seller, listing.ProductID, false); err != nil {
		return nil, err
	}
	if err := e.state.HoldingSet(buyer, listing.ProductID, true); err != nil {
		return nil, err
	}
	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}

	_, promotion, err := e.tracker.RecordSpend(buyer, price)
	if err != nil {
		return nil, err
	}
	salt := uuid.New()
	purchase := &market.Purchase{
		ID:          [32]byte(ethcrypto.Keccak256Hash(buyer[:], listing.ProductID[:], salt[:])),
		OperationID: uuid.NewString(),
		Buyer:       buyer,
		ProductID:   listing.ProductID,
		Price:       new(big.Int).Set(price),
		Origin:      market.OriginResale,
		Timestamp:   e.now(),
	}
	if promotion != nil {
		purchase.TierGranted = promotion.To
	}
	if err := e.state.PurchaseAppend(purchase); err != nil {
		return nil, err
	}
	if promotion != nil && e.badges != nil {
		if _, err := e.badges.Mint(e.moduleAddr, buyer, promotion.To, 1); err != nil {
			return nil, err
		}
	}

	e.emitter.Emit(events.ResaleSold{
		OperationID:    purchase.OperationID,
		ListingID:      listing.ID,
		ProductID:      listing.ProductID,
		Buyer:          buyer,
		Seller:         listing.Seller,
		Price:          new(big.Int).Set(price),
		PlatformFee:    new(big.Int).Set(fees.PlatformFee),
		CreatorRoyalty: new(big.Int).Set(fees.CreatorRoyalty),
		SellerAmount:   new(big.Int).Set(fees.SellerAmount),
	})
	return &Sale{Listing: listing.Clone(), Purchase: purchase.Clone(), Fees: fees}, nil
}

// CanResell reports whether the account holds the product and has no active
// listing for it.
func (e *Engine) CanResell(account [20]byte, productID catalog.ProductID) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	held, err := e.state.HoldingGet(account, productID)
	if err != nil {
		return false, err
	}
	if !held {
		return false, nil
	}
	_, listed, err := e.state.ActiveListingBySellerProduct(account, productID)
	if err != nil {
		return false, err
	}
	return !listed, nil
}

// OwnedProducts returns the product ids the account currently holds.
func (e *Engine) OwnedProducts(account [20]byte) ([]catalog.ProductID, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.HoldingsByAccount(account)
}

// ActiveListings returns every live listing ordered by listing time, oldest
// first, with id as the tie break.
func (e *Engine) ActiveListings() ([]*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	listings, err := e.state.Listings()
	if err != nil {
		return nil, err
	}
	active := make([]*Listing, 0, len(listings))
	for _, listing := range listings {
		if listing != nil && listing.Active {
			active = append(active, listing.Clone())
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].ListedAt != active[j].ListedAt {
			return active[i].ListedAt < active[j].ListedAt
		}
		return string(active[i].ID[:]) < string(active[j].ID[:])
	})
	return active, nil
}
