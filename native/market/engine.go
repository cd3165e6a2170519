package market

import (
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"fanmarket/core/events"
	"fanmarket/core/types"
	"fanmarket/native/catalog"
	nativecommon "fanmarket/native/common"
	"fanmarket/native/loyalty"
)

const moduleName = "market"

type engineState interface {
	CatalogProductGet(id catalog.ProductID) (*catalog.Product, bool, error)
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	PurchaseAppend(purchase *Purchase) error
	PurchasesByProduct(id catalog.ProductID) ([]*Purchase, error)
	HoldingSet(addr [20]byte, id catalog.ProductID, held bool) error
}

// Engine executes primary purchases: it pulls the price from the buyer,
// splits it across the product's royalty recipients with the platform taking
// the remainder, records the purchase, and drives the shared loyalty tracker.
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

// NewEngine constructs a primary settlement engine.
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

// SetPlatformAccount configures where split remainders accrue.
func (e *Engine) SetPlatformAccount(addr [20]byte) { e.platform = addr }

// SetModuleAccount configures the identity the engine presents to the badge
// authority. It must be on the authority's allow-list for settlements that
// cross a tier threshold to succeed.
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

func credit(st engineState, addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	account, err := st.GetAccount(addr)
	if err != nil {
		return err
	}
	account = account.Normalize()
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return st.PutAccount(addr, account)
}

// BuyItem settles a primary purchase for the buyer. The caller must treat a
// returned error as a complete no-op; the node facade reverts any partial
// writes via the state snapshot.
func (e *Engine) BuyItem(buyer [20]byte, productID catalog.ProductID) (*Purchase, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.tracker == nil {
		return nil, errNilTracker
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	product, ok, err := e.state.CatalogProductGet(productID)
	if err != nil {
		return nil, err
	}
	if !ok || product == nil {
		return nil, errProductNotFound
	}
	if !product.Active {
		return nil, errProductInactive
	}
	price := product.Price
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
	payments, remainder := catalog.SplitAmounts(product.Royalties, price)
	for _, payment := range payments {
		if err := credit(e.state, payment.Recipient, payment.Amount); err != nil {
			return nil, err
		}
	}
	if err := credit(e.state, e.platform, remainder); err != nil {
		return nil, err
	}
	if err := e.state.HoldingSet(buyer, productID, true); err != nil {
		return nil, err
	}

	_, promotion, err := e.tracker.RecordSpend(buyer, price)
	if err != nil {
		return nil, err
	}

	salt := uuid.New()
	purchase := &Purchase{
		ID:          [32]byte(ethcrypto.Keccak256Hash(buyer[:], productID[:], salt[:])),
		OperationID: uuid.NewString(),
		Buyer:       buyer,
		ProductID:   productID,
		Price:       new(big.Int).Set(price),
		Origin:      OriginPrimary,
		Timestamp:   e.now(),
	}
	if promotion != nil {
		purchase.TierGranted = promotion.To
	}
	if err := e.state.PurchaseAppend(purchase); err != nil {
		return nil, err
	}

	// Badge issuance is the one external-facing call, so it runs after every
	// ledger mutation has landed.
	if promotion != nil && e.badges != nil {
		if _, err := e.badges.Mint(e.moduleAddr, buyer, promotion.To, 1); err != nil {
			return nil, err
		}
	}

	evt := events.ItemPurchased{
		OperationID: purchase.OperationID,
		PurchaseID:  purchase.ID,
		ProductID:   productID,
		Buyer:       buyer,
		Price:       new(big.Int).Set(price),
	}
	if promotion != nil {
		evt.TierGranted = uint8(promotion.To)
	}
	e.emitter.Emit(evt)
	return purchase.Clone(), nil
}

// PurchaseHistory returns the append-only purchase log for a product, oldest
// first.
func (e *Engine) PurchaseHistory(productID catalog.ProductID) ([]*Purchase, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	purchases, err := e.state.PurchasesByProduct(productID)
	if err != nil {
		return nil, err
	}
	cloned := make([]*Purchase, 0, len(purchases))
	for _, purchase := range purchases {
		cloned = append(cloned, purchase.Clone())
	}
	return cloned, nil
}
