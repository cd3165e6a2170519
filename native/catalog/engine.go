package catalog

import (
	"math/big"
	"sort"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"fanmarket/core/events"
	nativecommon "fanmarket/native/common"
	"fanmarket/native/loyalty"
)

const moduleName = "catalog"

type engineState interface {
	CatalogProductGet(id ProductID) (*Product, bool, error)
	CatalogProductPut(product *Product) error
	CatalogProducts() ([]*Product, error)
}

// Engine owns product definitions and each product's royalty split table.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	nowFn    func() int64
	platform [20]byte
	pauses   nativecommon.PauseView
}

// NewEngine constructs a catalog engine with default dependencies.
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

// SetPlatformAccount configures the platform operator identity. The platform
// may toggle any product alongside its creator.
func (e *Engine) SetPlatformAccount(addr [20]byte) { e.platform = addr }

// SetPauses wires the administrative pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func sanitizeDefinition(def Definition) (Definition, error) {
	def.Name = strings.TrimSpace(def.Name)
	def.Description = strings.TrimSpace(def.Description)
	def.ContentURI = strings.TrimSpace(def.ContentURI)
	if def.Name == "" {
		return def, errNameRequired
	}
	if def.Price == nil || def.Price.Sign() <= 0 {
		return def, errInvalidPrice
	}
	if def.ResaleRoyaltyBps > BpsDenominator {
		return def, errRoyaltyBpsTooHigh
	}
	if def.TierGrant != 0 && !loyalty.Tier(def.TierGrant).Valid() {
		return def, errInvalidTierGrant
	}
	return def, nil
}

// DefineProduct registers a product without a royalty table; the full sale
// amount accrues to the platform remainder on settlement.
func (e *Engine) DefineProduct(creator [20]byte, def Definition) (*Product, error) {
	return e.DefineProductWithSplits(creator, def, nil)
}

// DefineProductWithSplits registers a product together with an explicit
// royalty split table.
func (e *Engine) DefineProductWithSplits(creator [20]byte, def Definition, splits []RoyaltySplit) (*Product, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	sanitized, err := sanitizeDefinition(def)
	if err != nil {
		return nil, err
	}
	if err := ValidateSplits(splits); err != nil {
		return nil, err
	}
	salt := uuid.New()
	id := ProductID(ethcrypto.Keccak256Hash(creator[:], []byte(sanitized.Name), salt[:]))
	product := &Product{
		ID:               id,
		Name:             sanitized.Name,
		Description:      sanitized.Description,
		ContentURI:       sanitized.ContentURI,
		Price:            new(big.Int).Set(sanitized.Price),
		TierGrant:        sanitized.TierGrant,
		ResaleRoyaltyBps: sanitized.ResaleRoyaltyBps,
		Active:           true,
		Creator:          creator,
		Royalties:        append([]RoyaltySplit(nil), splits...),
		CreatedAt:        e.now(),
	}
	if err := e.state.CatalogProductPut(product); err != nil {
		return nil, err
	}
	e.emit(events.ProductListed{
		OperationID: uuid.NewString(),
		ProductID:   product.ID,
		Creator:     product.Creator,
		Name:        product.Name,
		Price:       new(big.Int).Set(product.Price),
	})
	return product.Clone(), nil
}

// DefineProductWithRoyalties registers a product from parallel recipient and
// share arrays, rejecting mismatched lengths before any validation of the
// individual entries.
func (e *Engine) DefineProductWithRoyalties(creator [20]byte, def Definition, recipients [][20]byte, shares []uint32) (*Product, error) {
	if len(recipients) != len(shares) {
		return nil, errSplitsMismatched
	}
	splits := make([]RoyaltySplit, 0, len(recipients))
	for i := range recipients {
		splits = append(splits, RoyaltySplit{Recipient: recipients[i], Bps: shares[i]})
	}
	return e.DefineProductWithSplits(creator, def, splits)
}

// SetProductActive toggles the active flag. Only the product creator or the
// platform operator may flip it.
func (e *Engine) SetProductActive(caller [20]byte, id ProductID, active bool) (*Product, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	product, ok, err := e.state.CatalogProductGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || product == nil {
		return nil, errProductNotFound
	}
	if caller != product.Creator && (isZeroAddress(e.platform) || caller != e.platform) {
		return nil, errNotProductOwner
	}
	product.Active = active
	if err := e.state.CatalogProductPut(product); err != nil {
		return nil, err
	}
	return product.Clone(), nil
}

// Product returns the product with the supplied id.
func (e *Engine) Product(id ProductID) (*Product, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	product, ok, err := e.state.CatalogProductGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || product == nil {
		return nil, errProductNotFound
	}
	return product.Clone(), nil
}

// Products returns every defined product ordered by creation time, oldest
// first, with id as the tie break.
func (e *Engine) Products() ([]*Product, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	products, err := e.state.CatalogProducts()
	if err != nil {
		return nil, err
	}
	cloned := make([]*Product, 0, len(products))
	for _, product := range products {
		cloned = append(cloned, product.Clone())
	}
	sort.Slice(cloned, func(i, j int) bool {
		if cloned[i].CreatedAt != cloned[j].CreatedAt {
			return cloned[i].CreatedAt < cloned[j].CreatedAt
		}
		return string(cloned[i].ID[:]) < string(cloned[j].ID[:])
	})
	return cloned, nil
}

// ComputeSplit resolves the product's royalty table against an arbitrary
// amount. The remainder accrues to the platform account.
func (e *Engine) ComputeSplit(id ProductID, amount *big.Int) ([]SplitPayment, *big.Int, error) {
	if e == nil || e.state == nil {
		return nil, nil, errNilState
	}
	product, ok, err := e.state.CatalogProductGet(id)
	if err != nil {
		return nil, nil, err
	}
	if !ok || product == nil {
		return nil, nil, errProductNotFound
	}
	payments, remainder := SplitAmounts(product.Royalties, amount)
	return payments, remainder, nil
}
