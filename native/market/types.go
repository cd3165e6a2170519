package market

import (
	"math/big"

	"fanmarket/native/catalog"
	"fanmarket/native/loyalty"
)

// PurchaseOrigin distinguishes primary sales from secondary-market trades.
type PurchaseOrigin string

const (
	OriginPrimary PurchaseOrigin = "primary"
	OriginResale  PurchaseOrigin = "resale"
)

// Purchase is the immutable outcome record appended for every settled sale.
// History is append-only and keyed by product.
type Purchase struct {
	ID          [32]byte          `json:"id"`
	OperationID string            `json:"operationId"`
	Buyer       [20]byte          `json:"buyer"`
	ProductID   catalog.ProductID `json:"productId"`
	Price       *big.Int          `json:"price"`
	Origin      PurchaseOrigin    `json:"origin"`
	Timestamp   int64             `json:"timestamp"`
	TierGranted loyalty.Tier      `json:"tierGranted,omitempty"`
}

// Clone returns a deep copy of the purchase record.
func (p *Purchase) Clone() *Purchase {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Price != nil {
		clone.Price = new(big.Int).Set(p.Price)
	}
	return &clone
}
