package resale

import (
	"math/big"

	"fanmarket/native/catalog"
	"fanmarket/native/market"
)

// ListingID uniquely identifies a resale listing. Listings are never reused:
// relisting a product mints a fresh id.
type ListingID [32]byte

// Listing is an offer to transfer a held product to a new owner at a fixed
// price.
type Listing struct {
	ID        ListingID         `json:"id"`
	ProductID catalog.ProductID `json:"productId"`
	Seller    [20]byte          `json:"seller"`
	Price     *big.Int          `json:"price"`
	Active    bool              `json:"active"`
	ListedAt  int64             `json:"listedAt"`
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	}
	return &clone
}

// FeeBreakdown is the three-way split applied to a resale price. The three
// amounts always sum exactly to the price; rounding dust lands on the seller.
type FeeBreakdown struct {
	PlatformFee    *big.Int `json:"platformFee"`
	CreatorRoyalty *big.Int `json:"creatorRoyalty"`
	SellerAmount   *big.Int `json:"sellerAmount"`
}

// Sale is the outcome of a settled resale trade.
type Sale struct {
	Listing  *Listing         `json:"listing"`
	Purchase *market.Purchase `json:"purchase"`
	Fees     FeeBreakdown     `json:"fees"`
}
