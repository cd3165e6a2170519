package catalog

import "math/big"

// ProductID uniquely identifies a catalog product. It is derived as
// keccak256(creator || name || salt) when the product is defined.
type ProductID [32]byte

// BpsDenominator is the scaling factor for all basis-point math in the
// marketplace. 10,000 bps = 100%.
const BpsDenominator = 10_000

// RoyaltySplit routes a share of every primary sale to a recipient.
type RoyaltySplit struct {
	Recipient [20]byte `json:"recipient"`
	Bps       uint32   `json:"bps"`
}

// Product captures a sellable catalog entry together with its royalty table.
// Products are never deleted; retiring one clears the Active flag.
type Product struct {
	ID               ProductID      `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	ContentURI       string         `json:"contentUri"`
	Price            *big.Int       `json:"price"`
	TierGrant        uint8          `json:"tierGrant"`
	ResaleRoyaltyBps uint32         `json:"resaleRoyaltyBps"`
	Active           bool           `json:"active"`
	Creator          [20]byte       `json:"creator"`
	Royalties        []RoyaltySplit `json:"royalties"`
	CreatedAt        int64          `json:"createdAt"`
}

// Clone returns a deep copy of the product.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Price != nil {
		clone.Price = new(big.Int).Set(p.Price)
	}
	if len(p.Royalties) > 0 {
		clone.Royalties = append([]RoyaltySplit(nil), p.Royalties...)
	}
	return &clone
}

// Definition carries the caller-supplied fields of a new product.
type Definition struct {
	Name             string
	Description      string
	ContentURI       string
	Price            *big.Int
	TierGrant        uint8
	ResaleRoyaltyBps uint32
}
