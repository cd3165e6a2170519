package resale

import (
	"math/big"
	"testing"
)

func TestCalculateFeesConservesPrice(t *testing.T) {
	cases := []struct {
		name           string
		price          int64
		royaltyBps     uint32
		platformFee    int64
		creatorRoyalty int64
		sellerAmount   int64
	}{
		{name: "standard split", price: 2_000_000, royaltyBps: 500, platformFee: 50_000, creatorRoyalty: 100_000, sellerAmount: 1_850_000},
		{name: "no creator royalty", price: 1_000_000, royaltyBps: 0, platformFee: 25_000, creatorRoyalty: 0, sellerAmount: 975_000},
		{name: "rounding dust to seller", price: 1_001, royaltyBps: 333, platformFee: 25, creatorRoyalty: 33, sellerAmount: 943},
		{name: "tiny price rounds fees to zero", price: 3, royaltyBps: 500, platformFee: 0, creatorRoyalty: 0, sellerAmount: 3},
		{name: "royalty trimmed to fit", price: 1_000, royaltyBps: 10_000, platformFee: 25, creatorRoyalty: 975, sellerAmount: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fees := CalculateFees(big.NewInt(tc.price), tc.royaltyBps)
			if fees.PlatformFee.Int64() != tc.platformFee {
				t.Fatalf("platform fee = %s, want %d", fees.PlatformFee, tc.platformFee)
			}
			if fees.CreatorRoyalty.Int64() != tc.creatorRoyalty {
				t.Fatalf("creator royalty = %s, want %d", fees.CreatorRoyalty, tc.creatorRoyalty)
			}
			if fees.SellerAmount.Int64() != tc.sellerAmount {
				t.Fatalf("seller amount = %s, want %d", fees.SellerAmount, tc.sellerAmount)
			}
			sum := new(big.Int).Add(fees.PlatformFee, fees.CreatorRoyalty)
			sum.Add(sum, fees.SellerAmount)
			if sum.Int64() != tc.price {
				t.Fatalf("fee legs sum to %s, want %d", sum, tc.price)
			}
		})
	}
}

func TestCalculateFeesNilPrice(t *testing.T) {
	fees := CalculateFees(nil, 500)
	if fees.PlatformFee.Sign() != 0 || fees.CreatorRoyalty.Sign() != 0 || fees.SellerAmount.Sign() != 0 {
		t.Fatalf("nil price must produce all-zero fees, got %+v", fees)
	}
}
