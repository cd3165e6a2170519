package resale

import (
	"math/big"

	"fanmarket/native/catalog"
)

// PlatformFeeBps is the fixed secondary-market platform skim (2.5%).
const PlatformFeeBps = 250

// CalculateFees splits a resale price between the platform, the original
// creator, and the seller. The platform takes a fixed 250 bps, the creator
// takes the product's configured resale royalty, and the seller keeps the
// remainder including any rounding dust, so the three legs always conserve
// the price exactly. A royalty configured so high that it would push the
// seller amount negative is trimmed rather than breaking conservation.
func CalculateFees(price *big.Int, creatorRoyaltyBps uint32) FeeBreakdown {
	if price == nil {
		price = big.NewInt(0)
	}
	denominator := big.NewInt(catalog.BpsDenominator)
	platformFee := new(big.Int).Mul(price, big.NewInt(PlatformFeeBps))
	platformFee = platformFee.Div(platformFee, denominator)
	creatorRoyalty := new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(creatorRoyaltyBps)))
	creatorRoyalty = creatorRoyalty.Div(creatorRoyalty, denominator)
	sellerAmount := new(big.Int).Sub(price, platformFee)
	sellerAmount = sellerAmount.Sub(sellerAmount, creatorRoyalty)
	if sellerAmount.Sign() < 0 {
		creatorRoyalty = creatorRoyalty.Add(creatorRoyalty, sellerAmount)
		sellerAmount = big.NewInt(0)
		if creatorRoyalty.Sign() < 0 {
			platformFee = platformFee.Add(platformFee, creatorRoyalty)
			creatorRoyalty = big.NewInt(0)
		}
	}
	return FeeBreakdown{
		PlatformFee:    platformFee,
		CreatorRoyalty: creatorRoyalty,
		SellerAmount:   sellerAmount,
	}
}
