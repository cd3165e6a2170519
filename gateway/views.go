package gateway

import (
	"github.com/ethereum/go-ethereum/common"

	"fanmarket/native/catalog"
	"fanmarket/native/loyalty"
	"fanmarket/native/market"
	"fanmarket/native/resale"
)

// JSON views rendered by the gateway. Ledger types carry raw byte arrays;
// the wire format uses 0x-prefixed hex for ids and addresses and decimal
// strings for amounts.

type royaltySplitView struct {
	Recipient string `json:"recipient"`
	Bps       uint32 `json:"bps"`
}

type productView struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	ContentURI       string             `json:"contentUri"`
	Price            string             `json:"price"`
	TierGrant        uint8              `json:"tierGrant"`
	ResaleRoyaltyBps uint32             `json:"resaleRoyaltyBps"`
	Active           bool               `json:"active"`
	Creator          string             `json:"creator"`
	Royalties        []royaltySplitView `json:"royalties"`
	CreatedAt        int64              `json:"createdAt"`
}

func newProductView(p *catalog.Product) productView {
	view := productView{
		ID:               common.Hash(p.ID).Hex(),
		Name:             p.Name,
		Description:      p.Description,
		ContentURI:       p.ContentURI,
		Price:            p.Price.String(),
		TierGrant:        p.TierGrant,
		ResaleRoyaltyBps: p.ResaleRoyaltyBps,
		Active:           p.Active,
		Creator:          common.Address(p.Creator).Hex(),
		CreatedAt:        p.CreatedAt,
	}
	for _, split := range p.Royalties {
		view.Royalties = append(view.Royalties, royaltySplitView{
			Recipient: common.Address(split.Recipient).Hex(),
			Bps:       split.Bps,
		})
	}
	return view
}

type purchaseView struct {
	ID          string `json:"id"`
	OperationID string `json:"operationId"`
	Buyer       string `json:"buyer"`
	ProductID   string `json:"productId"`
	Price       string `json:"price"`
	Origin      string `json:"origin"`
	Timestamp   int64  `json:"timestamp"`
	TierGranted uint8  `json:"tierGranted,omitempty"`
}

func newPurchaseView(p *market.Purchase) purchaseView {
	return purchaseView{
		ID:          common.Hash(p.ID).Hex(),
		OperationID: p.OperationID,
		Buyer:       common.Address(p.Buyer).Hex(),
		ProductID:   common.Hash(p.ProductID).Hex(),
		Price:       p.Price.String(),
		Origin:      string(p.Origin),
		Timestamp:   p.Timestamp,
		TierGranted: uint8(p.TierGranted),
	}
}

type spendingView struct {
	TotalSpent    string `json:"totalSpent"`
	PurchaseCount uint64 `json:"purchaseCount"`
	CurrentTier   uint8  `json:"currentTier"`
	TierName      string `json:"tierName"`
}

func newSpendingView(r *loyalty.SpendingRecord) spendingView {
	return spendingView{
		TotalSpent:    r.TotalSpent.String(),
		PurchaseCount: r.PurchaseCount,
		CurrentTier:   uint8(r.Tier),
		TierName:      r.Tier.String(),
	}
}

type thresholdsView struct {
	Bronze  string `json:"bronze"`
	Silver  string `json:"silver"`
	Gold    string `json:"gold"`
	Diamond string `json:"diamond"`
}

func newThresholdsView(t loyalty.ThresholdSet) thresholdsView {
	return thresholdsView{
		Bronze:  t.Bronze.String(),
		Silver:  t.Silver.String(),
		Gold:    t.Gold.String(),
		Diamond: t.Diamond.String(),
	}
}

type listingView struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Seller    string `json:"seller"`
	Price     string `json:"price"`
	Active    bool   `json:"active"`
	ListedAt  int64  `json:"listedAt"`
}

func newListingView(l *resale.Listing) listingView {
	return listingView{
		ID:        common.Hash(l.ID).Hex(),
		ProductID: common.Hash(l.ProductID).Hex(),
		Seller:    common.Address(l.Seller).Hex(),
		Price:     l.Price.String(),
		Active:    l.Active,
		ListedAt:  l.ListedAt,
	}
}

type feeView struct {
	PlatformFee    string `json:"platformFee"`
	CreatorRoyalty string `json:"creatorRoyalty"`
	SellerAmount   string `json:"sellerAmount"`
}

func newFeeView(f resale.FeeBreakdown) feeView {
	return feeView{
		PlatformFee:    f.PlatformFee.String(),
		CreatorRoyalty: f.CreatorRoyalty.String(),
		SellerAmount:   f.SellerAmount.String(),
	}
}

type saleView struct {
	Listing  listingView  `json:"listing"`
	Purchase purchaseView `json:"purchase"`
	Fees     feeView      `json:"fees"`
}

func newSaleView(s *resale.Sale) saleView {
	return saleView{
		Listing:  newListingView(s.Listing),
		Purchase: newPurchaseView(s.Purchase),
		Fees:     newFeeView(s.Fees),
	}
}
