package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"fanmarket/core/types"
)

const (
	// TypeProductListed is emitted when a creator registers a new product in
	// the royalty registry.
	TypeProductListed = "catalog.product.listed"
	// TypeItemPurchased is emitted when a primary purchase settles.
	TypeItemPurchased = "market.item.purchased"
	// TypeResaleListed is emitted when a holder lists an item on the
	// secondary market.
	TypeResaleListed = "resale.listing.created"
	// TypeResaleCancelled is emitted when a lister withdraws an active
	// listing.
	TypeResaleCancelled = "resale.listing.cancelled"
	// TypeResaleSold is emitted when a resale trade settles.
	TypeResaleSold = "resale.sold"
	// TypeTierAdvanced is emitted when an account's cumulative spend crosses
	// a loyalty threshold.
	TypeTierAdvanced = "loyalty.tier.advanced"
	// TypeBadgeMinted is emitted when the badge authority credits a tier
	// badge.
	TypeBadgeMinted = "loyalty.badge.minted"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func hexID(id [32]byte) string {
	return common.Hash(id).Hex()
}

func hexAddr(addr [20]byte) string {
	return common.Address(addr).Hex()
}

// ProductListed captures the registration of a new product.
type ProductListed struct {
	OperationID string
	ProductID   [32]byte
	Creator     [20]byte
	Name        string
	Price       *big.Int
}

// EventType implements the Event interface.
func (ProductListed) EventType() string { return TypeProductListed }

// Event converts the listing announcement to the generic event payload.
func (e ProductListed) Event() *types.Event {
	return &types.Event{
		Type: TypeProductListed,
		Attributes: map[string]string{
			"operationId": e.OperationID,
			"productId":   hexID(e.ProductID),
			"creator":     hexAddr(e.Creator),
			"name":        e.Name,
			"price":       amountString(e.Price),
		},
	}
}

// ItemPurchased captures a settled primary purchase.
type ItemPurchased struct {
	OperationID string
	PurchaseID  [32]byte
	ProductID   [32]byte
	Buyer       [20]byte
	Price       *big.Int
	// TierGranted is zero when the purchase crossed no loyalty threshold.
	TierGranted uint8
}

// EventType implements the Event interface.
func (ItemPurchased) EventType() string { return TypeItemPurchased }

// Event converts the purchase outcome to the generic event payload.
func (e ItemPurchased) Event() *types.Event {
	attrs := map[string]string{
		"operationId": e.OperationID,
		"purchaseId":  hexID(e.PurchaseID),
		"productId":   hexID(e.ProductID),
		"buyer":       hexAddr(e.Buyer),
		"price":       amountString(e.Price),
	}
	if e.TierGranted > 0 {
		attrs["tierGranted"] = strconv.FormatUint(uint64(e.TierGranted), 10)
	}
	return &types.Event{Type: TypeItemPurchased, Attributes: attrs}
}

// ResaleListed captures a new secondary-market listing.
type ResaleListed struct {
	OperationID string
	ListingID   [32]byte
	ProductID   [32]byte
	Seller      [20]byte
	Price       *big.Int
}

// EventType implements the Event interface.
func (ResaleListed) EventType() string { return TypeResaleListed }

// Event converts the listing outcome to the generic event payload.
func (e ResaleListed) Event() *types.Event {
	return &types.Event{
		Type: TypeResaleListed,
		Attributes: map[string]string{
			"operationId": e.OperationID,
			"listingId":   hexID(e.ListingID),
			"productId":   hexID(e.ProductID),
			"seller":      hexAddr(e.Seller),
			"price":       amountString(e.Price),
		},
	}
}

// ResaleCancelled captures the withdrawal of an active listing.
type ResaleCancelled struct {
	OperationID string
	ListingID   [32]byte
	ProductID   [32]byte
	Seller      [20]byte
}

// EventType implements the Event interface.
func (ResaleCancelled) EventType() string { return TypeResaleCancelled }

// Event converts the cancellation to the generic event payload.
func (e ResaleCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypeResaleCancelled,
		Attributes: map[string]string{
			"operationId": e.OperationID,
			"listingId":   hexID(e.ListingID),
			"productId":   hexID(e.ProductID),
			"seller":      hexAddr(e.Seller),
		},
	}
}

// ResaleSold captures a settled secondary-market trade, including the
// three-way fee split applied to the price.
type ResaleSold struct {
	OperationID    string
	ListingID      [32]byte
	ProductID      [32]byte
	Buyer          [20]byte
	Seller         [20]byte
	Price          *big.Int
	PlatformFee    *big.Int
	CreatorRoyalty *big.Int
	SellerAmount   *big.Int
}

// EventType implements the Event interface.
func (ResaleSold) EventType() string { return TypeResaleSold }

// Event converts the trade outcome to the generic event payload.
func (e ResaleSold) Event() *types.Event {
	return &types.Event{
		Type: TypeResaleSold,
		Attributes: map[string]string{
			"operationId":    e.OperationID,
			"listingId":      hexID(e.ListingID),
			"productId":      hexID(e.ProductID),
			"buyer":          hexAddr(e.Buyer),
			"seller":         hexAddr(e.Seller),
			"price":          amountString(e.Price),
			"platformFee":    amountString(e.PlatformFee),
			"creatorRoyalty": amountString(e.CreatorRoyalty),
			"sellerAmount":   amountString(e.SellerAmount),
		},
	}
}

// TierAdvanced captures a loyalty promotion.
type TierAdvanced struct {
	OperationID string
	Account     [20]byte
	FromTier    uint8
	ToTier      uint8
	TotalSpent  *big.Int
}

// EventType implements the Event interface.
func (TierAdvanced) EventType() string { return TypeTierAdvanced }

// Event converts the promotion to the generic event payload.
func (e TierAdvanced) Event() *types.Event {
	return &types.Event{
		Type: TypeTierAdvanced,
		Attributes: map[string]string{
			"operationId": e.OperationID,
			"account":     hexAddr(e.Account),
			"fromTier":    strconv.FormatUint(uint64(e.FromTier), 10),
			"toTier":      strconv.FormatUint(uint64(e.ToTier), 10),
			"totalSpent":  amountString(e.TotalSpent),
		},
	}
}

// BadgeMinted captures a badge credit issued by the badge authority.
type BadgeMinted struct {
	OperationID string
	Account     [20]byte
	Tier        uint8
	Count       uint64
	Balance     uint64
}

// EventType implements the Event interface.
func (BadgeMinted) EventType() string { return TypeBadgeMinted }

// Event converts the mint to the generic event payload.
func (e BadgeMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeBadgeMinted,
		Attributes: map[string]string{
			"operationId": e.OperationID,
			"account":     hexAddr(e.Account),
			"tier":        strconv.FormatUint(uint64(e.Tier), 10),
			"count":       strconv.FormatUint(e.Count, 10),
			"balance":     strconv.FormatUint(e.Balance, 10),
		},
	}
}
