package gateway

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	coreerrors "fanmarket/core/errors"
	"fanmarket/gateway/middleware"
	"fanmarket/native/catalog"
	"fanmarket/native/loyalty"
	"fanmarket/native/resale"
)

const requestBodyLimit = 1 << 20 // 1 MiB

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response failed", "err", err)
	}
}

// writeError maps the closed error taxonomy onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := "internal"
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, coreerrors.ErrValidation):
		kind, status = "validation", http.StatusBadRequest
	case errors.Is(err, coreerrors.ErrState):
		kind, status = "state", http.StatusConflict
	case errors.Is(err, coreerrors.ErrAuthorization):
		kind, status = "authorization", http.StatusForbidden
	case errors.Is(err, coreerrors.ErrPayment):
		kind, status = "payment", http.StatusPaymentRequired
	default:
		s.logger.Error("operation failed", "err", err)
	}
	s.writeJSON(w, status, errorResponse{Kind: kind, Message: err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, requestBodyLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed request body"})
		return false
	}
	return true
}

func (s *Server) caller(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Kind: "authorization", Message: "caller identity required"})
		return [20]byte{}, false
	}
	return caller, true
}

func parseHash(raw string) ([32]byte, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "0x") || len(trimmed) != 66 {
		return [32]byte{}, false
	}
	return common.HexToHash(trimmed), true
}

func (s *Server) pathHash(w http.ResponseWriter, r *http.Request, param string) ([32]byte, bool) {
	id, ok := parseHash(chi.URLParam(r, param))
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed " + param})
	}
	return id, ok
}

func (s *Server) pathAddress(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed address"})
		return [20]byte{}, false
	}
	return common.HexToAddress(raw), true
}

func parseAmount(raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || amount.Sign() < 0 {
		return nil, false
	}
	return amount, true
}

// --- catalog ---

type defineProductRequest struct {
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	ContentURI       string             `json:"contentUri"`
	Price            string             `json:"price"`
	TierGrant        uint8              `json:"tierGrant"`
	ResaleRoyaltyBps uint32             `json:"resaleRoyaltyBps"`
	Royalties        []royaltySplitView `json:"royalties"`
}

func (s *Server) handleDefineProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req defineProductRequest
	if !s.decode(w, r, &req) {
		return
	}
	price, ok := parseAmount(req.Price)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed price"})
		return
	}
	def := catalog.Definition{
		Name:             req.Name,
		Description:      req.Description,
		ContentURI:       req.ContentURI,
		Price:            price,
		TierGrant:        req.TierGrant,
		ResaleRoyaltyBps: req.ResaleRoyaltyBps,
	}
	recipients := make([][20]byte, 0, len(req.Royalties))
	shares := make([]uint32, 0, len(req.Royalties))
	for _, split := range req.Royalties {
		if !common.IsHexAddress(split.Recipient) {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed royalty recipient"})
			return
		}
		recipients = append(recipients, common.HexToAddress(split.Recipient))
		shares = append(shares, split.Bps)
	}
	product, err := s.node.DefineProductWithRoyalties(caller, def, recipients, shares)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newProductView(product))
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	products, err := s.node.GetAllProducts()
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]productView, 0, len(products))
	for _, product := range products {
		views = append(views, newProductView(product))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathHash(w, r, "id")
	if !ok {
		return
	}
	product, err := s.node.GetProduct(catalog.ProductID(id))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newProductView(product))
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleSetProductActive(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := s.pathHash(w, r, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if !s.decode(w, r, &req) {
		return
	}
	product, err := s.node.SetProductActive(caller, catalog.ProductID(id), req.Active)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newProductView(product))
}

func (s *Server) handlePurchaseHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathHash(w, r, "id")
	if !ok {
		return
	}
	purchases, err := s.node.GetProductPurchaseHistory(catalog.ProductID(id))
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]purchaseView, 0, len(purchases))
	for _, purchase := range purchases {
		views = append(views, newPurchaseView(purchase))
	}
	s.writeJSON(w, http.StatusOK, views)
}

// --- primary settlement ---

type buyItemRequest struct {
	ProductID string `json:"productId"`
}

func (s *Server) handleBuyItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req buyItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, ok := parseHash(req.ProductID)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed productId"})
		return
	}
	purchase, err := s.node.BuyItem(caller, catalog.ProductID(id))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newPurchaseView(purchase))
}

// --- loyalty ---

func (s *Server) handleThresholds(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, newThresholdsView(s.node.GetLoyaltyThresholds()))
}

func (s *Server) handleSpendingInfo(w http.ResponseWriter, r *http.Request) {
	address, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	record, err := s.node.GetAccountSpendingInfo(address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newSpendingView(record))
}

type setMinterRequest struct {
	Minter  string `json:"minter"`
	Allowed bool   `json:"allowed"`
}

func (s *Server) handleSetAuthorizedMinter(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req setMinterRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !common.IsHexAddress(req.Minter) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed minter"})
		return
	}
	if err := s.node.SetAuthorizedMinter(caller, common.HexToAddress(req.Minter), req.Allowed); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

type mintBadgeRequest struct {
	Account string `json:"account"`
	Tier    uint8  `json:"tier"`
	Count   uint64 `json:"count"`
}

func (s *Server) handleMintBadge(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req mintBadgeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !common.IsHexAddress(req.Account) {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed account"})
		return
	}
	balance, err := s.node.MintBadge(caller, common.HexToAddress(req.Account), loyalty.Tier(req.Tier), req.Count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (s *Server) handleBadgeBalance(w http.ResponseWriter, r *http.Request) {
	address, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	tierRaw, err := strconv.ParseUint(chi.URLParam(r, "tier"), 10, 8)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed tier"})
		return
	}
	balance, err := s.node.GetBadgeBalance(address, loyalty.Tier(tierRaw))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

// --- resale ---

type listForResaleRequest struct {
	ProductID string `json:"productId"`
	Price     string `json:"price"`
}

func (s *Server) handleListForResale(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req listForResaleRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, ok := parseHash(req.ProductID)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed productId"})
		return
	}
	price, ok := parseAmount(req.Price)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed price"})
		return
	}
	listing, err := s.node.ListForResale(caller, catalog.ProductID(id), price)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newListingView(listing))
}

func (s *Server) handleActiveListings(w http.ResponseWriter, _ *http.Request) {
	listings, err := s.node.GetAllActiveResaleListings()
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]listingView, 0, len(listings))
	for _, listing := range listings {
		views = append(views, newListingView(listing))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, ok := s.pathHash(w, r, "id")
	if !ok {
		return
	}
	listing, err := s.node.CancelResaleListing(caller, resale.ListingID(id))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newListingView(listing))
}

type resaleFeesRequest struct {
	ProductID string `json:"productId"`
	Price     string `json:"price"`
}

func (s *Server) handleResaleFees(w http.ResponseWriter, r *http.Request) {
	var req resaleFeesRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, ok := parseHash(req.ProductID)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed productId"})
		return
	}
	price, ok := parseAmount(req.Price)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed price"})
		return
	}
	fees, err := s.node.CalculateResaleFees(price, catalog.ProductID(id))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newFeeView(fees))
}

type buyResaleRequest struct {
	ListingID string `json:"listingId"`
}

func (s *Server) handleBuyResaleItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req buyResaleRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, ok := parseHash(req.ListingID)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed listingId"})
		return
	}
	sale, err := s.node.BuyResaleItem(caller, resale.ListingID(id))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newSaleView(sale))
}

// --- accounts ---

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	address, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	account, err := s.node.GetAccount(address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"balance": account.Normalize().Balance.String()})
}

func (s *Server) handleOwnedProducts(w http.ResponseWriter, r *http.Request) {
	address, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	ids, err := s.node.GetUserOwnedProducts(address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]string, 0, len(ids))
	for _, id := range ids {
		views = append(views, common.Hash(id).Hex())
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCanResell(w http.ResponseWriter, r *http.Request) {
	address, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	id, ok := s.pathHash(w, r, "productId")
	if !ok {
		return
	}
	canResell, err := s.node.UserCanResell(address, catalog.ProductID(id))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"canResell": canResell})
}

type fundRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleFundAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	address, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	var req fundRequest
	if !s.decode(w, r, &req) {
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "validation", Message: "malformed amount"})
		return
	}
	if err := s.node.FundAccount(caller, address, amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}
