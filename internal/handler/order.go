package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/copiblocks/shop-api/internal/domain/order"
)

type saveOrderRequest struct {
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	WalletAddress string `json:"walletAddress"`
	Product       *struct {
		ID      string          `json:"id"`
		Name    string          `json:"name"`
		Roaster string          `json:"roaster"`
		Price   decimal.Decimal `json:"price"`
	} `json:"product"`
	Amount          decimal.Decimal `json:"amount"`
	Salt            string          `json:"salt"`
	ClaimingKey     string          `json:"claimingKey"`
	TransactionHash string          `json:"transactionHash"`
	Timestamp       string          `json:"timestamp"`
}

// SaveOrder persists a completed purchase. The server assigns the creation
// time and the initial "pending" status; client-supplied values for either are
// ignored. Missing required fields yield 400 with nothing written, storage
// failures yield 500.
func (h *Handler) SaveOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req saveOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	o := order.Order{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		WalletAddress:   req.WalletAddress,
		Amount:          req.Amount,
		Salt:            req.Salt,
		ClaimingKey:     req.ClaimingKey,
		TransactionHash: req.TransactionHash,
		Timestamp:       req.Timestamp,
	}
	if req.Product != nil {
		o.Product = order.Snapshot{
			ID:      req.Product.ID,
			Name:    req.Product.Name,
			Roaster: req.Product.Roaster,
			Price:   req.Product.Price,
		}
	}

	id, err := h.orderService.Save(ctx, o)
	if err != nil {
		h.respondSaveError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orderId": id,
	})
}

func (h *Handler) respondSaveError(w http.ResponseWriter, r *http.Request, err error) {
	var missingErr *order.MissingFieldError
	if errors.As(err, &missingErr) {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if errors.Is(err, order.ErrDuplicate) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	zctx.From(r.Context()).Error("save order", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "Failed to save order")
}
