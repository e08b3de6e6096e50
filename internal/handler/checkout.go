package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/copiblocks/shop-api/internal/domain/checkout"
	"github.com/copiblocks/shop-api/internal/domain/product"
)

type checkoutRequest struct {
	ProductID     string `json:"productId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	Salt          string `json:"salt,omitempty"`
}

type checkoutResponse struct {
	Success         bool    `json:"success"`
	TransactionHash string  `json:"transactionHash"`
	OrderID         string  `json:"orderId"`
	ClaimingKey     string  `json:"claimingKey"`
	Salt            string  `json:"salt"`
	ProductID       string  `json:"productId"`
	Amount          float64 `json:"amount"`
}

// Checkout runs a full purchase attempt: claim-secret derivation, the
// approve+deposit multicall, and order persistence.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.checkout.Checkout(ctx, checkout.Request{
		ProductID:     req.ProductID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Salt:          req.Salt,
	}, nil)
	if err != nil {
		h.respondCheckoutError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, checkoutResponse{
		Success:         true,
		TransactionHash: result.TransactionHash,
		OrderID:         result.OrderID,
		ClaimingKey:     result.ClaimingKey,
		Salt:            result.Salt,
		ProductID:       result.Product.ID,
		Amount:          result.Product.Price.InexactFloat64(),
	})
}

func (h *Handler) respondCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, checkout.ErrMissingBuyerFields),
		errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, checkout.ErrNotConfigured),
		errors.Is(err, checkout.ErrWalletNotConnected):
		zctx.From(ctx).Error("checkout precondition", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	// A persist failure happens after the transaction was accepted on-chain;
	// surface the hash so the buyer can follow up with support.
	var persistErr *checkout.PersistError
	if errors.As(err, &persistErr) {
		zctx.From(ctx).Error("order save after submission",
			zap.String("tx_hash", persistErr.TransactionHash),
			zap.Error(err),
		)
		respondJSON(w, http.StatusBadGateway, map[string]any{
			"error":           "transaction submitted but order save failed",
			"transactionHash": persistErr.TransactionHash,
		})
		return
	}

	zctx.From(ctx).Error("checkout", zap.Error(err))
	respondError(w, http.StatusBadGateway, "checkout failed")
}
