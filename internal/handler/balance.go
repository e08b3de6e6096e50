package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type balanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Token   string `json:"token"`
}

// GetBalance reports the wallet's token balance. A token address may be
// supplied via the query string; the configured payment token is the default.
// Balance lookups are best-effort: on failure the balance reads zero rather
// than the endpoint erroring, matching the storefront's display behavior.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	if token == "" {
		token = h.tokenAddress
	}

	address, err := h.wallet.Address(ctx)
	if err != nil {
		zctx.From(ctx).Error("wallet address", zap.Error(err))
		respondError(w, http.StatusBadGateway, "wallet is not connected")
		return
	}

	balance := "0"
	if b, err := h.wallet.BalanceOf(ctx, token); err != nil {
		zctx.From(ctx).Warn("balance query failed", zap.Error(err))
	} else {
		balance = b.String()
	}

	respondJSON(w, http.StatusOK, balanceResponse{
		Address: address,
		Balance: balance,
		Token:   token,
	})
}
