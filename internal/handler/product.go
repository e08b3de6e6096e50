package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type productResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Roaster     string  `json:"roaster"`
	Price       float64 `json:"price"`
	WeightGrams int     `json:"weightGrams"`
}

// ListProducts returns the coffee catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.products.List(ctx)
	if err != nil {
		zctx.From(ctx).Error("list products", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load products")
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{
			ID:          p.ID,
			Name:        p.Name,
			Roaster:     p.Roaster,
			Price:       p.Price.InexactFloat64(),
			WeightGrams: p.WeightGrams,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
