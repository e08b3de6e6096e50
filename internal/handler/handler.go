// Package handler exposes the storefront JSON API: product catalog, wallet
// balance, checkout, and order persistence.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/copiblocks/shop-api/internal/domain/checkout"
	"github.com/copiblocks/shop-api/internal/domain/order"
	"github.com/copiblocks/shop-api/internal/domain/product"
	"github.com/copiblocks/shop-api/internal/starknet"
)

// Handler serves the API routes, delegating business logic to the domain
// services.
type Handler struct {
	products     product.Repository
	orderService *order.Service
	checkout     *checkout.Service
	wallet       starknet.Wallet
	tokenAddress string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	orderService *order.Service,
	checkoutService *checkout.Service,
	wallet starknet.Wallet,
	tokenAddress string,
) *Handler {
	return &Handler{
		products:     products,
		orderService: orderService,
		checkout:     checkoutService,
		wallet:       wallet,
		tokenAddress: tokenAddress,
	}
}

// Routes mounts the API endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/products", h.ListProducts)
	r.Get("/balance", h.GetBalance)
	r.Post("/checkout", h.Checkout)
	r.Post("/orders/save", h.SaveOrder)
	return r
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
