package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copiblocks/shop-api/internal/domain/checkout"
	"github.com/copiblocks/shop-api/internal/domain/order"
	"github.com/copiblocks/shop-api/internal/domain/product"
	"github.com/copiblocks/shop-api/internal/starknet"
)

// memRepo is an in-memory order.Repository.
type memRepo struct {
	mu     sync.Mutex
	orders []*order.Order
	err    error
}

func (r *memRepo) Create(_ context.Context, o *order.Order) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	cp := *o
	cp.ID = "order-" + strconv.Itoa(len(r.orders)+1)
	r.orders = append(r.orders, &cp)
	return cp.ID, nil
}

func (r *memRepo) ExistsByTransactionHash(_ context.Context, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.TransactionHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type stubWallet struct {
	address    string
	balance    decimal.Decimal
	balanceErr error
	txHash     string
	execErr    error
}

func (w *stubWallet) Address(context.Context) (string, error) { return w.address, nil }

func (w *stubWallet) BalanceOf(context.Context, string) (decimal.Decimal, error) {
	if w.balanceErr != nil {
		return decimal.Zero, w.balanceErr
	}
	return w.balance, nil
}

func (w *stubWallet) Execute(context.Context, []starknet.Call) (string, error) {
	if w.execErr != nil {
		return "", w.execErr
	}
	return w.txHash, nil
}

func newTestHandler(t *testing.T, repo *memRepo, wallet *stubWallet) *Handler {
	t.Helper()

	catalog := product.NewCatalog(product.DefaultProducts())
	orderService := order.NewService(repo)
	checkoutService := checkout.NewService(checkout.Config{
		ChamberAddress: "0xchamber",
		TokenAddress:   "0xtoken",
		TokenDecimals:  6,
	}, catalog, wallet, orderService, zap.NewNop())

	return NewHandler(catalog, orderService, checkoutService, wallet, "0xtoken")
}

func serve(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListProducts(t *testing.T) {
	h := newTestHandler(t, &memRepo{}, &stubWallet{address: "0xabc"})

	rec := serve(h, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var products []productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "1", products[0].ID)
	assert.Equal(t, 0.75, products[0].Price)
	assert.Equal(t, 250, products[0].WeightGrams)
}

func TestGetBalance(t *testing.T) {
	wallet := &stubWallet{address: "0xabc", balance: decimal.RequireFromString("12.5")}
	h := newTestHandler(t, &memRepo{}, wallet)

	rec := serve(h, http.MethodGet, "/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "0xabc", body["address"])
	assert.Equal(t, "12.5", body["balance"])
	assert.Equal(t, "0xtoken", body["token"])
}

func TestGetBalance_QueryFailureReadsZero(t *testing.T) {
	wallet := &stubWallet{address: "0xabc", balanceErr: errors.New("rpc timeout")}
	h := newTestHandler(t, &memRepo{}, wallet)

	rec := serve(h, http.MethodGet, "/balance", "")
	require.Equal(t, http.StatusOK, rec.Code, "a failed lookup must not error the endpoint")

	body := decode(t, rec)
	assert.Equal(t, "0", body["balance"])
	assert.Equal(t, "0xabc", body["address"])
}

func TestSaveOrder_Success(t *testing.T) {
	repo := &memRepo{}
	h := newTestHandler(t, repo, &stubWallet{address: "0xabc"})

	rec := serve(h, http.MethodPost, "/orders/save", `{
		"customerName": "Ada",
		"customerEmail": "ada@example.com",
		"walletAddress": "0xabc",
		"product": {"id": "1", "name": "Tio Hugo", "roaster": "Copiblocks", "price": "0.75"},
		"amount": "0.75",
		"transactionHash": "0xdeadbeef",
		"timestamp": "2026-08-29T10:00:00Z"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "order-1", body["orderId"])
	require.Equal(t, 1, repo.count())

	saved := repo.orders[0]
	assert.Equal(t, order.StatusPending, saved.Status)
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestSaveOrder_EveryCallCreatesARecord(t *testing.T) {
	repo := &memRepo{}
	h := newTestHandler(t, repo, &stubWallet{address: "0xabc"})

	payload := `{
		"customerName": "Ada",
		"customerEmail": "ada@example.com",
		"walletAddress": "0xabc",
		"product": {"id": "1", "name": "Tio Hugo", "roaster": "Copiblocks", "price": "0.75"},
		"transactionHash": "0xdeadbeef"
	}`
	for range 2 {
		rec := serve(h, http.MethodPost, "/orders/save", payload)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2, repo.count())
}

func TestSaveOrder_MissingFields(t *testing.T) {
	repo := &memRepo{}
	h := newTestHandler(t, repo, &stubWallet{address: "0xabc"})

	for _, payload := range []string{
		`not json`,
		`{"customerEmail": "ada@example.com", "walletAddress": "0xabc", "product": {"id": "1"}}`,
		`{"customerName": "Ada", "walletAddress": "0xabc", "product": {"id": "1"}}`,
		`{"customerName": "Ada", "customerEmail": "ada@example.com", "product": {"id": "1"}}`,
		`{"customerName": "Ada", "customerEmail": "ada@example.com", "walletAddress": "0xabc"}`,
	} {
		rec := serve(h, http.MethodPost, "/orders/save", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.Equal(t, "Missing required fields", decode(t, rec)["error"])
	}
	assert.Zero(t, repo.count(), "rejected saves must not write")
}

func TestSaveOrder_StorageFailure(t *testing.T) {
	repo := &memRepo{err: errors.New("connection reset")}
	h := newTestHandler(t, repo, &stubWallet{address: "0xabc"})

	rec := serve(h, http.MethodPost, "/orders/save", `{
		"customerName": "Ada",
		"customerEmail": "ada@example.com",
		"walletAddress": "0xabc",
		"product": {"id": "1"}
	}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to save order", decode(t, rec)["error"])
}

func TestCheckout_Success(t *testing.T) {
	repo := &memRepo{}
	wallet := &stubWallet{address: "0xabc", txHash: "0xfeed"}
	h := newTestHandler(t, repo, wallet)

	rec := serve(h, http.MethodPost, "/checkout", `{
		"productId": "1",
		"customerName": "Ada",
		"customerEmail": "ada@example.com"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "0xfeed", body["transactionHash"])
	assert.Equal(t, "order-1", body["orderId"])
	assert.NotEmpty(t, body["claimingKey"])
	assert.Equal(t, 1, repo.count())
}

func TestCheckout_UnknownProduct(t *testing.T) {
	h := newTestHandler(t, &memRepo{}, &stubWallet{address: "0xabc"})

	rec := serve(h, http.MethodPost, "/checkout", `{
		"productId": "999",
		"customerName": "Ada",
		"customerEmail": "ada@example.com"
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckout_MissingBuyerFields(t *testing.T) {
	repo := &memRepo{}
	h := newTestHandler(t, repo, &stubWallet{address: "0xabc"})

	rec := serve(h, http.MethodPost, "/checkout", `{"productId": "1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, repo.count())
}

func TestCheckout_SubmissionFailure(t *testing.T) {
	repo := &memRepo{}
	wallet := &stubWallet{address: "0xabc", execErr: errors.New("rejected")}
	h := newTestHandler(t, repo, wallet)

	rec := serve(h, http.MethodPost, "/checkout", `{
		"productId": "1",
		"customerName": "Ada",
		"customerEmail": "ada@example.com"
	}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Zero(t, repo.count(), "failed submission must not persist an order")
}

func TestCheckout_PersistFailureCarriesHash(t *testing.T) {
	repo := &memRepo{err: errors.New("connection reset")}
	wallet := &stubWallet{address: "0xabc", txHash: "0xfeed"}
	h := newTestHandler(t, repo, wallet)

	rec := serve(h, http.MethodPost, "/checkout", `{
		"productId": "1",
		"customerName": "Ada",
		"customerEmail": "ada@example.com"
	}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "0xfeed", body["transactionHash"])
}
