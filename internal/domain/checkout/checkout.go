// Package checkout orchestrates a purchase: precondition checks, claim-secret
// derivation, the approve+deposit multicall, and order persistence, in that
// strict order.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/copiblocks/shop-api/internal/claim"
	"github.com/copiblocks/shop-api/internal/domain/order"
	"github.com/copiblocks/shop-api/internal/domain/product"
	"github.com/copiblocks/shop-api/internal/starknet"
)

// Status is the externally observable state of a checkout attempt. Each
// attempt walks Preparing → Submitting → Saving → Success, or drops to
// StatusError at the step that failed. Terminal states are Success and Error;
// there is no automatic retry.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusPreparing  Status = "preparing"
	StatusSubmitting Status = "submitting"
	StatusSaving     Status = "saving"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Validation errors, raised before any network or contract interaction.
var (
	ErrMissingBuyerFields = errors.New("customer name and email are required")
	ErrWalletNotConnected = errors.New("wallet is not connected")
	ErrNotConfigured      = errors.New("chamber and token contract addresses are not configured")
)

// PersistError reports an order save failure that happened after the on-chain
// transaction was already accepted. The transaction hash is retained so the
// buyer can follow up with support even though no order record exists.
type PersistError struct {
	TransactionHash string
	Err             error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("order save failed after transaction %s was submitted: %v", e.TransactionHash, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Request holds the buyer's submission. Salt is optional; when empty a fresh
// session salt is generated.
type Request struct {
	ProductID     string
	CustomerName  string
	CustomerEmail string
	Salt          string
}

// Result reports a completed checkout.
type Result struct {
	TransactionHash string
	OrderID         string
	Product         product.Product
	ClaimingKey     string
	Salt            string
}

// OrderSaver persists a finished order and returns its record id.
type OrderSaver interface {
	Save(ctx context.Context, o order.Order) (string, error)
}

// Config holds the contract addresses and token precision the orchestrator
// encodes calls against.
type Config struct {
	ChamberAddress string
	TokenAddress   string
	TokenDecimals  int32
}

// Service sequences the checkout steps against the injected collaborators.
type Service struct {
	cfg     Config
	catalog product.Repository
	wallet  starknet.Wallet
	orders  OrderSaver
	lg      *zap.Logger
	now     func() time.Time
}

// NewService creates a checkout Service.
func NewService(cfg Config, catalog product.Repository, wallet starknet.Wallet, orders OrderSaver, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{
		cfg:     cfg,
		catalog: catalog,
		wallet:  wallet,
		orders:  orders,
		lg:      lg,
		now:     time.Now,
	}
}

// Checkout runs one purchase attempt. observe, when non-nil, receives each
// status transition as it happens; it must not block.
//
// Any step's failure halts the sequence and surfaces the triggering error.
// The order is only persisted after the transaction has been accepted, so a
// failed submission leaves no partial record. A save failure after submission
// returns a *PersistError carrying the transaction hash.
func (s *Service) Checkout(ctx context.Context, req Request, observe func(Status)) (*Result, error) {
	notify := func(st Status) {
		if observe != nil {
			observe(st)
		}
	}
	fail := func(err error) (*Result, error) {
		notify(StatusError)
		return nil, err
	}

	notify(StatusPreparing)

	// Preconditions, all checked before any network call.
	if s.cfg.ChamberAddress == "" || s.cfg.TokenAddress == "" {
		return fail(ErrNotConfigured)
	}
	if req.CustomerName == "" || req.CustomerEmail == "" {
		return fail(ErrMissingBuyerFields)
	}
	p, err := s.catalog.GetByID(ctx, req.ProductID)
	if err != nil {
		return fail(err)
	}
	address, err := s.wallet.Address(ctx)
	if err != nil || address == "" {
		return fail(ErrWalletNotConnected)
	}

	salt := req.Salt
	if salt == "" {
		salt = claim.NewSalt()
	}
	secret := claim.Derive(salt, req.CustomerEmail, p.ID)

	amount, err := starknet.AmountToUint256(p.Price, s.cfg.TokenDecimals)
	if err != nil {
		return fail(errors.Wrap(err, "convert amount"))
	}

	// Balance is display-only: a failed query falls back to zero and never
	// blocks the checkout.
	if balance, err := s.wallet.BalanceOf(ctx, s.cfg.TokenAddress); err != nil {
		s.lg.Warn("balance query failed", zap.Error(err))
	} else {
		s.lg.Debug("wallet balance",
			zap.String("address", address),
			zap.String("balance", balance.String()),
		)
	}

	notify(StatusSubmitting)

	// Approve and deposit ride in one atomic multicall, so a failed deposit
	// cannot leave a dangling approval behind.
	asset := starknet.Asset{Amount: amount, Token: s.cfg.TokenAddress}
	txHash, err := s.wallet.Execute(ctx, []starknet.Call{
		starknet.ApproveCall(s.cfg.TokenAddress, s.cfg.ChamberAddress, amount),
		starknet.DepositCall(s.cfg.ChamberAddress, secret, asset),
	})
	if err != nil {
		return fail(errors.Wrap(err, "submit transaction"))
	}

	s.lg.Info("transaction submitted",
		zap.String("tx_hash", txHash),
		zap.String("product_id", p.ID),
	)

	notify(StatusSaving)

	// "Submitted" is enough; the order is recorded without waiting for
	// on-chain finality.
	id, err := s.orders.Save(ctx, order.Order{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		WalletAddress: address,
		Product: order.Snapshot{
			ID:      p.ID,
			Name:    p.Name,
			Roaster: p.Roaster,
			Price:   p.Price,
		},
		Amount:          p.Price,
		Salt:            salt,
		ClaimingKey:     secret,
		TransactionHash: txHash,
		Timestamp:       s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		notify(StatusError)
		return nil, &PersistError{TransactionHash: txHash, Err: err}
	}

	notify(StatusSuccess)
	return &Result{
		TransactionHash: txHash,
		OrderID:         id,
		Product:         *p,
		ClaimingKey:     secret,
		Salt:            salt,
	}, nil
}
