package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is an order's lifecycle state. Orders are created as StatusPending
// and never mutated by this service; fulfillment happens out-of-band.
type Status string

// StatusPending is the fixed initial lifecycle status.
const StatusPending Status = "pending"

// Snapshot captures the purchased product at checkout time, so later catalog
// changes cannot alter the order record.
type Snapshot struct {
	ID      string
	Name    string
	Roaster string
	Price   decimal.Decimal
}

// Order is the unit persisted per successful checkout.
//
// Timestamp is the caller-supplied clock reading and is stored verbatim;
// CreatedAt is assigned from the server clock at save time and is the
// authoritative creation instant.
type Order struct {
	ID              string
	CustomerName    string
	CustomerEmail   string
	WalletAddress   string
	Product         Snapshot
	Amount          decimal.Decimal
	Salt            string
	ClaimingKey     string
	TransactionHash string
	Timestamp       string
	CreatedAt       time.Time
	Status          Status
}

// Repository defines persistence operations for orders. Create performs a
// single atomic document insert and returns the generated record identifier.
type Repository interface {
	Create(ctx context.Context, o *Order) (string, error)
	ExistsByTransactionHash(ctx context.Context, hash string) (bool, error)
}
