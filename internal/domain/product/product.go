package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry. The catalog is fixed at process start and never
// persisted; orders embed a snapshot of the fields they need.
type Product struct {
	ID          string
	Name        string
	Roaster     string
	Price       decimal.Decimal
	WeightGrams int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
