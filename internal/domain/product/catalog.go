package product

import (
	"context"
	"encoding/json"
	"os"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Catalog is the in-memory Repository implementation. It is immutable after
// construction, so reads need no synchronization.
type Catalog struct {
	ordered []Product
	byID    map[string]Product
}

var _ Repository = (*Catalog)(nil)

// NewCatalog builds a catalog from the given products, preserving order.
func NewCatalog(products []Product) *Catalog {
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &Catalog{
		ordered: append([]Product(nil), products...),
		byID:    byID,
	}
}

// List returns every product in catalog order.
func (c *Catalog) List(_ context.Context) ([]Product, error) {
	return append([]Product(nil), c.ordered...), nil
}

// GetByID returns a single product, or ErrNotFound.
func (c *Catalog) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// DefaultProducts is the vendor's standing catalog.
func DefaultProducts() []Product {
	return []Product{
		{
			ID:          "1",
			Name:        "Caturra & Catuai Blend",
			Roaster:     "Tio Hugo",
			Price:       decimal.RequireFromString("0.75"),
			WeightGrams: 250,
		},
		{
			ID:          "2",
			Name:        "Caturra & Catuai Blend",
			Roaster:     "Las Peñas",
			Price:       decimal.RequireFromString("0.75"),
			WeightGrams: 250,
		},
	}
}

type productFile struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Roaster     string          `json:"roaster"`
	Price       decimal.Decimal `json:"price"`
	WeightGrams int             `json:"weight_grams"`
}

// LoadProducts reads a catalog from a JSON file. Entries must carry an id,
// a name, and a non-negative price.
func LoadProducts(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog file")
	}

	var entries []productFile
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "parse catalog file")
	}

	products := make([]Product, len(entries))
	for i, e := range entries {
		if e.ID == "" || e.Name == "" {
			return nil, errors.Errorf("catalog entry %d: id and name are required", i)
		}
		if e.Price.IsNegative() {
			return nil, errors.Errorf("catalog entry %q: negative price", e.ID)
		}
		products[i] = Product{
			ID:          e.ID,
			Name:        e.Name,
			Roaster:     e.Roaster,
			Price:       e.Price,
			WeightGrams: e.WeightGrams,
		}
	}
	return products, nil
}
