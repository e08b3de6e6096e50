package product

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_GetByID(t *testing.T) {
	c := NewCatalog(DefaultProducts())

	p, err := c.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Tio Hugo", p.Roaster)
	assert.True(t, p.Price.IsPositive())

	_, err = c.GetByID(context.Background(), "99")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_ListPreservesOrder(t *testing.T) {
	c := NewCatalog(DefaultProducts())

	list, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "2", list[1].ID)
}

func TestLoadProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"7","name":"Geisha Lot 4","roaster":"Las Peñas","price":12.50,"weight_grams":200}
	]`), 0o600))

	products, err := LoadProducts(path)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "7", products[0].ID)
	assert.Equal(t, "12.5", products[0].Price.String())
}

func TestLoadProducts_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"no id","price":1}]`), 0o600))

	_, err := LoadProducts(path)
	assert.Error(t, err)
}
