package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	"github.com/vasiliy-maslov/laptop-store/internal/db/dbtest"
)

func TestPostgres_ListByBrand(t *testing.T) {
	pg := dbtest.Open(t)
	ctx := context.Background()
	repo := catalog.NewRepository(pg.Pool)

	for _, brand := range []string{"Lenovo", "lenovo", "Dell", "Le_ovo"} {
		require.NoError(t, repo.Create(ctx, &catalog.Product{Name: brand + " laptop", Brand: brand, Price: 1000, StockQty: 1, IsActive: true}))
	}

	products, err := repo.List(ctx, catalog.ListFilter{Brand: "LENOVO"})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	for _, pattern := range []string{"%", "Le_ovo%", "_ell"} {
		products, err = repo.List(ctx, catalog.ListFilter{Brand: pattern})
		require.NoError(t, err)
		assert.Empty(t, products, pattern)
	}

	products, err = repo.List(ctx, catalog.ListFilter{Brand: "le_ovo"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Le_ovo", products[0].Brand)
}
