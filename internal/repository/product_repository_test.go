package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vantage-media/quote-api/internal/domain"
	"github.com/vantage-media/quote-api/internal/repository"
)

func TestProductRepository_PersistsFlagsOnCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()

	t.Run("false flags survive the insert", func(t *testing.T) {
		retired := &domain.Product{
			Code:        "RETIRED-1",
			Name:        "Retired banner",
			Kind:        domain.ProductKindExternal,
			PublicPrice: 100,
			Unit:        "unit",
			Sellable:    false,
			Purchasable: false,
		}
		require.NoError(t, repo.Create(ctx, retired))

		got, err := repo.GetByID(ctx, retired.ID)
		require.NoError(t, err)
		assert.False(t, got.Sellable)
		assert.False(t, got.Purchasable)
	})

	t.Run("true flags survive the insert", func(t *testing.T) {
		active := &domain.Product{
			Code:        "ACTIVE-1",
			Name:        "Active banner",
			Kind:        domain.ProductKindExternal,
			PublicPrice: 100,
			Unit:        "unit",
			Sellable:    true,
			Purchasable: true,
		}
		require.NoError(t, repo.Create(ctx, active))

		got, err := repo.GetByID(ctx, active.ID)
		require.NoError(t, err)
		assert.True(t, got.Sellable)
		assert.True(t, got.Purchasable)
	})

	t.Run("sellable filter distinguishes the two", func(t *testing.T) {
		sellable := true
		products, total, err := repo.List(ctx, 1, 10, nil, &sellable, "")
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, products, 1)
		assert.Equal(t, "ACTIVE-1", products[0].Code)
	})
}
