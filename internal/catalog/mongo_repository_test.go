package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/fjod/azura/internal/domain"
	"github.com/fjod/azura/internal/mongodb/mongotest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *MongoRepository {
	db := mongotest.StartTestDB(t)
	repo := NewMongoRepository(db)
	require.NoError(t, repo.CreateIndexes(context.Background()))
	return repo
}

func seed(t *testing.T, repo *MongoRepository, title, category, price string) *domain.Product {
	p := &domain.Product{
		Title:    title,
		Category: category,
		Price:    decimal.RequireFromString(price),
		Stock:    5,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestCreateAndGet_PreservesDecimalPrice(t *testing.T) {
	repo := setupTestDB(t)
	created := seed(t, repo, "Mug", "kitchen", "19.99")

	got, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mug", got.Title)
	assert.True(t, decimal.RequireFromString("19.99").Equal(got.Price))
}

func TestGet_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Get(context.Background(), "65f0c0ffee0000000000beef")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Get(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListAndCount_FilterSearchPaginate(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		seed(t, repo, fmt.Sprintf("Blue Mug %d", i), "kitchen", "5")
	}
	seed(t, repo, "Red Shirt", "apparel", "20")

	page1, err := repo.List(ctx, domain.ProductFilter{Category: "kitchen"})
	require.NoError(t, err)
	assert.Len(t, page1, 10)

	page2, err := repo.List(ctx, domain.ProductFilter{Category: "kitchen", Page: 2})
	require.NoError(t, err)
	assert.Len(t, page2, 2)

	n, err := repo.Count(ctx, domain.ProductFilter{Search: "blue mug"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	n, err = repo.Count(ctx, domain.ProductFilter{Search: "shirt", Category: "kitchen"})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.Count(ctx, domain.ProductFilter{Search: "(("})
	require.NoError(t, err, "search text is matched literally")
	assert.Zero(t, n)
}

func TestGetMany(t *testing.T) {
	repo := setupTestDB(t)
	a := seed(t, repo, "A", "x", "1")
	b := seed(t, repo, "B", "x", "2")

	got, err := repo.GetMany(context.Background(), []string{a.ID, b.ID, "65f0c0ffee0000000000beef", "junk"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, decimal.RequireFromString("2").Equal(got[b.ID].Price))
}

func TestUpdate_Partial(t *testing.T) {
	repo := setupTestDB(t)
	p := seed(t, repo, "Mug", "kitchen", "10")

	stock := 0
	updated, err := repo.Update(context.Background(), p.ID, domain.ProductUpdate{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, "Mug", updated.Title)
	assert.True(t, decimal.RequireFromString("10").Equal(updated.Price))
}

func TestDelete_ReturnsDeletedProduct(t *testing.T) {
	repo := setupTestDB(t)
	p := seed(t, repo, "Mug", "kitchen", "10")

	deleted, err := repo.Delete(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, deleted.ID)

	_, err = repo.Delete(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
