package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	domcart "example.com/commercex-cart/app/internal/domain/cart"
	"example.com/commercex-cart/app/internal/infra/persistence/repotest"
)

func setupTestDB(t *testing.T) *CartRepository {
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "cart.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCartRepository_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) domcart.Repository {
		return setupTestDB(t)
	})
}

func TestOpen_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "commercex_cart.db")

	repo, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, repotest.Phone()))
	require.NoError(t, repo.Close())

	// second open must find the table and must not re-run the schema
	repo, err = Open(ctx, path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.FindByProductID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, repotest.Phone(), *got)
}

func TestOpen_InMemory(t *testing.T) {
	repo, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Upsert(context.Background(), repotest.Case()))
	items, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestCartRepository_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCartRepository_ClosedDatabase(t *testing.T) {
	repo := setupTestDB(t)
	require.NoError(t, repo.Close())

	err := repo.Upsert(context.Background(), repotest.Phone())
	require.Error(t, err)
	require.NotErrorIs(t, err, domcart.ErrItemNotFound)
}
