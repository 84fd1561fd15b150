// Package repotest holds the behaviour every cart.Repository backend must
// share. Backend tests call Run with a factory returning an empty store.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domcart "example.com/commercex-cart/app/internal/domain/cart"
)

type Factory func(t *testing.T) domcart.Repository

func Phone() domcart.LineItem {
	return domcart.LineItem{
		ProductID:       1,
		Title:           "Phone",
		ThumbnailURL:    "u1",
		Price:           500.0,
		DiscountPercent: 10.0,
		Quantity:        1,
	}
}

func Case() domcart.LineItem {
	return domcart.LineItem{
		ProductID:       2,
		Title:           "Case",
		ThumbnailURL:    "u2",
		Price:           19.99,
		DiscountPercent: 0,
		Quantity:        2,
	}
}

func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, repo domcart.Repository)
	}{
		{"EmptyStore", testEmptyStore},
		{"UpsertThenFind", testUpsertThenFind},
		{"UpsertReplacesWholeRecord", testUpsertReplacesWholeRecord},
		{"UpdateQuantityOnlyTouchesQuantity", testUpdateQuantityOnlyTouchesQuantity},
		{"UpdateQuantityMissingIsNoop", testUpdateQuantityMissingIsNoop},
		{"DeleteRemovesOnlyThatKey", testDeleteRemovesOnlyThatKey},
		{"DeleteMissingIsNoop", testDeleteMissingIsNoop},
		{"ClearAll", testClearAll},
		{"ListAllOrderedByProductID", testListAllOrdered},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newRepo(t))
		})
	}
}

func testEmptyStore(t *testing.T, repo domcart.Repository) {
	ctx := context.Background()

	items, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Len(t, items, 0)

	item, err := repo.FindByProductID(ctx, 42)
	require.ErrorIs(t, err, domcart.ErrItemNotFound)
	require.Nil(t, item)

	require.NoError(t, repo.ClearAll(ctx))
}

func testUpsertThenFind(t *testing.T, repo domcart.Repository) {
	ctx := context.Background()
	want := Phone()

	require.NoError(t, repo.Upsert(ctx, want))

	got, err := repo.FindByProductID(ctx, want.ProductID)
	require.NoError(t, err)
	require.Equal(t, want, *got)
}

func testUpsertReplacesWholeRecord(t *testing.T, repo domcart.Repository) {
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, Phone()))

	replacement := domcart.LineItem{
		ProductID:       1,
		Title:           "Phone (renewed)",
		ThumbnailURL:    "u1b",
		Price:           420.5,
		DiscountPercent: 0,
		Quantity:        5,
	}
	require.NoError(t, repo.Upsert(ctx, replacement))

	items, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, replacement, items[0])
}

func testUpdateQuantityOnlyTouchesQuantity(t *testing.T, repo domcart.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, Phone()))

	require.NoError(t, repo.UpdateQuantity(ctx, 1, 3))

	got, err := repo.FindByProductID(ctx, 1)
	require.NoError(t, err)
	want := Phone()
	want.Quantity = 3
	require.Equal(t, want, *got)
}

func testUpdateQuantityMissingIsNoop(t *testing.T, repo domcart.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, Case()))

	require.NoError(t, repo.UpdateQuantity(ctx, 99, 7))

	_, err := repo.FindByProductID(ctx, 99)
	require.ErrorIs(t, err, domcart.ErrItemNotFound)

	items, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []domcart.LineItem{Case()}, items)
}

func testDeleteRemovesOnlyThatKey(t *testing.T, repo domcart.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, Phone()))
	require.NoError(t, repo.Upsert(ctx, Case()))

	require.NoError(t, repo.DeleteByProductID(ctx, 1))

	items, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, Case(), items[0])
}

func testDeleteMissingIsNoop(t *testing.T, repo domcart.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, Phone()))

	require.NoError(t, repo.DeleteByProductID(ctx, 2))

	items, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []domcart.LineItem{Phone()}, items)
}

func testClearAll(t *testing.T, repo domcart.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, Phone()))
	require.NoError(t, repo.Upsert(ctx, Case()))

	require.NoError(t, repo.ClearAll(ctx))

	items, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 0)

	// clearing an empty store is fine too
	require.NoError(t, repo.ClearAll(ctx))
}

func testListAllOrdered(t *testing.T, repo domcart.Repository) {
	ctx := context.Background()
	for _, id := range []int64{30, 10, 20} {
		item := Phone()
		item.ProductID = id
		require.NoError(t, repo.Upsert(ctx, item))
	}

	items, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, int64(10), items[0].ProductID)
	require.Equal(t, int64(20), items[1].ProductID)
	require.Equal(t, int64(30), items[2].ProductID)
}

func testPing(t *testing.T, repo domcart.Repository) {
	require.NoError(t, repo.Ping(context.Background()))
}
