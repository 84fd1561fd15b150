package postgres

import (
	"context"
	"errors"
	"fmt"

	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	domcart "example.com/commercex-cart/app/internal/domain/cart"
	"example.com/commercex-cart/app/internal/infra/persistence/migrations"
)

type CartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

func Open(ctx context.Context, dsn string) (*CartRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := NewCartRepository(pool)
	if err := repo.RunMigrations(); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// RunMigrations borrows a database/sql view of the pool for the migrate
// driver and releases it afterwards.
func (r *CartRepository) RunMigrations() error {
	db := stdlib.OpenDBFromPool(r.pool)
	db.SetMaxIdleConns(0)

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("could not create migration driver: %w", err)
	}
	defer driver.Close()

	return migrations.Up(driver, migrations.DialectPostgres)
}

func (r *CartRepository) ListAll(ctx context.Context) ([]domcart.LineItem, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT product_id, title, thumbnail_url, price, discount_percent, quantity
        FROM cart_items
        ORDER BY product_id
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanLineItem)
	if err != nil {
		return nil, fmt.Errorf("failed to scan cart items: %w", err)
	}
	if items == nil {
		items = []domcart.LineItem{}
	}
	return items, nil
}

func (r *CartRepository) FindByProductID(ctx context.Context, productID int64) (*domcart.LineItem, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT product_id, title, thumbnail_url, price, discount_percent, quantity
        FROM cart_items WHERE product_id = $1 LIMIT 1
    `, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanLineItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domcart.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return &item, nil
}

func scanLineItem(row pgx.CollectableRow) (domcart.LineItem, error) {
	var item domcart.LineItem
	err := row.Scan(&item.ProductID, &item.Title, &item.ThumbnailURL, &item.Price, &item.DiscountPercent, &item.Quantity)
	return item, err
}

func (r *CartRepository) Upsert(ctx context.Context, item domcart.LineItem) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO cart_items (product_id, title, thumbnail_url, price, discount_percent, quantity)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (product_id) DO UPDATE SET
            title = EXCLUDED.title,
            thumbnail_url = EXCLUDED.thumbnail_url,
            price = EXCLUDED.price,
            discount_percent = EXCLUDED.discount_percent,
            quantity = EXCLUDED.quantity
    `, item.ProductID, item.Title, item.ThumbnailURL, item.Price, item.DiscountPercent, item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, productID int64, quantity int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE cart_items SET quantity = $1 WHERE product_id = $2`, quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to update quantity: %w", err)
	}
	return nil
}

func (r *CartRepository) DeleteByProductID(ctx context.Context, productID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE product_id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) ClearAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM cart_items`); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *CartRepository) Close() error {
	r.pool.Close()
	return nil
}
