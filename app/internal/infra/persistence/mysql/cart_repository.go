package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"

	domcart "example.com/commercex-cart/app/internal/domain/cart"
	"example.com/commercex-cart/app/internal/infra/persistence/migrations"
)

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Open connects to the database named in dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*CartRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, err
	}
	return NewCartRepository(db), nil
}

// RunMigrations uses its own connection: the migrate driver pins a
// connection and closes its *sql.DB when done.
func RunMigrations(dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}

	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("could not create migration driver: %w", err)
	}
	defer driver.Close()

	return migrations.Up(driver, migrations.DialectMySQL)
}

func (r *CartRepository) ListAll(ctx context.Context) ([]domcart.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT product_id, title, thumbnail_url, price, discount_percent, quantity
        FROM cart_items
        ORDER BY product_id
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []domcart.LineItem{}
	for rows.Next() {
		var item domcart.LineItem
		if err := rows.Scan(&item.ProductID, &item.Title, &item.ThumbnailURL, &item.Price, &item.DiscountPercent, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *CartRepository) FindByProductID(ctx context.Context, productID int64) (*domcart.LineItem, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT product_id, title, thumbnail_url, price, discount_percent, quantity
        FROM cart_items WHERE product_id = ? LIMIT 1
    `, productID)

	var item domcart.LineItem
	if err := row.Scan(&item.ProductID, &item.Title, &item.ThumbnailURL, &item.Price, &item.DiscountPercent, &item.Quantity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domcart.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return &item, nil
}

func (r *CartRepository) Upsert(ctx context.Context, item domcart.LineItem) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO cart_items (product_id, title, thumbnail_url, price, discount_percent, quantity)
        VALUES (?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            title = VALUES(title),
            thumbnail_url = VALUES(thumbnail_url),
            price = VALUES(price),
            discount_percent = VALUES(discount_percent),
            quantity = VALUES(quantity)
    `, item.ProductID, item.Title, item.ThumbnailURL, item.Price, item.DiscountPercent, item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, productID int64, quantity int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE cart_items SET quantity = ? WHERE product_id = ?`, quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to update quantity: %w", err)
	}
	return nil
}

func (r *CartRepository) DeleteByProductID(ctx context.Context, productID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE product_id = ?`, productID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

func (r *CartRepository) ClearAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items`); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (r *CartRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *CartRepository) Close() error {
	return r.db.Close()
}
