package cart

import "context"

// Repository is the durable table of cart line items keyed by product ID.
// Upsert replaces the whole row. UpdateQuantity and DeleteByProductID treat
// a missing row as success.
type Repository interface {
	ListAll(ctx context.Context) ([]LineItem, error)
	FindByProductID(ctx context.Context, productID int64) (*LineItem, error)
	Upsert(ctx context.Context, item LineItem) error
	UpdateQuantity(ctx context.Context, productID int64, quantity int64) error
	DeleteByProductID(ctx context.Context, productID int64) error
	ClearAll(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
