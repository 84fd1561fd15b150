package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	domcart "example.com/commercex-cart/app/internal/domain/cart"
)

// record is the hash stored under <prefix>:item:<productID>. The product ID
// is the key and the member of the <prefix>:items set.
type record struct {
	Title           string  `redis:"title"`
	ThumbnailURL    string  `redis:"thumbnail_url"`
	Price           float64 `redis:"price"`
	DiscountPercent float64 `redis:"discount_percent"`
	Quantity        int64   `redis:"quantity"`
}

// KEYS[1] item hash. ARGV[1] quantity.
var updateQuantityScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return 0
end
redis.call('HSET', KEYS[1], 'quantity', ARGV[1])
return 1
`)

type CartRepository struct {
	client *redis.Client
	prefix string
}

func NewCartRepository(client *redis.Client, prefix string) *CartRepository {
	if prefix == "" {
		prefix = "cart"
	}
	return &CartRepository{client: client, prefix: prefix}
}

// Open accepts either a redis:// URL or a bare host:port.
func Open(ctx context.Context, addr, prefix string) (*CartRepository, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewCartRepository(client, prefix), nil
}

func (r *CartRepository) indexKey() string {
	return r.prefix + ":items"
}

func (r *CartRepository) itemKeyPrefix() string {
	return r.prefix + ":item:"
}

func (r *CartRepository) itemKey(productID int64) string {
	return r.itemKeyPrefix() + strconv.FormatInt(productID, 10)
}

func (r *CartRepository) ListAll(ctx context.Context) ([]domcart.LineItem, error) {
	members, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers failed: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt cart index member %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HGetAll(ctx, r.itemKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	items := make([]domcart.LineItem, 0, len(ids))
	for i, cmd := range cmds {
		item, ok, err := decode(ids[i], cmd)
		if err != nil {
			return nil, err
		}
		// index and hash can disagree only if a writer died mid-way
		if ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *CartRepository) FindByProductID(ctx context.Context, productID int64) (*domcart.LineItem, error) {
	cmd := r.client.HGetAll(ctx, r.itemKey(productID))
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	item, ok, err := decode(productID, cmd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domcart.ErrItemNotFound
	}
	return &item, nil
}

func decode(productID int64, cmd *redis.MapStringStringCmd) (domcart.LineItem, bool, error) {
	if len(cmd.Val()) == 0 {
		return domcart.LineItem{}, false, nil
	}

	var rec record
	if err := cmd.Scan(&rec); err != nil {
		return domcart.LineItem{}, false, fmt.Errorf("decode cart item %d failed: %w", productID, err)
	}
	return domcart.LineItem{
		ProductID:       productID,
		Title:           rec.Title,
		ThumbnailURL:    rec.ThumbnailURL,
		Price:           rec.Price,
		DiscountPercent: rec.DiscountPercent,
		Quantity:        rec.Quantity,
	}, true, nil
}

// Upsert drops the old hash before writing so no stale field survives.
func (r *CartRepository) Upsert(ctx context.Context, item domcart.LineItem) error {
	key := r.itemKey(item.ProductID)
	rec := record{
		Title:           item.Title,
		ThumbnailURL:    item.ThumbnailURL,
		Price:           item.Price,
		DiscountPercent: item.DiscountPercent,
		Quantity:        item.Quantity,
	}

	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, rec)
		p.SAdd(ctx, r.indexKey(), strconv.FormatInt(item.ProductID, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis upsert failed: %w", err)
	}
	return nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, productID int64, quantity int64) error {
	err := updateQuantityScript.Run(ctx, r.client, []string{r.itemKey(productID)}, quantity).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis update quantity failed: %w", err)
	}
	return nil
}

func (r *CartRepository) DeleteByProductID(ctx context.Context, productID int64) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.itemKey(productID))
		p.SRem(ctx, r.indexKey(), strconv.FormatInt(productID, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// ClearAll removes the items listed in the index. Members are dropped with
// SREM, not by deleting the set, so an id indexed after SMEMBERS survives.
func (r *CartRepository) ClearAll(ctx context.Context) error {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("redis clear failed: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ids))
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.itemKeyPrefix()+id)
		members = append(members, id)
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		p.SRem(ctx, r.indexKey(), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis clear failed: %w", err)
	}
	return nil
}

func (r *CartRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *CartRepository) Close() error {
	return r.client.Close()
}
