package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domcart "example.com/commercex-cart/app/internal/domain/cart"
)

const lockStripes = 64

var tracer = otel.Tracer("example.com/commercex-cart/app/internal/usecase/cart")

type Service struct {
	repo      domcart.Repository
	validator *domcart.Validator
	log       logrus.FieldLogger

	// writes to one product ID go through the same stripe
	locks [lockStripes]sync.Mutex

	publishMu sync.Mutex
	mu        sync.RWMutex
	snapshot  []domcart.LineItem
	subs      map[chan []domcart.LineItem]struct{}
}

func NewService(repo domcart.Repository, validator *domcart.Validator, log logrus.FieldLogger) *Service {
	if validator == nil {
		validator = domcart.NewValidator(domcart.PolicyPresence)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		repo:      repo,
		validator: validator,
		log:       log.WithField("component", "cart_store"),
		snapshot:  []domcart.LineItem{},
		subs:      make(map[chan []domcart.LineItem]struct{}),
	}
}

func (s *Service) ListAll(ctx context.Context) ([]domcart.LineItem, error) {
	ctx, span := tracer.Start(ctx, "cart.ListAll")
	defer span.End()

	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, s.fail(span, "list_all", 0, err)
	}
	return domcart.CloneItems(items), nil
}

func (s *Service) FindByProductID(ctx context.Context, productID int64) (*domcart.LineItem, error) {
	ctx, span := tracer.Start(ctx, "cart.FindByProductID", trace.WithAttributes(productAttr(productID)))
	defer span.End()

	item, err := s.repo.FindByProductID(ctx, productID)
	if errors.Is(err, domcart.ErrItemNotFound) {
		span.SetAttributes(attribute.Bool("cart.found", false))
		return nil, domcart.ErrItemNotFound
	}
	if err != nil {
		return nil, s.fail(span, "find", productID, err)
	}
	found := *item
	return &found, nil
}

// Upsert stores item, replacing every field of an existing line.
func (s *Service) Upsert(ctx context.Context, item domcart.LineItem) error {
	ctx, span := tracer.Start(ctx, "cart.Upsert", trace.WithAttributes(productAttr(item.ProductID)))
	defer span.End()

	if err := s.validator.ValidateItem(item); err != nil {
		return s.reject(span, "upsert", item.ProductID, err)
	}

	unlock := s.lockKey(item.ProductID)
	err := s.repo.Upsert(ctx, item)
	unlock()
	if err != nil {
		return s.fail(span, "upsert", item.ProductID, err)
	}

	s.log.WithFields(logrus.Fields{"op": "upsert", "product_id": item.ProductID}).Debug("cart item stored")
	s.publish(ctx)
	return nil
}

// RestoreItem puts back a line the caller removed earlier.
func (s *Service) RestoreItem(ctx context.Context, item domcart.LineItem) error {
	return s.Upsert(ctx, item)
}

// AddToCart inserts item, or adds item.Quantity to the line already stored
// for the same product. Other stored fields are kept in the latter case.
func (s *Service) AddToCart(ctx context.Context, item domcart.LineItem) error {
	ctx, span := tracer.Start(ctx, "cart.AddToCart", trace.WithAttributes(productAttr(item.ProductID)))
	defer span.End()

	if err := s.validator.ValidateItem(item); err != nil {
		return s.reject(span, "add", item.ProductID, err)
	}

	unlock := s.lockKey(item.ProductID)
	merged, err := s.addLocked(ctx, item)
	unlock()
	if err != nil {
		return s.fail(span, "add", item.ProductID, err)
	}

	span.SetAttributes(attribute.Bool("cart.merged", merged))
	s.log.WithFields(logrus.Fields{"op": "add", "product_id": item.ProductID, "merged": merged}).Debug("cart item added")
	s.publish(ctx)
	return nil
}

func (s *Service) addLocked(ctx context.Context, item domcart.LineItem) (bool, error) {
	existing, err := s.repo.FindByProductID(ctx, item.ProductID)
	if errors.Is(err, domcart.ErrItemNotFound) {
		return false, s.repo.Upsert(ctx, item)
	}
	if err != nil {
		return false, err
	}
	return true, s.repo.UpdateQuantity(ctx, item.ProductID, existing.Quantity+item.Quantity)
}

// UpdateQuantity changes only the quantity. A missing product is not an
// error and nothing is created. A quantity below 1 is rejected under the
// strict policy and ignored otherwise; removing a line is DeleteByProductID.
func (s *Service) UpdateQuantity(ctx context.Context, productID int64, quantity int64) error {
	ctx, span := tracer.Start(ctx, "cart.UpdateQuantity",
		trace.WithAttributes(productAttr(productID), attribute.Int64("cart.quantity", quantity)))
	defer span.End()

	if err := s.validator.ValidateQuantity(quantity); err != nil {
		return s.reject(span, "update_quantity", productID, err)
	}
	if quantity < 1 {
		span.SetAttributes(attribute.Bool("cart.ignored", true))
		s.log.WithFields(logrus.Fields{"op": "update_quantity", "product_id": productID, "quantity": quantity}).Debug("non-positive quantity ignored")
		return nil
	}

	unlock := s.lockKey(productID)
	err := s.repo.UpdateQuantity(ctx, productID, quantity)
	unlock()
	if err != nil {
		return s.fail(span, "update_quantity", productID, err)
	}

	s.log.WithFields(logrus.Fields{"op": "update_quantity", "product_id": productID, "quantity": quantity}).Debug("cart quantity updated")
	s.publish(ctx)
	return nil
}

func (s *Service) DeleteByProductID(ctx context.Context, productID int64) error {
	ctx, span := tracer.Start(ctx, "cart.DeleteByProductID", trace.WithAttributes(productAttr(productID)))
	defer span.End()

	unlock := s.lockKey(productID)
	err := s.repo.DeleteByProductID(ctx, productID)
	unlock()
	if err != nil {
		return s.fail(span, "delete", productID, err)
	}

	s.log.WithFields(logrus.Fields{"op": "delete", "product_id": productID}).Debug("cart item deleted")
	s.publish(ctx)
	return nil
}

func (s *Service) ClearAll(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "cart.ClearAll")
	defer span.End()

	unlock := s.lockAll()
	err := s.repo.ClearAll(ctx)
	unlock()
	if err != nil {
		return s.fail(span, "clear", 0, err)
	}

	s.log.WithField("op", "clear").Debug("cart cleared")
	s.publish(ctx)
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", domcart.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.repo.Close()
}

func (s *Service) lockKey(productID int64) func() {
	m := &s.locks[uint64(productID)%lockStripes]
	m.Lock()
	return m.Unlock
}

// lockAll takes every stripe in index order so it cannot deadlock with
// lockKey callers.
func (s *Service) lockAll() func() {
	for i := range s.locks {
		s.locks[i].Lock()
	}
	return func() {
		for i := len(s.locks) - 1; i >= 0; i-- {
			s.locks[i].Unlock()
		}
	}
}

func (s *Service) fail(span trace.Span, op string, productID int64, err error) error {
	wrapped := fmt.Errorf("%w: %s: %w", domcart.ErrStorageUnavailable, op, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	entry := s.log.WithField("op", op).WithError(err)
	if productID != 0 {
		entry = entry.WithField("product_id", productID)
	}
	entry.Error("cart storage operation failed")
	return wrapped
}

func (s *Service) reject(span trace.Span, op string, productID int64, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "constraint violation")
	s.log.WithFields(logrus.Fields{"op": op, "product_id": productID}).WithError(err).Warn("cart item rejected")
	return err
}

func productAttr(productID int64) attribute.KeyValue {
	return attribute.Int64("cart.product_id", productID)
}
