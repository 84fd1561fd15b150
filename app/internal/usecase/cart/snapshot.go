package cart

import (
	"context"
	"fmt"

	domcart "example.com/commercex-cart/app/internal/domain/cart"
)

// Refresh reloads the published snapshot from storage.
func (s *Service) Refresh(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "cart.Refresh")
	defer span.End()

	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return s.fail(span, "refresh", 0, err)
	}
	s.broadcast(items)
	return nil
}

// publish runs after a successful write. The write already happened, so a
// failed reload only leaves the previous snapshot in place.
func (s *Service) publish(ctx context.Context) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	items, err := s.repo.ListAll(ctx)
	if err != nil {
		s.log.WithError(err).Warn("cart snapshot refresh failed")
		return
	}
	s.broadcast(items)
}

func (s *Service) broadcast(items []domcart.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = domcart.CloneItems(items)
	for ch := range s.subs {
		offer(ch, domcart.CloneItems(items))
	}
}

// offer replaces whatever the subscriber has not read yet.
func offer(ch chan []domcart.LineItem, items []domcart.LineItem) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- items:
	default:
	}
}

// Snapshot returns the cart as of the last successful mutation or Refresh.
func (s *Service) Snapshot() []domcart.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domcart.CloneItems(s.snapshot)
}

// Subscribe delivers the current snapshot and then every newer one. Only the
// latest unread snapshot is kept. The channel is closed once ctx is done.
func (s *Service) Subscribe(ctx context.Context) (<-chan []domcart.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	ch := make(chan []domcart.LineItem, 1)

	s.mu.Lock()
	ch <- domcart.CloneItems(s.snapshot)
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}
