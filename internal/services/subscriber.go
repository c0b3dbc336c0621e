package services

import (
	"context"
	"sync"

	"github.com/coffeechain/coffeechain-backend/internal/ledger"
	"github.com/coffeechain/coffeechain-backend/internal/utils"
	"github.com/coffeechain/coffeechain-backend/pkg/logger"
)

// Subscriber holds the session's long-lived ledger subscriptions and maps
// each notification to a targeted refresh, never a full reload. A failed
// refresh is logged and dropped; the subscription stays live and the next
// notification retries independently.
type Subscriber struct {
	gateway   *ledger.Gateway
	projector *Projector

	mu     sync.Mutex
	active bool // session-owned latch guarding duplicate setup
	subs   []*ledger.Subscription
	wg     sync.WaitGroup
}

func NewSubscriber(gateway *ledger.Gateway, projector *Projector) *Subscriber {
	return &Subscriber{gateway: gateway, projector: projector}
}

// Start establishes one subscription per (contract, event) of interest.
// Calling it while already active is a no-op.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil
	}

	type feed struct {
		open    func(string) (*ledger.Subscription, error)
		event   string
		handler func(context.Context, ledger.Event)
	}
	feeds := []feed{
		{s.gateway.SubscribeCatalog, ledger.EventProductAdded, s.onCatalogChanged},
		{s.gateway.SubscribeCatalog, ledger.EventProductDeleted, s.onCatalogChanged},
		{s.gateway.SubscribeCatalog, ledger.EventProductPurchased, s.onCatalogChanged},
		{s.gateway.SubscribeReviews, ledger.EventReviewPosted, s.onReviewPosted},
	}

	for _, f := range feeds {
		sub, err := f.open(f.event)
		if err != nil {
			for _, opened := range s.subs {
				opened.Close()
			}
			s.subs = nil
			return err
		}
		s.subs = append(s.subs, sub)
		s.wg.Add(1)
		go s.run(ctx, sub, f.handler)
	}
	s.active = true
	return nil
}

// Close tears down every subscription. Idempotent; session teardown calls
// it on every exit path.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	s.wg.Wait()
}

func (s *Subscriber) run(ctx context.Context, sub *ledger.Subscription, handler func(context.Context, ledger.Event)) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			handler(ctx, ev)
		}
	}
}

// Any catalog mutation, by any actor, changes the shared product list.
func (s *Subscriber) onCatalogChanged(ctx context.Context, ev ledger.Event) {
	if err := s.projector.RefreshCatalog(ctx); err != nil {
		logger.Errorf("catalog refresh after %s failed: %v", ev.Name, err)
	}
}

// onReviewPosted refreshes the shared review list when the viewed product
// is affected. The viewer's personal counters change only through the
// viewer's own reviews; another actor's review must not touch them.
func (s *Subscriber) onReviewPosted(ctx context.Context, ev ledger.Event) {
	if viewed := s.projector.ViewedProduct(); viewed != "" && viewed == ev.ProductCode {
		if err := s.projector.RefreshReviews(ctx, viewed); err != nil {
			logger.Errorf("review refresh after %s failed: %v", ev.Name, err)
		}
	}

	if !utils.SameWallet(ev.Actor, s.projector.Actor()) {
		return
	}
	if err := s.projector.RefreshWallet(ctx); err != nil {
		logger.Errorf("wallet refresh after %s failed: %v", ev.Name, err)
	}
	if err := s.projector.RefreshBadges(ctx); err != nil {
		logger.Errorf("badge refresh after %s failed: %v", ev.Name, err)
	}
}
