package services

import (
	"context"
	"sync"

	"github.com/coffeechain/coffeechain-backend/internal/config"
	"github.com/coffeechain/coffeechain-backend/internal/ledger"
	"github.com/coffeechain/coffeechain-backend/pkg/logger"
)

// Session wires the sync core for one actor: gateway, estimator, projector,
// coordinator and subscriber share the session's lifetime. The client handle
// is injected so tests can substitute the in-memory ledger.
type Session struct {
	Actor       string
	Gateway     *ledger.Gateway
	Estimator   *Estimator
	Projector   *Projector
	Coordinator *Coordinator
	Subscriber  *Subscriber

	mu     sync.Mutex
	closed bool
}

func NewSession(client ledger.Client, cfg *config.Config, actor string) *Session {
	gateway := ledger.NewGateway(client, ledger.Addresses{
		Catalog: cfg.CatalogAddress,
		Reviews: cfg.ReviewsAddress,
		Token:   cfg.TokenAddress,
		Badge:   cfg.BadgeAddress,
	})
	ipfs := NewIPFSService(cfg.ContentGatewayURL)
	estimator := NewEstimator(client)
	projector := NewProjector(gateway, ipfs, actor)

	return &Session{
		Actor:       actor,
		Gateway:     gateway,
		Estimator:   estimator,
		Projector:   projector,
		Coordinator: NewCoordinator(estimator, gateway, projector),
		Subscriber:  NewSubscriber(gateway, projector),
	}
}

// Start performs the initial full load and brings up the change feeds. A
// refresh error returns before anything long-lived exists; a feed error
// tears the partially started session down before returning.
func (s *Session) Start(ctx context.Context) error {
	if err := s.Projector.RefreshCatalog(ctx); err != nil {
		return err
	}
	if err := s.Projector.RefreshWallet(ctx); err != nil {
		return err
	}
	if err := s.Projector.RefreshBadges(ctx); err != nil {
		return err
	}
	if products := s.Projector.Snapshot().Products; len(products) > 0 {
		if err := s.Projector.RefreshReviews(ctx, products[0].Code); err != nil {
			return err
		}
	}

	if err := s.Subscriber.Start(ctx); err != nil {
		s.Close()
		return err
	}
	logger.Infof("session started for %s", s.Actor)
	return nil
}

// Close is idempotent and safe on every exit path.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.Subscriber.Close()
	logger.Infof("session closed for %s", s.Actor)
}
