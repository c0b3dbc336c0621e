package ledger

import (
	"context"
	"math/big"
	"sync"
)

// Contract method and event names understood by the four logical contracts.
const (
	MethodGetAllProducts = "getAllProducts"
	MethodGetProduct     = "getProduct"
	MethodAddProduct     = "addProduct"
	MethodDeleteProduct  = "deleteProduct"
	MethodPurchase       = "purchase"

	MethodPostReview      = "postReview"
	MethodGetReview       = "getReview"
	MethodGetTotalReviews = "getTotalReviews"
	MethodReviewCountOf   = "reviewCountOf"

	MethodBalanceOf = "balanceOf"

	MethodBadgesOf = "badgesOf"
	MethodTokenURI = "tokenURI"

	EventProductAdded     = "ProductAdded"
	EventProductPurchased = "ProductPurchased"
	EventProductDeleted   = "ProductDeleted"
	EventReviewPosted     = "ReviewPosted"
)

// PendingHandle identifies a submitted but not yet confirmed operation.
type PendingHandle string

// Receipt proves durable inclusion of a submitted operation.
type Receipt struct {
	Handle   PendingHandle
	Contract string
	Method   string
	Sequence uint64
}

// Event is a ledger-emitted change notification.
type Event struct {
	Contract    string
	Name        string
	ProductCode string
	Actor       string
}

// Client is the boundary to the ledger. Reads are side-effect-free and may
// be retried; Submit is not idempotent and must never be retried blindly.
// Implementations are bound to a single signing actor.
type Client interface {
	Read(ctx context.Context, contract, method string, args ...interface{}) (interface{}, error)
	Submit(ctx context.Context, contract, method string, value *big.Int, args ...interface{}) (PendingHandle, error)
	AwaitInclusion(ctx context.Context, handle PendingHandle) (*Receipt, error)
	EstimateUnits(ctx context.Context, contract, method string, value *big.Int, args ...interface{}) (uint64, error)
	UnitPrice(ctx context.Context) (*big.Int, error)
	Subscribe(contract, event string) (*Subscription, error)
}

// Subscription is one long-lived (contract, event) feed. Close is idempotent
// and safe to call from session teardown on every exit path.
type Subscription struct {
	contract string
	event    string
	ch       chan Event
	detach   func(*Subscription)

	mu     sync.Mutex
	closed bool
}

func newSubscription(contract, event string, detach func(*Subscription)) *Subscription {
	return &Subscription{
		contract: contract,
		event:    event,
		ch:       make(chan Event, 16),
		detach:   detach,
	}
}

// Events yields notifications until Close. The channel is closed on Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.detach != nil {
		s.detach(s)
	}
	close(s.ch)
}

// deliver drops the event when the subscriber is closed or saturated;
// consumers reconcile via re-reads, so a dropped notification only delays
// convergence.
func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
	}
}
