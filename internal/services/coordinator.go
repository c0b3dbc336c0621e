package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coffeechain/coffeechain-backend/internal/ledger"
	"github.com/coffeechain/coffeechain-backend/internal/models"
	"github.com/coffeechain/coffeechain-backend/internal/utils"
	"github.com/coffeechain/coffeechain-backend/pkg/logger"
)

// TxState is the coordinator's position in the estimate → confirm → submit →
// await-inclusion lifecycle. Exactly one user intent occupies the machine at
// a time.
type TxState int

const (
	StateIdle TxState = iota
	StateEstimating
	StateAwaitingConfirmation
	StateSubmitting
	StateAwaitingInclusion
	StateReconciling
	StateFailed
)

func (s TxState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEstimating:
		return "estimating"
	case StateAwaitingConfirmation:
		return "awaiting confirmation"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingInclusion:
		return "awaiting inclusion"
	case StateReconciling:
		return "reconciling"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome tells the user what to assume about chain state after a failure.
// The two cases need different guidance and must never be conflated.
type Outcome int

const (
	// OutcomeNothingHappened: the failure occurred before anything was
	// durably submitted; retrying the whole intent is safe.
	OutcomeNothingHappened Outcome = iota
	// OutcomeUnknown: the operation may or may not have landed; the user
	// must re-check state before retrying.
	OutcomeUnknown
)

type TxError struct {
	State   TxState
	Outcome Outcome
	Err     error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction failed while %s: %v", e.State, e.Err)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

type IntentKind int

const (
	IntentPurchase IntentKind = iota
	IntentReview
)

// Intent freezes a user request together with the exact call that was
// estimated, so the submission cannot drift from what the user confirmed.
type Intent struct {
	Kind        IntentKind
	Call        models.Call
	ProductCode string
	Score       int
	Text        string
}

var (
	ErrBusy                    = errors.New("another operation is in flight")
	ErrNotAwaitingConfirmation = errors.New("no operation awaiting confirmation")
	ErrNotFailed               = errors.New("coordinator has not failed")
)

// Coordinator owns the single-flight transaction state machine for one
// actor's session. It never retries a submission: retrying after a timeout
// risks double-submission, so failures are surfaced, not papered over.
type Coordinator struct {
	estimator *Estimator
	gateway   *ledger.Gateway
	projector *Projector

	mu       sync.Mutex
	state    TxState
	intent   *Intent
	estimate *models.CostEstimate
	lastErr  *TxError
}

func NewCoordinator(estimator *Estimator, gateway *ledger.Gateway, projector *Projector) *Coordinator {
	return &Coordinator{
		estimator: estimator,
		gateway:   gateway,
		projector: projector,
		state:     StateIdle,
	}
}

func (c *Coordinator) lock()   { c.mu.Lock() }
func (c *Coordinator) unlock() { c.mu.Unlock() }

func (c *Coordinator) State() TxState {
	c.lock()
	defer c.unlock()
	return c.state
}

func (c *Coordinator) Estimate() *models.CostEstimate {
	c.lock()
	defer c.unlock()
	return c.estimate
}

func (c *Coordinator) PendingIntent() *Intent {
	c.lock()
	defer c.unlock()
	if c.intent == nil {
		return nil
	}
	intent := *c.intent
	// Copy the argument slice too; a caller writing through the copy must
	// not be able to change what gets submitted.
	intent.Call.Args = append([]interface{}(nil), c.intent.Call.Args...)
	return &intent
}

func (c *Coordinator) LastError() *TxError {
	c.lock()
	defer c.unlock()
	return c.lastErr
}

// BeginPurchase estimates buying the product at the price frozen in the
// product snapshot. If the price changes before submission the ledger
// rejects with a revert, which is surfaced, never silently re-priced.
func (c *Coordinator) BeginPurchase(ctx context.Context, product models.Product) (*models.CostEstimate, error) {
	if product.Code == "" {
		return nil, errors.New("no product selected")
	}
	if product.UnitPrice == nil {
		return nil, errors.New("product has no price")
	}
	return c.begin(ctx, &Intent{
		Kind:        IntentPurchase,
		Call:        c.gateway.PurchaseCall(product),
		ProductCode: product.Code,
	})
}

// BeginReview validates client-side first, as a fast fail; the ledger stays
// the authority on the score range.
func (c *Coordinator) BeginReview(ctx context.Context, code string, score int, text string) (*models.CostEstimate, error) {
	if code == "" {
		return nil, errors.New("select a product first")
	}
	text = utils.SanitizeString(text)
	if text == "" {
		return nil, errors.New("review text cannot be empty")
	}
	if !utils.IsValidScore(score) {
		return nil, errors.New("score must be between 1 and 5")
	}
	return c.begin(ctx, &Intent{
		Kind:        IntentReview,
		Call:        c.gateway.ReviewCall(code, score, text),
		ProductCode: code,
		Score:       score,
		Text:        text,
	})
}

func (c *Coordinator) begin(ctx context.Context, intent *Intent) (*models.CostEstimate, error) {
	c.lock()
	if c.state != StateIdle {
		c.unlock()
		return nil, ErrBusy
	}
	c.state = StateEstimating
	c.intent = intent
	c.lastErr = nil
	c.unlock()

	estimate, err := c.estimator.Estimate(ctx, intent.Call)

	c.lock()
	defer c.unlock()
	if err != nil {
		return nil, c.fail(StateEstimating, OutcomeNothingHappened, err)
	}
	c.state = StateAwaitingConfirmation
	c.estimate = estimate
	return estimate, nil
}

// Confirm submits the frozen intent, waits out inclusion and reconciles
// derived state. Only an explicit user confirmation reaches here.
func (c *Coordinator) Confirm(ctx context.Context) error {
	c.lock()
	if c.state != StateAwaitingConfirmation {
		c.unlock()
		return ErrNotAwaitingConfirmation
	}
	intent := c.intent
	c.state = StateSubmitting
	c.unlock()

	handle, err := c.gateway.Submit(ctx, intent.Call)
	if err != nil {
		outcome := OutcomeNothingHappened
		if ledger.KindOf(err) == ledger.KindUnreachable {
			// The submission may have left this process; its fate
			// cannot be known.
			outcome = OutcomeUnknown
		}
		c.lock()
		defer c.unlock()
		return c.fail(StateSubmitting, outcome, err)
	}

	c.lock()
	c.state = StateAwaitingInclusion
	c.unlock()

	if _, err := c.gateway.AwaitInclusion(ctx, handle); err != nil {
		c.lock()
		defer c.unlock()
		return c.fail(StateAwaitingInclusion, OutcomeUnknown, err)
	}

	c.lock()
	c.state = StateReconciling
	c.unlock()

	c.reconcile(ctx, intent)

	c.lock()
	defer c.unlock()
	c.state = StateIdle
	c.intent = nil
	c.estimate = nil
	return nil
}

// Cancel abandons an estimated-but-unconfirmed intent. Nothing has been
// submitted yet, so there are zero side effects. Once Submitting has begun
// the in-flight operation cannot be cancelled.
func (c *Coordinator) Cancel() error {
	c.lock()
	defer c.unlock()
	if c.state != StateAwaitingConfirmation {
		return ErrNotAwaitingConfirmation
	}
	c.state = StateIdle
	c.intent = nil
	c.estimate = nil
	return nil
}

// Reset acknowledges a failure and returns the machine to Idle. Calling it
// while already Idle is a no-op.
func (c *Coordinator) Reset() error {
	c.lock()
	defer c.unlock()
	switch c.state {
	case StateIdle:
		return nil
	case StateFailed:
		c.state = StateIdle
		c.intent = nil
		c.estimate = nil
		return nil
	default:
		return ErrNotFailed
	}
}

// fail must be called with the lock held.
func (c *Coordinator) fail(at TxState, outcome Outcome, err error) *TxError {
	c.state = StateFailed
	c.estimate = nil
	c.lastErr = &TxError{State: at, Outcome: outcome, Err: err}
	return c.lastErr
}

// reconcile refreshes the derived state the completed operation affects.
// The operation is already durably included; a refresh failure here only
// delays convergence (the next notification re-reads), so it is logged and
// not reported as a transaction failure.
func (c *Coordinator) reconcile(ctx context.Context, intent *Intent) {
	var errs []error
	switch intent.Kind {
	case IntentPurchase:
		errs = append(errs, c.projector.RefreshCatalog(ctx))
		errs = append(errs, c.projector.RefreshWallet(ctx))
	case IntentReview:
		errs = append(errs, c.projector.RefreshReviews(ctx, intent.ProductCode))
		errs = append(errs, c.projector.RefreshWallet(ctx))
		errs = append(errs, c.projector.RefreshBadges(ctx))
	}
	for _, err := range errs {
		if err != nil {
			logger.Warnf("post-inclusion refresh failed: %v", err)
		}
	}
}
