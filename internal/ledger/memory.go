package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/coffeechain/coffeechain-backend/internal/models"
)

// Memory is an in-process ledger implementing the four contracts with the
// same business rules the chain enforces: owner-gated catalog writes,
// permanently burned product codes, exact-value purchases, score bounds,
// one loyalty unit per review and tier badges up to the cap. It backs tests
// and local development; sessions talk to it through Bind.
type Memory struct {
	mu        sync.Mutex
	addrs     Addresses
	owner     string
	unitPrice *big.Int

	funds    map[string]*big.Int
	products map[string]models.Product
	order    []string
	reviews  []models.Review
	counts   map[string]uint64
	loyalty  map[string]*big.Int
	badges   map[string][]badgeEntry
	tiers    map[string]map[uint64]bool
	nextID   uint64

	seq      uint64
	receipts map[PendingHandle]*Receipt
	subs     map[string]map[*Subscription]struct{}

	readErr      error
	estimateErr  error
	submitErr    error
	inclusionErr error
}

type badgeEntry struct {
	tokenID uint64
	tier    uint64
	ref     string
}

const defaultUnitPrice = 1_000_000_000

// DeriveCode computes the immutable catalog code for a product name
// (keccak-256 over the raw name bytes, hex encoded).
func DeriveCode(name string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

func NewMemory(owner string, addrs Addresses) *Memory {
	return &Memory{
		addrs:     addrs,
		owner:     strings.ToLower(owner),
		unitPrice: big.NewInt(defaultUnitPrice),
		funds:     make(map[string]*big.Int),
		products:  make(map[string]models.Product),
		counts:    make(map[string]uint64),
		loyalty:   make(map[string]*big.Int),
		badges:    make(map[string][]badgeEntry),
		tiers:     make(map[string]map[uint64]bool),
		receipts:  make(map[PendingHandle]*Receipt),
		subs:      make(map[string]map[*Subscription]struct{}),
	}
}

// Bind returns a Client signing as the given actor. All bound clients share
// the same chain state.
func (m *Memory) Bind(actor string) Client {
	return &boundClient{mem: m, actor: strings.ToLower(actor)}
}

// SetFunds overrides an actor's native balance. Actors otherwise start with
// a large default so value transfers succeed in tests.
func (m *Memory) SetFunds(actor string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funds[strings.ToLower(actor)] = new(big.Int).Set(amount)
}

func (m *Memory) FundsOf(actor string) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.fundsOf(strings.ToLower(actor)))
}

// Failure injection, one shot each.

func (m *Memory) FailNextRead(err error)      { m.mu.Lock(); m.readErr = err; m.mu.Unlock() }
func (m *Memory) FailNextEstimate(err error)  { m.mu.Lock(); m.estimateErr = err; m.mu.Unlock() }
func (m *Memory) FailNextSubmit(err error)    { m.mu.Lock(); m.submitErr = err; m.mu.Unlock() }
func (m *Memory) FailNextInclusion(err error) { m.mu.Lock(); m.inclusionErr = err; m.mu.Unlock() }

type boundClient struct {
	mem   *Memory
	actor string
}

func (c *boundClient) Read(ctx context.Context, contract, method string, args ...interface{}) (interface{}, error) {
	return c.mem.read(ctx, contract, method, args)
}

func (c *boundClient) Submit(ctx context.Context, contract, method string, value *big.Int, args ...interface{}) (PendingHandle, error) {
	return c.mem.submit(ctx, c.actor, contract, method, value, args)
}

func (c *boundClient) AwaitInclusion(ctx context.Context, handle PendingHandle) (*Receipt, error) {
	return c.mem.awaitInclusion(ctx, handle)
}

func (c *boundClient) EstimateUnits(ctx context.Context, contract, method string, value *big.Int, args ...interface{}) (uint64, error) {
	return c.mem.estimateUnits(ctx, c.actor, contract, method, value, args)
}

func (c *boundClient) UnitPrice(ctx context.Context) (*big.Int, error) {
	c.mem.mu.Lock()
	defer c.mem.mu.Unlock()
	return new(big.Int).Set(c.mem.unitPrice), nil
}

func (c *boundClient) Subscribe(contract, event string) (*Subscription, error) {
	return c.mem.subscribe(contract, event)
}

// --------------------------- reads ---------------------------

func (m *Memory) read(ctx context.Context, contract, method string, args []interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unreachable(method, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.readErr != nil {
		err := m.readErr
		m.readErr = nil
		return nil, err
	}

	switch contract {
	case m.addrs.Catalog:
		return m.readCatalog(method, args)
	case m.addrs.Reviews:
		return m.readReviews(method, args)
	case m.addrs.Token:
		return m.readToken(method, args)
	case m.addrs.Badge:
		return m.readBadge(method, args)
	}
	return nil, Unreachable(method, "unknown contract "+contract)
}

func (m *Memory) readCatalog(method string, args []interface{}) (interface{}, error) {
	switch method {
	case MethodGetAllProducts:
		out := make([]models.Product, 0, len(m.order))
		for _, code := range m.order {
			out = append(out, m.products[code].Clone())
		}
		return out, nil
	case MethodGetProduct:
		code, ok := stringArg(args, 0)
		if !ok {
			return nil, Reverted(method, "bad argument")
		}
		p, exists := m.products[code]
		if !exists || !p.Exists {
			return nil, Reverted(method, "unknown product")
		}
		return p.Clone(), nil
	}
	return nil, Reverted(method, "unknown method")
}

func (m *Memory) readReviews(method string, args []interface{}) (interface{}, error) {
	switch method {
	case MethodGetTotalReviews:
		return uint64(len(m.reviews)), nil
	case MethodGetReview:
		index, ok := uintArg(args, 0)
		if !ok {
			return nil, Reverted(method, "bad argument")
		}
		if index >= uint64(len(m.reviews)) {
			return nil, Reverted(method, "review index out of range")
		}
		return m.reviews[index], nil
	case MethodReviewCountOf:
		actor, ok := stringArg(args, 0)
		if !ok {
			return nil, Reverted(method, "bad argument")
		}
		return m.counts[strings.ToLower(actor)], nil
	}
	return nil, Reverted(method, "unknown method")
}

func (m *Memory) readToken(method string, args []interface{}) (interface{}, error) {
	if method != MethodBalanceOf {
		return nil, Reverted(method, "unknown method")
	}
	actor, ok := stringArg(args, 0)
	if !ok {
		return nil, Reverted(method, "bad argument")
	}
	balance := m.loyalty[strings.ToLower(actor)]
	if balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

func (m *Memory) readBadge(method string, args []interface{}) (interface{}, error) {
	switch method {
	case MethodBadgesOf:
		actor, ok := stringArg(args, 0)
		if !ok {
			return nil, Reverted(method, "bad argument")
		}
		entries := m.badges[strings.ToLower(actor)]
		ids := make([]uint64, 0, len(entries))
		for _, b := range entries {
			ids = append(ids, b.tokenID)
		}
		return ids, nil
	case MethodTokenURI:
		id, ok := uintArg(args, 0)
		if !ok {
			return nil, Reverted(method, "bad argument")
		}
		for _, entries := range m.badges {
			for _, b := range entries {
				if b.tokenID == id {
					return b.ref, nil
				}
			}
		}
		return nil, Reverted(method, "unknown token")
	}
	return nil, Reverted(method, "unknown method")
}

// --------------------------- submissions ---------------------------

func (m *Memory) estimateUnits(ctx context.Context, actor, contract, method string, value *big.Int, args []interface{}) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, Unreachable(method, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.estimateErr != nil {
		err := m.estimateErr
		m.estimateErr = nil
		return 0, err
	}
	// Dry run against current state so malformed operations fail here,
	// before the user commits.
	if err := m.validate(actor, contract, method, value, args); err != nil {
		return 0, err
	}
	units := uint64(21000) + uint64(len(args))*1000
	for _, a := range args {
		if s, ok := a.(string); ok {
			units += uint64(len(s)) * 16
		}
	}
	return units, nil
}

func (m *Memory) submit(ctx context.Context, actor, contract, method string, value *big.Int, args []interface{}) (PendingHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", Unreachable(method, err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitErr != nil {
		err := m.submitErr
		m.submitErr = nil
		return "", err
	}
	if err := m.validate(actor, contract, method, value, args); err != nil {
		return "", err
	}

	events := m.apply(actor, contract, method, value, args)

	m.seq++
	handle := PendingHandle(fmt.Sprintf("0x%08x", m.seq))
	m.receipts[handle] = &Receipt{
		Handle:   handle,
		Contract: contract,
		Method:   method,
		Sequence: m.seq,
	}
	for _, ev := range events {
		for sub := range m.subs[subKey(ev.Contract, ev.Name)] {
			sub.deliver(ev)
		}
	}
	return handle, nil
}

func (m *Memory) awaitInclusion(ctx context.Context, handle PendingHandle) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, Unreachable("awaitInclusion", err.Error())
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inclusionErr != nil {
		err := m.inclusionErr
		m.inclusionErr = nil
		return nil, err
	}
	receipt, ok := m.receipts[handle]
	if !ok {
		return nil, Unreachable("awaitInclusion", "unknown handle "+string(handle))
	}
	return receipt, nil
}

func (m *Memory) validate(actor, contract, method string, value *big.Int, args []interface{}) error {
	switch contract {
	case m.addrs.Catalog:
		return m.validateCatalog(actor, method, value, args)
	case m.addrs.Reviews:
		return m.validateReviews(method, value, args)
	}
	return Reverted(method, "unknown contract "+contract)
}

func (m *Memory) validateCatalog(actor, method string, value *big.Int, args []interface{}) error {
	switch method {
	case MethodAddProduct:
		name, ok := stringArg(args, 0)
		if !ok || name == "" {
			return Reverted(method, "bad product name")
		}
		if len(args) < 3 {
			return Reverted(method, "bad argument count")
		}
		if _, ok := args[1].(*big.Int); !ok {
			return Reverted(method, "bad unit price")
		}
		if actor != m.owner {
			return Reverted(method, "not catalog owner")
		}
		// A tombstoned entry still occupies its code forever.
		if _, taken := m.products[DeriveCode(name)]; taken {
			return Reverted(method, "duplicate product code")
		}
		return nil
	case MethodDeleteProduct:
		code, ok := stringArg(args, 0)
		if !ok {
			return Reverted(method, "bad argument")
		}
		if actor != m.owner {
			return Reverted(method, "not catalog owner")
		}
		p, exists := m.products[code]
		if !exists || !p.Exists {
			return Reverted(method, "unknown product")
		}
		return nil
	case MethodPurchase:
		code, ok := stringArg(args, 0)
		if !ok {
			return Reverted(method, "bad argument")
		}
		p, exists := m.products[code]
		if !exists || !p.Exists {
			return Reverted(method, "unknown product")
		}
		if value == nil || value.Cmp(p.UnitPrice) != 0 {
			return Reverted(method, "wrong value sent")
		}
		if m.fundsOf(actor).Cmp(value) < 0 {
			return InsufficientFunds(method, "balance below purchase price")
		}
		return nil
	}
	return Reverted(method, "unknown method")
}

func (m *Memory) validateReviews(method string, value *big.Int, args []interface{}) error {
	if method != MethodPostReview {
		return Reverted(method, "unknown method")
	}
	if value != nil && value.Sign() != 0 {
		return Reverted(method, "unexpected value")
	}
	if _, ok := stringArg(args, 0); !ok {
		return Reverted(method, "bad argument")
	}
	score, ok := intArg(args, 1)
	if !ok || score < models.MinScore || score > models.MaxScore {
		return Reverted(method, "score out of range")
	}
	return nil
}

// apply mutates state after validation and returns the events to emit.
func (m *Memory) apply(actor, contract, method string, value *big.Int, args []interface{}) []Event {
	switch method {
	case MethodAddProduct:
		name := args[0].(string)
		code := DeriveCode(name)
		m.products[code] = models.Product{
			Code:      code,
			Name:      name,
			UnitPrice: new(big.Int).Set(args[1].(*big.Int)),
			ImageRef:  args[2].(string),
			Exists:    true,
		}
		m.order = append(m.order, code)
		return []Event{{Contract: contract, Name: EventProductAdded, ProductCode: code, Actor: actor}}

	case MethodDeleteProduct:
		code := args[0].(string)
		p := m.products[code]
		p.Exists = false
		m.products[code] = p
		return []Event{{Contract: contract, Name: EventProductDeleted, ProductCode: code, Actor: actor}}

	case MethodPurchase:
		code := args[0].(string)
		m.funds[actor] = new(big.Int).Sub(m.fundsOf(actor), value)
		m.funds[m.owner] = new(big.Int).Add(m.fundsOf(m.owner), value)
		return []Event{{Contract: contract, Name: EventProductPurchased, ProductCode: code, Actor: actor}}

	case MethodPostReview:
		code := args[0].(string)
		score, _ := intArg(args, 1)
		text := args[2].(string)
		m.reviews = append(m.reviews, models.Review{
			Reviewer:      actor,
			ProductCode:   code,
			Score:         score,
			Text:          text,
			SequenceIndex: uint64(len(m.reviews)),
		})
		m.counts[actor]++
		if m.loyalty[actor] == nil {
			m.loyalty[actor] = big.NewInt(0)
		}
		m.loyalty[actor].Add(m.loyalty[actor], big.NewInt(1))
		m.maybeMintBadge(actor)
		return []Event{{Contract: contract, Name: EventReviewPosted, ProductCode: code, Actor: actor}}
	}
	return nil
}

func (m *Memory) maybeMintBadge(actor string) {
	count := m.counts[actor]
	if count == 0 || count%models.BadgeThreshold != 0 {
		return
	}
	if len(m.badges[actor]) >= models.BadgeCap {
		return
	}
	tier := count / models.BadgeThreshold
	if m.tiers[actor] == nil {
		m.tiers[actor] = make(map[uint64]bool)
	}
	// One badge per (actor, tier), ever.
	if m.tiers[actor][tier] {
		return
	}
	m.tiers[actor][tier] = true
	m.nextID++
	m.badges[actor] = append(m.badges[actor], badgeEntry{
		tokenID: m.nextID,
		tier:    tier,
		ref:     fmt.Sprintf("ipfs://badge-tier-%d", tier),
	})
}

func (m *Memory) fundsOf(actor string) *big.Int {
	if balance, ok := m.funds[actor]; ok {
		return balance
	}
	// Fresh actors start funded so local flows work out of the box.
	initial := new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(defaultUnitPrice))
	m.funds[actor] = initial
	return initial
}

// --------------------------- subscriptions ---------------------------

func (m *Memory) subscribe(contract, event string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := subKey(contract, event)
	sub := newSubscription(contract, event, func(s *Subscription) {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs[key], s)
	})
	if m.subs[key] == nil {
		m.subs[key] = make(map[*Subscription]struct{})
	}
	m.subs[key][sub] = struct{}{}
	return sub, nil
}

func subKey(contract, event string) string {
	return contract + "/" + event
}

// --------------------------- argument decoding ---------------------------

func stringArg(args []interface{}, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func intArg(args []interface{}, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, ok := args[i].(int)
	return n, ok
}

func uintArg(args []interface{}, i int) (uint64, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, ok := args[i].(uint64)
	return n, ok
}
