package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/coffeechain/coffeechain-backend/internal/models"
)

// Addresses locates the four logical contracts.
type Addresses struct {
	Catalog string
	Reviews string
	Token   string
	Badge   string
}

// Gateway is the typed wrapper over a Client. It owns decoding; callers
// never see raw read results.
type Gateway struct {
	client Client
	addrs  Addresses
}

func NewGateway(client Client, addrs Addresses) *Gateway {
	return &Gateway{client: client, addrs: addrs}
}

// --------------------------- call builders ---------------------------
//
// A Call carries the exact frozen arguments, so the estimate and the
// submission cannot diverge.

func (g *Gateway) PurchaseCall(p models.Product) models.Call {
	return models.Call{
		Contract: g.addrs.Catalog,
		Method:   MethodPurchase,
		Args:     []interface{}{p.Code},
		Value:    new(big.Int).Set(p.UnitPrice),
	}
}

func (g *Gateway) ReviewCall(code string, score int, text string) models.Call {
	return models.Call{
		Contract: g.addrs.Reviews,
		Method:   MethodPostReview,
		Args:     []interface{}{code, score, text},
	}
}

func (g *Gateway) AddProductCall(name string, unitPrice *big.Int, imageRef string) models.Call {
	return models.Call{
		Contract: g.addrs.Catalog,
		Method:   MethodAddProduct,
		Args:     []interface{}{name, new(big.Int).Set(unitPrice), imageRef},
	}
}

func (g *Gateway) DeleteProductCall(code string) models.Call {
	return models.Call{
		Contract: g.addrs.Catalog,
		Method:   MethodDeleteProduct,
		Args:     []interface{}{code},
	}
}

// --------------------------- submissions ---------------------------

func (g *Gateway) Submit(ctx context.Context, call models.Call) (PendingHandle, error) {
	return g.client.Submit(ctx, call.Contract, call.Method, call.Value, call.Args...)
}

func (g *Gateway) AwaitInclusion(ctx context.Context, handle PendingHandle) (*Receipt, error) {
	return g.client.AwaitInclusion(ctx, handle)
}

// --------------------------- reads ---------------------------

func (g *Gateway) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	v, err := g.client.Read(ctx, g.addrs.Catalog, MethodGetAllProducts)
	if err != nil {
		return nil, err
	}
	products, ok := v.([]models.Product)
	if !ok {
		return nil, fmt.Errorf("catalog: unexpected result type %T", v)
	}
	return products, nil
}

func (g *Gateway) GetProduct(ctx context.Context, code string) (models.Product, error) {
	v, err := g.client.Read(ctx, g.addrs.Catalog, MethodGetProduct, code)
	if err != nil {
		return models.Product{}, err
	}
	product, ok := v.(models.Product)
	if !ok {
		return models.Product{}, fmt.Errorf("catalog: unexpected result type %T", v)
	}
	return product, nil
}

func (g *Gateway) TotalReviews(ctx context.Context) (uint64, error) {
	v, err := g.client.Read(ctx, g.addrs.Reviews, MethodGetTotalReviews)
	if err != nil {
		return 0, err
	}
	return asUint64(v, "reviews")
}

func (g *Gateway) GetReview(ctx context.Context, index uint64) (models.Review, error) {
	v, err := g.client.Read(ctx, g.addrs.Reviews, MethodGetReview, index)
	if err != nil {
		return models.Review{}, err
	}
	review, ok := v.(models.Review)
	if !ok {
		return models.Review{}, fmt.Errorf("reviews: unexpected result type %T", v)
	}
	return review, nil
}

func (g *Gateway) ReviewCountOf(ctx context.Context, actor string) (uint64, error) {
	v, err := g.client.Read(ctx, g.addrs.Reviews, MethodReviewCountOf, actor)
	if err != nil {
		return 0, err
	}
	return asUint64(v, "reviews")
}

func (g *Gateway) LoyaltyBalanceOf(ctx context.Context, actor string) (*big.Int, error) {
	v, err := g.client.Read(ctx, g.addrs.Token, MethodBalanceOf, actor)
	if err != nil {
		return nil, err
	}
	balance, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("token: unexpected result type %T", v)
	}
	return balance, nil
}

func (g *Gateway) BadgesOf(ctx context.Context, actor string) ([]uint64, error) {
	v, err := g.client.Read(ctx, g.addrs.Badge, MethodBadgesOf, actor)
	if err != nil {
		return nil, err
	}
	ids, ok := v.([]uint64)
	if !ok {
		return nil, fmt.Errorf("badge: unexpected result type %T", v)
	}
	return ids, nil
}

func (g *Gateway) BadgeMetadataRef(ctx context.Context, tokenID uint64) (string, error) {
	v, err := g.client.Read(ctx, g.addrs.Badge, MethodTokenURI, tokenID)
	if err != nil {
		return "", err
	}
	ref, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("badge: unexpected result type %T", v)
	}
	return ref, nil
}

// --------------------------- subscriptions ---------------------------

func (g *Gateway) SubscribeCatalog(event string) (*Subscription, error) {
	return g.client.Subscribe(g.addrs.Catalog, event)
}

func (g *Gateway) SubscribeReviews(event string) (*Subscription, error) {
	return g.client.Subscribe(g.addrs.Reviews, event)
}

func asUint64(v interface{}, contract string) (uint64, error) {
	n, ok := v.(uint64)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected result type %T", contract, v)
	}
	return n, nil
}
