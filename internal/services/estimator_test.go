package services

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeechain/coffeechain-backend/internal/ledger"
)

func TestEstimatePurchaseIncludesValueTransfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	latte := env.addProduct(t, "Latte", 1000)
	product, err := env.session.Gateway.GetProduct(ctx, latte)
	require.NoError(t, err)

	estimate, err := env.session.Estimator.Estimate(ctx, env.session.Gateway.PurchaseCall(product))
	require.NoError(t, err)

	assert.Greater(t, estimate.ResourceUnits, uint64(0))
	expectedResource := new(big.Int).Mul(new(big.Int).SetUint64(estimate.ResourceUnits), estimate.UnitPrice)
	assert.Equal(t, 0, estimate.ResourceCost.Cmp(expectedResource))
	expectedTotal := new(big.Int).Add(expectedResource, big.NewInt(1000))
	assert.Equal(t, 0, estimate.TotalCost.Cmp(expectedTotal))
}

func TestEstimateReviewHasNoValueTransfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	latte := env.addProduct(t, "Latte", 1000)
	estimate, err := env.session.Estimator.Estimate(ctx, env.session.Gateway.ReviewCall(latte, 5, "great"))
	require.NoError(t, err)

	assert.Equal(t, 0, estimate.TotalCost.Cmp(estimate.ResourceCost))
}

func TestEstimateSurfacesWouldBeRevert(t *testing.T) {
	env := newTestEnv(t)

	// An out-of-range score reverts at estimation time, before the user
	// commits, with the same semantics submission would have.
	call := env.session.Gateway.ReviewCall(ledger.DeriveCode("Ghost"), 7, "bad score")
	_, err := env.session.Estimator.Estimate(context.Background(), call)
	require.Error(t, err)
	assert.True(t, ledger.IsKind(err, ledger.KindReverted))
}
