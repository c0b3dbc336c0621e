package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshCatalogExcludesTombstones(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	proj := env.session.Projector

	latte := env.addProduct(t, "Latte", 1000)
	espresso := env.addProduct(t, "Espresso", 2000)
	env.deleteProduct(t, espresso)

	require.NoError(t, proj.RefreshCatalog(ctx))

	snap := proj.Snapshot()
	require.Len(t, snap.Products, 1)
	assert.Equal(t, latte, snap.Products[0].Code)
	assert.Equal(t, env.cfg.ContentGatewayURL+"/ipfs/Latte-image", snap.Products[0].ImageURL)
}

func TestRefreshReviewsFiltersByProduct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	proj := env.session.Projector

	latte := env.addProduct(t, "Latte", 1000)
	mocha := env.addProduct(t, "Mocha", 1500)
	env.postReviewAs(t, testOther, latte, 5, "lovely")
	env.postReviewAs(t, testOther, mocha, 2, "meh")
	env.postReviewAs(t, testUser, latte, 4, "solid")

	require.NoError(t, proj.RefreshReviews(ctx, latte))

	snap := proj.Snapshot()
	assert.Equal(t, latte, snap.ViewedProduct)
	require.Len(t, snap.Reviews, 2)
	for _, review := range snap.Reviews {
		assert.Equal(t, latte, review.ProductCode)
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	proj := env.session.Projector

	latte := env.addProduct(t, "Latte", 1000)
	for i := 0; i < 5; i++ {
		env.postReviewAs(t, testUser, latte, 5, fmt.Sprintf("review %d", i))
	}

	refresh := func() {
		require.NoError(t, proj.RefreshCatalog(ctx))
		require.NoError(t, proj.RefreshReviews(ctx, latte))
		require.NoError(t, proj.RefreshWallet(ctx))
		require.NoError(t, proj.RefreshBadges(ctx))
	}

	refresh()
	first := proj.Snapshot()
	refresh()
	second := proj.Snapshot()

	assert.Equal(t, first, second)
}

func TestWalletBadgeUnlockedExactlyAtThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	proj := env.session.Projector

	latte := env.addProduct(t, "Latte", 1000)

	for i := 1; i <= 9; i++ {
		env.postReviewAs(t, testUser, latte, 4, "review")
		require.NoError(t, proj.RefreshWallet(ctx))

		snap := proj.Snapshot()
		assert.Equal(t, uint64(i), snap.Wallet.ReviewCount)
		assert.Equal(t, int64(i), snap.Wallet.LoyaltyBalance.Int64())
		assert.Equal(t, i == 5, snap.Wallet.BadgeUnlocked, "after %d reviews", i)
	}

	require.NoError(t, proj.RefreshBadges(ctx))
	snap := proj.Snapshot()
	require.Len(t, snap.Badges, 1)
	assert.Equal(t, "Reviewer Tier 1", snap.Badges[0].Metadata.Name)
	assert.Equal(t, env.cfg.ContentGatewayURL+"/ipfs/badge-image-1", snap.Badges[0].Metadata.Image)
}

func TestRefreshBadgesDegradesSingleFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Point the session's resolver at a server that only knows tier 1, so
	// the tier 2 document fails to resolve.
	latte := env.addProduct(t, "Latte", 1000)
	for i := 0; i < 10; i++ {
		env.postReviewAs(t, testUser, latte, 5, "review")
	}

	ipfs := NewIPFSService(env.cfg.ContentGatewayURL + "/missing")
	proj := NewProjector(env.session.Gateway, ipfs, testUser)

	// Both badges are listed; neither metadata document resolves, so both
	// degrade to placeholders rather than aborting the refresh.
	require.NoError(t, proj.RefreshBadges(ctx))
	snap := proj.Snapshot()
	require.Len(t, snap.Badges, 2)
	for _, badge := range snap.Badges {
		assert.NotZero(t, badge.TokenID)
		assert.NotEmpty(t, badge.MetadataRef)
		assert.Empty(t, badge.Metadata.Image)
	}
}

func TestFailedRefreshLeavesSnapshotUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	proj := env.session.Projector

	env.addProduct(t, "Latte", 1000)
	require.NoError(t, proj.RefreshCatalog(ctx))
	before := proj.Snapshot()

	env.mem.FailNextRead(fmt.Errorf("rpc down"))
	require.Error(t, proj.RefreshCatalog(ctx))

	assert.Equal(t, before, proj.Snapshot())
}
