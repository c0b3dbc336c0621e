package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeechain/coffeechain-backend/internal/ledger"
)

func TestSubscriberStartIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sub := env.session.Subscriber

	require.NoError(t, sub.Start(ctx))
	require.NoError(t, sub.Start(ctx))

	sub.mu.Lock()
	count := len(sub.subs)
	sub.mu.Unlock()
	assert.Equal(t, 4, count)

	sub.Close()
	sub.Close()
}

func TestCatalogEventRefreshesProductList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.session.Start(ctx))

	env.addProduct(t, "Latte", 1000)
	require.Eventually(t, func() bool {
		return len(env.session.Projector.Snapshot().Products) == 1
	}, time.Second, 10*time.Millisecond)

	mocha := env.addProduct(t, "Mocha", 2000)
	require.Eventually(t, func() bool {
		return len(env.session.Projector.Snapshot().Products) == 2
	}, time.Second, 10*time.Millisecond)

	env.deleteProduct(t, mocha)
	require.Eventually(t, func() bool {
		return len(env.session.Projector.Snapshot().Products) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRefreshFailureKeepsSubscriptionAlive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.session.Start(ctx))

	// The refresh triggered by the first event fails and is dropped; the
	// feed stays live and the next event re-reads everything.
	env.mem.FailNextRead(ledger.Unreachable("getAllProducts", "gateway down"))
	env.addProduct(t, "Latte", 1000)
	env.addProduct(t, "Mocha", 2000)

	require.Eventually(t, func() bool {
		return len(env.session.Projector.Snapshot().Products) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestOtherActorsReviewUpdatesListNotCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	latte := env.addProduct(t, "Latte", 1000)
	require.NoError(t, env.session.Start(ctx))
	require.NoError(t, env.session.Projector.RefreshReviews(ctx, latte))

	env.postReviewAs(t, testOther, latte, 4, "decent roast")

	// The shared review list converges.
	require.Eventually(t, func() bool {
		return len(env.session.Projector.Snapshot().Reviews) == 1
	}, time.Second, 10*time.Millisecond)

	// The viewer wrote nothing; their counters stay at zero.
	snap := env.session.Projector.Snapshot()
	assert.Equal(t, uint64(0), snap.Wallet.ReviewCount)
	assert.Equal(t, int64(0), snap.Wallet.LoyaltyBalance.Int64())
}

func TestOwnReviewUpdatesCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	latte := env.addProduct(t, "Latte", 1000)
	require.NoError(t, env.session.Start(ctx))

	// Uppercased wallet: the notification actor must still match.
	env.postReviewAs(t, "0x70997970C51812DC3A010C7D01B50E0D17DC79C8", latte, 5, "my own review")

	require.Eventually(t, func() bool {
		return env.session.Projector.Snapshot().Wallet.ReviewCount == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), env.session.Projector.Snapshot().Wallet.LoyaltyBalance.Int64())
}

func TestReviewOnUnviewedProductLeavesListAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	latte := env.addProduct(t, "Latte", 1000)
	mocha := env.addProduct(t, "Mocha", 2000)
	require.NoError(t, env.session.Start(ctx))
	require.NoError(t, env.session.Projector.RefreshReviews(ctx, latte))

	env.postReviewAs(t, testOther, mocha, 3, "different product")

	time.Sleep(50 * time.Millisecond)
	snap := env.session.Projector.Snapshot()
	assert.Equal(t, latte, snap.ViewedProduct)
	assert.Empty(t, snap.Reviews)
}
