package services

import (
	"context"
	"sync"

	"github.com/coffeechain/coffeechain-backend/internal/ledger"
	"github.com/coffeechain/coffeechain-backend/internal/models"
	"github.com/coffeechain/coffeechain-backend/pkg/logger"
)

// Projector recomputes read-only aggregates from raw ledger reads. It never
// mutates ledger state. Each refresh either fully replaces its slice of the
// snapshot or, on failure, leaves it untouched; refreshes are idempotent and
// order-insensitive, so notification delivery order does not matter.
type Projector struct {
	gateway *ledger.Gateway
	ipfs    *IPFSService
	actor   string

	mu   sync.RWMutex
	snap models.Snapshot
}

func NewProjector(gateway *ledger.Gateway, ipfs *IPFSService, actor string) *Projector {
	return &Projector{gateway: gateway, ipfs: ipfs, actor: actor}
}

func (p *Projector) Actor() string {
	return p.actor
}

// Snapshot returns a deep copy; callers never alias projector-owned memory.
func (p *Projector) Snapshot() models.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap.Clone()
}

// ViewedProduct is the product whose reviews are currently projected.
func (p *Projector) ViewedProduct() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap.ViewedProduct
}

// RefreshCatalog replaces the product list. Tombstoned entries are dropped
// and image references are rewritten for display.
func (p *Projector) RefreshCatalog(ctx context.Context) error {
	all, err := p.gateway.GetAllProducts(ctx)
	if err != nil {
		return err
	}
	products := make([]models.Product, 0, len(all))
	for _, product := range all {
		if !product.Exists {
			continue
		}
		product.ImageURL = p.ipfs.ResolveURL(product.ImageRef)
		products = append(products, product)
	}

	p.mu.Lock()
	p.snap.Products = products
	p.mu.Unlock()
	return nil
}

// RefreshReviews replaces the review list with the reviews of one product
// and records it as the viewed product. The review log is global and
// append-only; filtering happens client-side.
func (p *Projector) RefreshReviews(ctx context.Context, code string) error {
	total, err := p.gateway.TotalReviews(ctx)
	if err != nil {
		return err
	}
	reviews := make([]models.Review, 0)
	for i := uint64(0); i < total; i++ {
		review, err := p.gateway.GetReview(ctx, i)
		if err != nil {
			return err
		}
		if review.ProductCode == code {
			reviews = append(reviews, review)
		}
	}

	p.mu.Lock()
	p.snap.ViewedProduct = code
	p.snap.Reviews = reviews
	p.mu.Unlock()
	return nil
}

// RefreshWallet replaces the viewer's loyalty balance, review count and the
// badge-unlocked indicator.
func (p *Projector) RefreshWallet(ctx context.Context) error {
	balance, err := p.gateway.LoyaltyBalanceOf(ctx, p.actor)
	if err != nil {
		return err
	}
	count, err := p.gateway.ReviewCountOf(ctx, p.actor)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.snap.Wallet = models.Wallet{
		LoyaltyBalance: balance,
		ReviewCount:    count,
		BadgeUnlocked:  badgeUnlocked(count),
	}
	p.mu.Unlock()
	return nil
}

// badgeUnlocked reports whether the count sits exactly on a newly earned
// tier: a multiple of the threshold whose tier is still under the cap.
func badgeUnlocked(count uint64) bool {
	if count == 0 || count%models.BadgeThreshold != 0 {
		return false
	}
	return count/models.BadgeThreshold <= models.BadgeCap
}

// RefreshBadges replaces the badge set. Metadata documents are fetched
// concurrently and joined before the set is published; a single failed
// fetch degrades that badge to an empty-image placeholder instead of
// aborting the refresh.
func (p *Projector) RefreshBadges(ctx context.Context) error {
	ids, err := p.gateway.BadgesOf(ctx, p.actor)
	if err != nil {
		return err
	}

	badges := make([]models.Badge, len(ids))
	for i, id := range ids {
		ref, err := p.gateway.BadgeMetadataRef(ctx, id)
		if err != nil {
			return err
		}
		badges[i] = models.Badge{TokenID: id, MetadataRef: ref}
	}

	var wg sync.WaitGroup
	for i := range badges {
		wg.Add(1)
		go func(b *models.Badge) {
			defer wg.Done()
			meta, err := p.ipfs.FetchBadgeMetadata(ctx, b.MetadataRef)
			if err != nil {
				logger.Warnf("badge %d metadata fetch failed: %v", b.TokenID, err)
				b.Metadata = models.BadgeMetadata{}
				return
			}
			b.Metadata = *meta
		}(&badges[i])
	}
	wg.Wait()

	p.mu.Lock()
	p.snap.Badges = badges
	p.mu.Unlock()
	return nil
}
