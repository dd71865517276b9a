package pricing

import (
	"context"

	"github.com/sirupsen/logrus"

	"catalog-service/internal/models"
)

// Default pricing rule values.
const (
	DefaultScaleFactor = 0.4
	DefaultFloor       = 300.0
	DefaultCeiling     = 10000.0
)

// Store is the slice of the catalog store the pricing pass needs.
type Store interface {
	ProductPricesAscending(ctx context.Context) ([]models.ProductPrice, error)
	UpdateProductPrice(ctx context.Context, id int64, price float64) error
	DeleteProduct(ctx context.Context, id int64) error
}

// Stats aggregates a pricing pass.
type Stats struct {
	Updated int
	Deleted int
	Failed  int
}

// Normalizer applies the post-import pricing rule: scale every price by the
// factor, delete products whose adjusted price falls below the floor, clamp
// prices above the ceiling.
//
// The pass is single-use per import: running it twice scales already-scaled
// prices again. Each row's update or delete is independent, so a failed row
// is logged and the pass continues; there is no transaction around the pass.
type Normalizer struct {
	store   Store
	log     *logrus.Logger
	scale   float64
	floor   float64
	ceiling float64
}

func NewNormalizer(store Store, log *logrus.Logger, scale, floor, ceiling float64) *Normalizer {
	if log == nil {
		log = logrus.New()
	}
	return &Normalizer{store: store, log: log, scale: scale, floor: floor, ceiling: ceiling}
}

// Run walks every product in ascending original-price order and applies the
// rule. Only the initial listing query is fatal.
func (n *Normalizer) Run(ctx context.Context) (*Stats, error) {
	prices, err := n.store.ProductPricesAscending(ctx)
	if err != nil {
		return nil, err
	}
	n.log.WithField("products", len(prices)).Info("Starting pricing pass")

	stats := &Stats{}
	for _, p := range prices {
		adjusted := p.Price * n.scale

		// The floor is inclusive: an adjusted price exactly at the
		// floor is retained.
		if adjusted < n.floor {
			if err := n.store.DeleteProduct(ctx, p.ID); err != nil {
				stats.Failed++
				n.log.WithError(err).WithField("id", p.ID).Warn("Failed to delete product below price floor")
				continue
			}
			stats.Deleted++
			continue
		}

		if adjusted > n.ceiling {
			adjusted = n.ceiling
		}

		if err := n.store.UpdateProductPrice(ctx, p.ID, adjusted); err != nil {
			stats.Failed++
			n.log.WithError(err).WithField("id", p.ID).Warn("Failed to update product price")
			continue
		}
		stats.Updated++
	}

	n.log.WithFields(logrus.Fields{
		"updated": stats.Updated,
		"deleted": stats.Deleted,
		"failed":  stats.Failed,
	}).Info("Pricing pass complete")

	return stats, nil
}
