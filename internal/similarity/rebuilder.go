package similarity

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"catalog-service/internal/models"
)

// CatalogStore is the slice of the catalog store the rebuild needs.
type CatalogStore interface {
	CandidateStore
	ProductIDsAscending(ctx context.Context) ([]int64, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

// EdgeStore is the write surface of the similarity table.
type EdgeStore interface {
	UpsertEdge(ctx context.Context, edge *models.SimilarityEdge) error
}

// RebuildStats aggregates one rebuild run.
type RebuildStats struct {
	Sources int
	Edges   int
}

// Rebuilder recomputes the similarity table for the whole catalog. It walks
// products in ascending id order and upserts each source's edges row by row,
// so a rebuild is idempotent and re-runnable, and readers of the table never
// observe a transient absence.
type Rebuilder struct {
	catalog CatalogStore
	edges   EdgeStore
	seeder  *Seeder
	log     *logrus.Logger
}

func NewRebuilder(catalog CatalogStore, edges EdgeStore, batchLimit int, log *logrus.Logger) *Rebuilder {
	if log == nil {
		log = logrus.New()
	}
	return &Rebuilder{
		catalog: catalog,
		edges:   edges,
		seeder:  NewSeeder(catalog, batchLimit, log),
		log:     log,
	}
}

// Rebuild runs the seed, score, upsert cycle for every product. All edges of
// a run share one updated_at timestamp.
func (r *Rebuilder) Rebuild(ctx context.Context) (*RebuildStats, error) {
	ids, err := r.catalog.ProductIDsAscending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(ids) == 0 {
		r.log.Warn("No products found, nothing to rebuild")
		return &RebuildStats{}, nil
	}

	now := time.Now()
	stats := &RebuildStats{}

	for _, id := range ids {
		source, err := r.catalog.GetProduct(ctx, id)
		if err != nil {
			return stats, fmt.Errorf("load product %d: %w", id, err)
		}

		candidateIDs, method, err := r.seeder.Candidates(ctx, source)
		if err != nil {
			return stats, fmt.Errorf("seed candidates for %d: %w", id, err)
		}
		if len(candidateIDs) == 0 {
			continue
		}

		rows, err := r.catalog.ProductsByIDs(ctx, candidateIDs)
		if err != nil {
			return stats, fmt.Errorf("load candidates for %d: %w", id, err)
		}

		// Ranking ties break on candidate order, so restore the order
		// the seeder proposed.
		ranked := RankCandidates(source, inSeedOrder(candidateIDs, rows), r.seeder.Limit())

		for _, sc := range ranked {
			edge := &models.SimilarityEdge{
				SourceID:  source.ID,
				TargetID:  sc.Product.ID,
				Score:     sc.Score,
				Method:    method,
				UpdatedAt: now,
			}
			if err := r.edges.UpsertEdge(ctx, edge); err != nil {
				return stats, fmt.Errorf("upsert edge %d->%d: %w", edge.SourceID, edge.TargetID, err)
			}
			stats.Edges++
		}
		stats.Sources++
	}

	r.log.WithFields(logrus.Fields{
		"sources": stats.Sources,
		"edges":   stats.Edges,
	}).Info("Similarity table updated")

	return stats, nil
}

func inSeedOrder(ids []int64, rows []models.Product) []models.Product {
	byID := make(map[int64]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	ordered := make([]models.Product, 0, len(rows))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered
}
