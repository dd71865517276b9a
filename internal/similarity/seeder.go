package similarity

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"catalog-service/internal/models"
)

// DefaultBatchLimit is the default cap on candidates per source product.
const DefaultBatchLimit = 20

// CandidateStore is the slice of the catalog store the seeder needs.
type CandidateStore interface {
	SearchCandidateIDs(ctx context.Context, text string, exclude int64, limit int) ([]int64, error)
	RandomCandidateIDs(ctx context.Context, exclude int64, limit int) ([]int64, error)
}

// Seeder proposes comparison candidates for a source product: a relevance
// match over name+category when text search is usable, a uniform random
// sample otherwise. The chosen strategy becomes the edge's method tag.
type Seeder struct {
	store CandidateStore
	limit int
	log   *logrus.Logger
}

func NewSeeder(store CandidateStore, limit int, log *logrus.Logger) *Seeder {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	if log == nil {
		log = logrus.New()
	}
	return &Seeder{store: store, limit: limit, log: log}
}

// Candidates returns up to the batch limit of candidate ids for source,
// together with the method tag of the strategy that produced them.
func (s *Seeder) Candidates(ctx context.Context, source *models.Product) ([]int64, string, error) {
	if strings.TrimSpace(source.Name) != "" {
		text := strings.TrimSpace(source.Name + " " + source.Category)
		ids, err := s.store.SearchCandidateIDs(ctx, text, source.ID, s.limit)
		if err == nil {
			return ids, models.SimilarityMethodFTS, nil
		}
		s.log.WithError(err).WithField("id", source.ID).Debug("Text search seeding unavailable, sampling randomly")
	}

	ids, err := s.store.RandomCandidateIDs(ctx, source.ID, s.limit)
	if err != nil {
		return nil, "", err
	}
	return ids, models.SimilarityMethodHeuristic, nil
}

// Limit returns the configured per-product batch limit.
func (s *Seeder) Limit() int {
	return s.limit
}
