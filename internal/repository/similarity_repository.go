package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"catalog-service/internal/models"
)

// SimilarityRepository owns the product_similarities table. Writes are
// row-level upserts so the table is never truncated during a rebuild and
// concurrent readers always see either the previous or the fresh edge.
type SimilarityRepository struct {
	db *gorm.DB
}

var _ SimilarityRepositoryInterface = (*SimilarityRepository)(nil)

func NewSimilarityRepository(db *gorm.DB) *SimilarityRepository {
	return &SimilarityRepository{db: db}
}

// UpsertEdge inserts or replaces the (source, target) edge.
func (r *SimilarityRepository) UpsertEdge(ctx context.Context, edge *models.SimilarityEdge) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "method", "updated_at"}),
	}).Create(edge).Error
}

// EdgesBySource returns up to limit edges for a source product, best first.
func (r *SimilarityRepository) EdgesBySource(ctx context.Context, sourceID int64, limit int) ([]models.SimilarityEdge, error) {
	var edges []models.SimilarityEdge
	err := r.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		Order("score DESC").
		Limit(limit).
		Find(&edges).Error
	return edges, err
}
