package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"catalog-service/internal/models"
)

// ImportRepository owns Product/ProductSearch writes during a feed import.
type ImportRepository struct {
	db *gorm.DB
}

var _ ImportRepositoryInterface = (*ImportRepository)(nil)

func NewImportRepository(db *gorm.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// RunInTransaction executes fn inside a single all-or-nothing transaction.
// Any error from fn rolls back every write of the import.
func (r *ImportRepository) RunInTransaction(ctx context.Context, fn func(ImportWriter) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&importWriter{tx: tx})
	})
}

// CreateImportRun persists the audit record of a completed import. This runs
// after the import transaction commits.
func (r *ImportRepository) CreateImportRun(ctx context.Context, run *models.ImportRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// importWriter performs transaction-scoped upserts.
type importWriter struct {
	tx *gorm.DB
}

var _ ImportWriter = (*importWriter)(nil)

func (w *importWriter) UpsertProduct(p *models.Product) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	return w.tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "handle", "description", "price", "compare_at_price",
			"category", "vendor", "tags", "bestseller_score",
			"source_domain", "source_url", "raw", "updated_at",
		}),
	}).Create(p).Error
}

func (w *importWriter) UpsertSearchEntry(e *models.ProductSearch) error {
	return w.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "category"}),
	}).Create(e).Error
}
