package importer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-service/internal/feed"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
)

// Stats aggregates what one import run committed.
type Stats struct {
	Committed  int
	Skipped    int
	Categories []string
	Domains    []string
}

// Loader drains a feed stream into the store. The whole run executes inside
// one transaction: either every record lands or none do. Records the parser
// skipped never reach the loader and do not abort the run.
type Loader struct {
	store repository.ImportRepositoryInterface
	log   *logrus.Logger
}

func NewLoader(store repository.ImportRepositoryInterface, log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.New()
	}
	return &Loader{store: store, log: log}
}

// Run consumes the stream to completion and commits the import. feedPath is
// recorded on the audit row.
func (l *Loader) Run(ctx context.Context, stream *feed.Stream, feedPath string) (*Stats, error) {
	stats := &Stats{}
	categories := map[string]bool{}
	domains := map[string]bool{}
	startedAt := time.Now()

	err := l.store.RunInTransaction(ctx, func(w repository.ImportWriter) error {
		for stream.Next() {
			rec := stream.Record()

			product := productFromRecord(rec)
			if err := w.UpsertProduct(product); err != nil {
				return fmt.Errorf("upsert product %d: %w", product.ID, err)
			}
			if err := w.UpsertSearchEntry(&models.ProductSearch{
				ProductID:   product.ID,
				Name:        product.Name,
				Description: product.Description,
				Category:    product.Category,
			}); err != nil {
				return fmt.Errorf("upsert search entry %d: %w", product.ID, err)
			}

			stats.Committed++
			if product.Category != "" {
				categories[product.Category] = true
			}
			if product.SourceDomain != "" {
				domains[product.SourceDomain] = true
			}

			l.log.WithFields(logrus.Fields{
				"id":    product.ID,
				"name":  truncate(product.Name, 50),
				"count": stats.Committed,
			}).Debug("Inserted product")
		}
		return stream.Err()
	})
	if err != nil {
		return nil, err
	}

	stats.Skipped = stream.Skipped()
	stats.Categories = sortedKeys(categories)
	stats.Domains = sortedKeys(domains)

	run := &models.ImportRun{
		ID:         uuid.NewString(),
		FeedPath:   feedPath,
		Committed:  stats.Committed,
		Skipped:    stats.Skipped,
		Categories: toJSONArray(stats.Categories),
		Domains:    toJSONArray(stats.Domains),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if err := l.store.CreateImportRun(ctx, run); err != nil {
		// The import itself is committed; a failed audit row is not
		// worth failing the run over.
		l.log.WithError(err).Warn("Failed to record import run")
	}

	l.log.WithFields(logrus.Fields{
		"committed":  stats.Committed,
		"skipped":    stats.Skipped,
		"categories": len(stats.Categories),
		"domains":    len(stats.Domains),
	}).Info("Import committed")

	return stats, nil
}

func productFromRecord(rec *feed.Record) *models.Product {
	name := rec.DisplayName()
	handle := rec.Handle
	if handle == "" {
		handle = slugify(name)
	}

	sourceDomain := rec.SourceDomain
	if sourceDomain == "" {
		sourceDomain = "local_file"
	}

	product := &models.Product{
		ID:           rec.ID,
		Name:         name,
		Handle:       handle,
		Description:  rec.Body(),
		Price:        rec.CanonicalPrice(),
		Category:     rec.CategoryName(),
		Vendor:       rec.Vendor,
		Tags:         rec.Tags,
		SourceDomain: sourceDomain,
		SourceURL:    rec.SourceURL,
		Raw:          models.JSON(rec.Raw),
	}
	if rec.CompareAtPrice != nil {
		v := float64(*rec.CompareAtPrice)
		product.CompareAtPrice = &v
	}
	if rec.BestsellerScore != nil {
		v := float64(*rec.BestsellerScore)
		product.BestsellerScore = &v
	}
	return product
}

func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toJSONArray(values []string) models.JSONArray {
	arr := make(models.JSONArray, len(values))
	for i, v := range values {
		arr[i] = v
	}
	return arr
}
