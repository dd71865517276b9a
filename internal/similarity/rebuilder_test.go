package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"catalog-service/internal/models"
)

func TestRebuild_UpsertsRankedEdges(t *testing.T) {
	ctx := context.Background()
	catalog := new(MockCatalog)
	edges := new(MockEdges)
	rebuilder := NewRebuilder(catalog, edges, 20, quietLogger())

	source := &models.Product{ID: 1, Name: "Trail Shoe", Vendor: "Acme", Category: "Shoes", Price: 100}
	candidates := []models.Product{
		{ID: 2, Vendor: "Other", Category: "Shoes", Price: 100},
		{ID: 3, Vendor: "Acme", Category: "Shoes", Price: 100},
	}

	catalog.On("ProductIDsAscending", ctx).Return([]int64{1}, nil)
	catalog.On("GetProduct", ctx, int64(1)).Return(source, nil)
	catalog.On("SearchCandidateIDs", ctx, "Trail Shoe Shoes", int64(1), 20).
		Return([]int64{2, 3}, nil)
	catalog.On("ProductsByIDs", ctx, []int64{2, 3}).Return(candidates, nil)

	var upserted []models.SimilarityEdge
	edges.On("UpsertEdge", ctx, mock.AnythingOfType("*models.SimilarityEdge")).
		Run(func(args mock.Arguments) {
			upserted = append(upserted, *args.Get(1).(*models.SimilarityEdge))
		}).
		Return(nil)

	stats, err := rebuilder.Rebuild(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, 2, stats.Edges)

	// Best candidate first: vendor+category beats category alone.
	assert.Equal(t, int64(3), upserted[0].TargetID)
	assert.Equal(t, int64(2), upserted[1].TargetID)
	for _, e := range upserted {
		assert.Equal(t, int64(1), e.SourceID)
		assert.NotEqual(t, e.SourceID, e.TargetID)
		assert.Equal(t, models.SimilarityMethodFTS, e.Method)
	}
	// All edges of one run share a timestamp.
	assert.Equal(t, upserted[0].UpdatedAt, upserted[1].UpdatedAt)
}

func TestRebuild_SkipsSourcesWithoutCandidates(t *testing.T) {
	ctx := context.Background()
	catalog := new(MockCatalog)
	edges := new(MockEdges)
	rebuilder := NewRebuilder(catalog, edges, 20, quietLogger())

	catalog.On("ProductIDsAscending", ctx).Return([]int64{1}, nil)
	catalog.On("GetProduct", ctx, int64(1)).Return(&models.Product{ID: 1, Name: "Lonely"}, nil)
	catalog.On("SearchCandidateIDs", ctx, "Lonely", int64(1), 20).Return([]int64{}, nil)

	stats, err := rebuilder.Rebuild(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 0, stats.Sources)
	assert.Equal(t, 0, stats.Edges)
	edges.AssertNotCalled(t, "UpsertEdge")
}

func TestRebuild_EmptyCatalog(t *testing.T) {
	ctx := context.Background()
	catalog := new(MockCatalog)
	edges := new(MockEdges)
	rebuilder := NewRebuilder(catalog, edges, 20, quietLogger())

	catalog.On("ProductIDsAscending", ctx).Return([]int64{}, nil)

	stats, err := rebuilder.Rebuild(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 0, stats.Sources)
}

func TestRebuild_CapsEdgesAtBatchLimit(t *testing.T) {
	ctx := context.Background()
	catalog := new(MockCatalog)
	edges := new(MockEdges)
	rebuilder := NewRebuilder(catalog, edges, 2, quietLogger())

	source := &models.Product{ID: 1, Name: "Popular", Vendor: "Acme", Price: 100}
	catalog.On("ProductIDsAscending", ctx).Return([]int64{1}, nil)
	catalog.On("GetProduct", ctx, int64(1)).Return(source, nil)
	catalog.On("SearchCandidateIDs", ctx, "Popular", int64(1), 2).
		Return([]int64{2, 3, 4}, nil)
	catalog.On("ProductsByIDs", ctx, []int64{2, 3, 4}).Return([]models.Product{
		{ID: 2, Vendor: "Acme", Price: 100},
		{ID: 3, Vendor: "Acme", Price: 100},
		{ID: 4, Vendor: "Acme", Price: 100},
	}, nil)
	edges.On("UpsertEdge", ctx, mock.AnythingOfType("*models.SimilarityEdge")).Return(nil)

	stats, err := rebuilder.Rebuild(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 2, stats.Edges)
	edges.AssertNumberOfCalls(t, "UpsertEdge", 2)
}

func TestRebuild_UpsertFailureAborts(t *testing.T) {
	ctx := context.Background()
	catalog := new(MockCatalog)
	edges := new(MockEdges)
	rebuilder := NewRebuilder(catalog, edges, 20, quietLogger())

	source := &models.Product{ID: 1, Name: "Thing", Vendor: "Acme", Price: 100}
	catalog.On("ProductIDsAscending", ctx).Return([]int64{1}, nil)
	catalog.On("GetProduct", ctx, int64(1)).Return(source, nil)
	catalog.On("SearchCandidateIDs", ctx, "Thing", int64(1), 20).Return([]int64{2}, nil)
	catalog.On("ProductsByIDs", ctx, []int64{2}).
		Return([]models.Product{{ID: 2, Vendor: "Acme", Price: 100}}, nil)
	edges.On("UpsertEdge", ctx, mock.AnythingOfType("*models.SimilarityEdge")).
		Return(errors.New("disk full"))

	_, err := rebuilder.Rebuild(ctx)
	assert.Error(t, err)
}
