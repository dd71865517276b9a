package similarity

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"catalog-service/internal/models"
)

// MockCatalog is a mock implementation of CatalogStore and ProductReader
type MockCatalog struct {
	mock.Mock
}

var (
	_ CatalogStore  = (*MockCatalog)(nil)
	_ ProductReader = (*MockCatalog)(nil)
)

func (m *MockCatalog) SearchCandidateIDs(ctx context.Context, text string, exclude int64, limit int) ([]int64, error) {
	args := m.Called(ctx, text, exclude, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockCatalog) RandomCandidateIDs(ctx context.Context, exclude int64, limit int) ([]int64, error) {
	args := m.Called(ctx, exclude, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockCatalog) ProductIDsAscending(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockCatalog) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalog) ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockCatalog) FallbackRelated(ctx context.Context, source *models.Product, limit int) ([]models.ScoredProduct, error) {
	args := m.Called(ctx, source, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScoredProduct), args.Error(1)
}

// MockEdges is a mock implementation of EdgeStore and EdgeReader
type MockEdges struct {
	mock.Mock
}

var (
	_ EdgeStore  = (*MockEdges)(nil)
	_ EdgeReader = (*MockEdges)(nil)
)

func (m *MockEdges) UpsertEdge(ctx context.Context, edge *models.SimilarityEdge) error {
	args := m.Called(ctx, edge)
	return args.Error(0)
}

func (m *MockEdges) EdgesBySource(ctx context.Context, sourceID int64, limit int) ([]models.SimilarityEdge, error) {
	args := m.Called(ctx, sourceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SimilarityEdge), args.Error(1)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
