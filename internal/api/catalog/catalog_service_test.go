package catalog

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/polkaapp/polka-api/internal/types"
)

// MockCatalogRepo is a mock implementation of the CatalogRepo interface
type MockCatalogRepo struct {
	mock.Mock
}

func (m *MockCatalogRepo) ListBrands(ctx context.Context) ([]types.Brand, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Brand), args.Error(1)
}

func (m *MockCatalogRepo) ListStyles(ctx context.Context) ([]types.Style, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Style), args.Error(1)
}

func (m *MockCatalogRepo) SetUserBrands(ctx context.Context, userID string, brandIDs []int) error {
	args := m.Called(ctx, userID, brandIDs)
	return args.Error(0)
}

func (m *MockCatalogRepo) SetUserStyles(ctx context.Context, userID string, styleIDs []string) error {
	args := m.Called(ctx, userID, styleIDs)
	return args.Error(0)
}

func TestListBrandsCaching(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCatalogRepo)
	service := NewCatalogService(mockRepo, slog.Default())

	brands := []types.Brand{{ID: 1, Name: "Acne Studios"}, {ID: 2, Name: "Ganni"}}
	mockRepo.On("ListBrands", ctx).Return(brands, nil).Once()

	// The second call must be served from the cache.
	for i := 0; i < 2; i++ {
		got, err := service.ListBrands(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	}
	mockRepo.AssertNumberOfCalls(t, "ListBrands", 1)
}

func TestListStylesCaching(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCatalogRepo)
	service := NewCatalogService(mockRepo, slog.Default())

	styles := []types.Style{{ID: "casual", Name: "Casual"}}
	mockRepo.On("ListStyles", ctx).Return(styles, nil).Once()

	for i := 0; i < 2; i++ {
		got, err := service.ListStyles(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	mockRepo.AssertNumberOfCalls(t, "ListStyles", 1)
}

func TestListBrandsErrorNotCached(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCatalogRepo)
	service := NewCatalogService(mockRepo, slog.Default())

	mockRepo.On("ListBrands", ctx).Return(nil, assert.AnError).Once()
	mockRepo.On("ListBrands", ctx).Return([]types.Brand{{ID: 1, Name: "Ganni"}}, nil).Once()

	_, err := service.ListBrands(ctx)
	assert.Error(t, err)

	got, err := service.ListBrands(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSetUserBrands(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockCatalogRepo)
		service := NewCatalogService(mockRepo, slog.Default())

		mockRepo.On("SetUserBrands", ctx, "user1", []int{1, 2}).Return(nil).Once()

		assert.NoError(t, service.SetUserBrands(ctx, "user1", []int{1, 2}))
		mockRepo.AssertExpectations(t)
	})

	t.Run("UnknownBrand", func(t *testing.T) {
		mockRepo := new(MockCatalogRepo)
		service := NewCatalogService(mockRepo, slog.Default())

		mockRepo.On("SetUserBrands", ctx, "user1", []int{999}).Return(types.ErrNotFound).Once()

		err := service.SetUserBrands(ctx, "user1", []int{999})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestSetUserStyles(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCatalogRepo)
	service := NewCatalogService(mockRepo, slog.Default())

	mockRepo.On("SetUserStyles", ctx, "user1", []string{"casual", "streetwear"}).Return(nil).Once()

	assert.NoError(t, service.SetUserStyles(ctx, "user1", []string{"casual", "streetwear"}))
	mockRepo.AssertExpectations(t)
}
