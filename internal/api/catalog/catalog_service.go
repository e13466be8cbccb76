package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/polkaapp/polka-api/internal/types"
)

const (
	brandsCacheKey = "catalog:brands"
	stylesCacheKey = "catalog:styles"
)

var _ CatalogService = (*CatalogServiceImpl)(nil)

type CatalogService interface {
	ListBrands(ctx context.Context) ([]types.Brand, error)
	ListStyles(ctx context.Context) ([]types.Style, error)
	SetUserBrands(ctx context.Context, userID string, brandIDs []int) error
	SetUserStyles(ctx context.Context, userID string, styleIDs []string) error
}

// CatalogServiceImpl caches the read-mostly brand and style lists; the
// replace-set writes invalidate nothing because the lists themselves never
// change through this service.
type CatalogServiceImpl struct {
	repo   CatalogRepo
	cache  *cache.Cache
	logger *slog.Logger
}

func NewCatalogService(repo CatalogRepo, logger *slog.Logger) *CatalogServiceImpl {
	return &CatalogServiceImpl{
		repo:   repo,
		cache:  cache.New(5*time.Minute, 10*time.Minute),
		logger: logger,
	}
}

func (s *CatalogServiceImpl) ListBrands(ctx context.Context) ([]types.Brand, error) {
	if cached, found := s.cache.Get(brandsCacheKey); found {
		return cached.([]types.Brand), nil
	}

	brands, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing brands: %w", err)
	}
	if brands == nil {
		brands = []types.Brand{}
	}

	s.cache.Set(brandsCacheKey, brands, cache.DefaultExpiration)
	return brands, nil
}

func (s *CatalogServiceImpl) ListStyles(ctx context.Context) ([]types.Style, error) {
	if cached, found := s.cache.Get(stylesCacheKey); found {
		return cached.([]types.Style), nil
	}

	styles, err := s.repo.ListStyles(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing styles: %w", err)
	}
	if styles == nil {
		styles = []types.Style{}
	}

	s.cache.Set(stylesCacheKey, styles, cache.DefaultExpiration)
	return styles, nil
}

func (s *CatalogServiceImpl) SetUserBrands(ctx context.Context, userID string, brandIDs []int) error {
	if err := s.repo.SetUserBrands(ctx, userID, brandIDs); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Favorite brands replaced",
		slog.String("userID", userID), slog.Int("count", len(brandIDs)))
	return nil
}

func (s *CatalogServiceImpl) SetUserStyles(ctx context.Context, userID string, styleIDs []string) error {
	if err := s.repo.SetUserStyles(ctx, userID, styleIDs); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Favorite styles replaced",
		slog.String("userID", userID), slog.Int("count", len(styleIDs)))
	return nil
}
