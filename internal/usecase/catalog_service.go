package usecase

import (
	"context"
	"fmt"

	"github.com/pricelens/backend/internal/domain"
)

// CatalogService lists stored products and competitor listings
type CatalogService struct {
	repo domain.CatalogRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo domain.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// ListProducts returns one page of products, newest first
func (s *CatalogService) ListProducts(ctx context.Context, page, limit int, filter domain.ProductFilter) (*domain.ProductListing, error) {
	const op = "CatalogService.ListProducts"

	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInvalidRequest)
	}

	rows, err := s.repo.ListProducts(ctx, filter, (page-1)*limit, limit+1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	total, err := s.repo.CountProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, hasNext := trimProbe(rows, limit)
	if rows == nil {
		rows = []domain.Product{}
	}

	return &domain.ProductListing{
		Data:       rows,
		Pagination: domain.Pagination{Page: page, Limit: limit, Total: total, HasNextPage: hasNext},
	}, nil
}

// ListCompetitorProducts returns one page of competitor listings, newest first
func (s *CatalogService) ListCompetitorProducts(ctx context.Context, page, limit int, filter domain.CompetitorProductFilter) (*domain.CompetitorProductListing, error) {
	const op = "CatalogService.ListCompetitorProducts"

	if page < 1 || limit < 1 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInvalidRequest)
	}

	rows, err := s.repo.ListCompetitorProducts(ctx, filter, (page-1)*limit, limit+1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	total, err := s.repo.CountCompetitorProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, hasNext := trimProbe(rows, limit)
	if rows == nil {
		rows = []domain.CompetitorProduct{}
	}

	return &domain.CompetitorProductListing{
		Data:       rows,
		Pagination: domain.Pagination{Page: page, Limit: limit, Total: total, HasNextPage: hasNext},
	}, nil
}

// trimProbe drops the extra row fetched to detect a following page
func trimProbe[T any](rows []T, limit int) ([]T, bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}
