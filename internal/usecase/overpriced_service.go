package usecase

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// ReportConfig holds configuration shared by the report services
type ReportConfig struct {
	CacheTTL time.Duration
}

// OverpricedService builds the paginated overpriced comparison report
type OverpricedService struct {
	matches domain.MatchRepository
	cache   reportCache
}

// NewOverpricedService creates a new overpriced report service
func NewOverpricedService(
	matches domain.MatchRepository,
	cache domain.CacheRepository,
	config ReportConfig,
) *OverpricedService {
	return &OverpricedService{
		matches: matches,
		cache:   reportCache{cache: cache, ttl: config.CacheTTL},
	}
}

// BuildReport pages through products ordered by their most recent match and
// returns every competitor comparison of the products on the page.
// Query values are expected to be validated already.
func (s *OverpricedService) BuildReport(ctx context.Context, q domain.OverpricedQuery) (*domain.OverpricedReport, error) {
	const op = "OverpricedService.BuildReport"

	if q.Page < 1 || q.Limit < 1 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInvalidRequest)
	}

	key := overpricedCacheKey(q)
	var cached domain.OverpricedReport
	if s.cache.load(ctx, key, &cached) {
		return &cached, nil
	}
	gen, cacheable := s.cache.generation(ctx)

	recency, err := s.matches.DistinctProductIDsByRecency(ctx, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sortByRecency(recency)

	total := len(recency)
	offset := (q.Page - 1) * q.Limit
	window := pageWindow(recency, offset, q.Limit+1)
	hasNext := len(window) > q.Limit
	if hasNext {
		window = window[:q.Limit]
	}

	report := &domain.OverpricedReport{
		Data: []domain.GroupedProduct{},
		Pagination: domain.Pagination{
			Page:        q.Page,
			Limit:       q.Limit,
			Total:       total,
			HasNextPage: hasNext,
		},
		Meta: domain.OverpricedMeta{Threshold: q.Threshold},
	}

	if len(window) == 0 {
		s.cache.store(ctx, key, gen, cacheable, report)
		return report, nil
	}

	pageIDs := make([]string, len(window))
	for i, r := range window {
		pageIDs[i] = r.ProductID
	}

	rows, err := s.matches.MatchRowsForProducts(ctx, pageIDs, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report.Data = groupComparisons(pageIDs, rows, q.Threshold)
	s.cache.store(ctx, key, gen, cacheable, report)

	return report, nil
}

// sortByRecency orders products newest match first. Ties fall back to the
// product id so pages stay stable between requests.
func sortByRecency(recency []domain.ProductRecency) {
	slices.SortStableFunc(recency, func(a, b domain.ProductRecency) int {
		if c := b.LastMatchedAt.Compare(a.LastMatchedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
}

func pageWindow(recency []domain.ProductRecency, offset, size int) []domain.ProductRecency {
	if offset >= len(recency) {
		return nil
	}
	end := min(offset+size, len(recency))
	return recency[offset:end]
}

// groupComparisons enriches rows and groups them by product, in the order of
// pageIDs. Rows keep their incoming order inside each group. Products with no
// remaining rows are dropped.
func groupComparisons(pageIDs []string, rows []domain.JoinedMatchRow, threshold float64) []domain.GroupedProduct {
	groups := make(map[string]*domain.GroupedProduct, len(pageIDs))

	for _, row := range rows {
		enriched := EnrichMatch(row, threshold)

		group, ok := groups[row.ProductID]
		if !ok {
			group = &domain.GroupedProduct{
				ProductID:    enriched.ProductID,
				ProductTitle: enriched.ProductTitle,
				ProductPrice: enriched.ProductPrice,
				Vendor:       enriched.Vendor,
			}
			groups[row.ProductID] = group
		}
		group.Competitors = append(group.Competitors, enriched)
	}

	out := make([]domain.GroupedProduct, 0, len(pageIDs))
	for _, id := range pageIDs {
		if group, ok := groups[id]; ok {
			out = append(out, *group)
		}
	}
	return out
}

func overpricedCacheKey(q domain.OverpricedQuery) string {
	return fmt.Sprintf("overpriced:%d:%d:%g:%q:%q",
		q.Page, q.Limit, q.Threshold, q.Filter.Vendor, q.Filter.CompetitorVendor)
}
