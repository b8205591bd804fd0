package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/pricelens/backend/internal/domain"
)

// unknownVendor labels rows whose vendor column is empty
const unknownVendor = "unknown"

// PatternService aggregates pricing patterns per vendor and per competitor
type PatternService struct {
	matches domain.MatchRepository
	cache   reportCache
}

// NewPatternService creates a new pattern aggregation service
func NewPatternService(
	matches domain.MatchRepository,
	cache domain.CacheRepository,
	config ReportConfig,
) *PatternService {
	return &PatternService{
		matches: matches,
		cache:   reportCache{cache: cache, ttl: config.CacheTTL},
	}
}

// BuildReport loads every match passing the filter and aggregates it.
// An empty scope is treated as all.
func (s *PatternService) BuildReport(ctx context.Context, q domain.PatternQuery) (*domain.PatternReport, error) {
	const op = "PatternService.BuildReport"

	if q.ConfidenceScope == "" {
		q.ConfidenceScope = domain.ConfidenceScopeAll
	}
	if !q.ConfidenceScope.Valid() {
		return nil, fmt.Errorf("%s: %w: confidence scope %q", op, domain.ErrInvalidRequest, q.ConfidenceScope)
	}

	key := patternCacheKey(q)
	var cached domain.PatternReport
	if s.cache.load(ctx, key, &cached) {
		return &cached, nil
	}
	gen, cacheable := s.cache.generation(ctx)

	rows, err := s.matches.AllMatchRows(ctx, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := AggregatePatterns(rows, q.Threshold, q.ConfidenceScope)
	s.cache.store(ctx, key, gen, cacheable, &report)

	return &report, nil
}

type vendorTally struct {
	vendor             string
	overpriced         int
	total              int
	products           map[string]struct{}
	overpricedProducts map[string]struct{}
}

type competitorTally struct {
	vendor   string
	cheaper  int
	total    int
	indices  []float64
	severity domain.SeverityBuckets
}

// AggregatePatterns computes vendor and competitor statistics over rows.
// Rows with an unknown unit price on either side are ignored. Vendors and
// competitors are listed in the order they are first seen.
func AggregatePatterns(rows []domain.JoinedMatchRow, threshold float64, scope domain.ConfidenceScope) domain.PatternReport {
	var (
		vendorOrder     []*vendorTally
		vendorIndex     = make(map[string]*vendorTally)
		competitorOrder []*competitorTally
		competitorIndex = make(map[string]*competitorTally)
	)

	for _, row := range rows {
		if scope == domain.ConfidenceScopeHigh &&
			!IsHighConfidence(ParseNumeric(row.MatchingScore), row.ExactMatch) {
			continue
		}

		ourUnitPrice := ResolveUnitPrice(row.Ours)
		competitorUnitPrice := ResolveUnitPrice(row.Competitor)
		if ourUnitPrice == nil || competitorUnitPrice == nil {
			continue
		}

		priceIndex := PriceIndex(ourUnitPrice, competitorUnitPrice)
		overpriced := priceIndex != nil && *priceIndex > threshold

		vendorName := vendorOrUnknown(row.ProductVendor)
		vt, ok := vendorIndex[vendorName]
		if !ok {
			vt = &vendorTally{
				vendor:             vendorName,
				products:           make(map[string]struct{}),
				overpricedProducts: make(map[string]struct{}),
			}
			vendorIndex[vendorName] = vt
			vendorOrder = append(vendorOrder, vt)
		}
		vt.total++
		vt.products[row.ProductID] = struct{}{}
		if overpriced {
			vt.overpriced++
			vt.overpricedProducts[row.ProductID] = struct{}{}
		}

		competitorName := vendorOrUnknown(row.CompetitorVendor)
		ct, ok := competitorIndex[competitorName]
		if !ok {
			ct = &competitorTally{vendor: competitorName}
			competitorIndex[competitorName] = ct
			competitorOrder = append(competitorOrder, ct)
		}
		ct.total++
		if *competitorUnitPrice < *ourUnitPrice {
			ct.cheaper++
		}
		if priceIndex != nil && *competitorUnitPrice > 0 {
			ct.indices = append(ct.indices, *priceIndex)
		}
		if priceIndex != nil {
			switch {
			case *priceIndex <= threshold:
				ct.severity.Acceptable++
			case *priceIndex <= SevereOverpricedIndex:
				ct.severity.Overpriced++
			default:
				ct.severity.SeverelyOverpriced++
			}
		}
	}

	report := domain.PatternReport{
		Competitors: make([]domain.CompetitorStat, 0, len(competitorOrder)),
		Vendors:     make([]domain.VendorStat, 0, len(vendorOrder)),
		Meta: domain.PatternMeta{
			Threshold:       threshold,
			ConfidenceScope: scope,
		},
	}

	for _, ct := range competitorOrder {
		report.Competitors = append(report.Competitors, domain.CompetitorStat{
			CompetitorVendor: ct.vendor,
			CheaperRate:      rate(ct.cheaper, ct.total),
			AvgPriceIndex:    mean(ct.indices),
			MedianPriceIndex: median(ct.indices),
			Severity:         ct.severity,
			TotalComparisons: ct.total,
		})
	}

	for _, vt := range vendorOrder {
		report.Vendors = append(report.Vendors, domain.VendorStat{
			Vendor:                vt.vendor,
			OverpricedRate:        rate(vt.overpriced, vt.total),
			ProductOverpricedRate: rate(len(vt.overpricedProducts), len(vt.products)),
			TotalProducts:         len(vt.products),
		})
	}

	return report
}

func vendorOrUnknown(v *string) string {
	if v == nil || *v == "" {
		return unknownVendor
	}
	return *v
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}

// median sorts a copy of values; an even count averages the middle pair
func median(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	m := sorted[mid]
	if len(sorted)%2 == 0 {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}

func patternCacheKey(q domain.PatternQuery) string {
	return fmt.Sprintf("patterns:%g:%s:%q:%q",
		q.Threshold, q.ConfidenceScope, q.Filter.Vendor, q.Filter.CompetitorVendor)
}
