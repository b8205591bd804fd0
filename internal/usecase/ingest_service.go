package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pricelens/backend/internal/domain"
)

// Feed columns read by the ingester. Columns not listed are ignored.
const (
	colTitle          = "s_title_diy"
	colVendor         = "s_vendor_diy"
	colPrice          = "s_price_diy"
	colOriginalPrice  = "s_original_price_diy"
	colDescription    = "s_description_diy"
	colLink           = "s_link_diy"
	colImage          = "s_primary_image_diy"
	colMetricType     = "s_metric_type_diy"
	colMetricValue    = "s_metric_value_diy"
	colMetricUnit     = "s_metric_type_unit_diy"
	colCompPrice      = "s_price_competitor"
	colCompVendor     = "s_vendor_competitor"
	colCompTitle      = "s_title_competitor"
	colCompLink       = "s_link_competitor"
	colMatchingScore  = "matching_score"
	colImageSimilar   = "image_similarity"
	colExactMatch     = "exact_match"
	colBrandMatch     = "brand_match"
	csvMatchSource    = "csv"
	competitorSuffix  = "_competitor"
	competitorHasFlag = "s_has_"
)

// IngestServiceConfig holds configuration for the ingest service
type IngestServiceConfig struct {
	DefaultFile string
}

// IngestService loads pricing feeds into storage, one transaction per file
type IngestService struct {
	repo        domain.IngestRepository
	feeds       domain.FeedOpener
	cache       reportCache
	defaultFile string

	now   func() time.Time
	newID func() string
}

// NewIngestService creates a new ingest service. The cache, if any, is
// cleared after every successful ingestion.
func NewIngestService(
	repo domain.IngestRepository,
	feeds domain.FeedOpener,
	cache domain.CacheRepository,
	config IngestServiceConfig,
) *IngestService {
	return &IngestService{
		repo:        repo,
		feeds:       feeds,
		cache:       reportCache{cache: cache},
		defaultFile: config.DefaultFile,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// DefaultFile is the feed ingested when no path is given
func (s *IngestService) DefaultFile() string {
	return s.defaultFile
}

// Ingest reads every record of the feed at path. Either all accepted rows
// are persisted or, on any storage or parse failure, none are.
func (s *IngestService) Ingest(ctx context.Context, path string) (domain.IngestSummary, error) {
	const op = "IngestService.Ingest"

	if strings.TrimSpace(path) == "" {
		path = s.defaultFile
	}

	feed, err := s.feeds.Open(path)
	if err != nil {
		if errors.Is(err, domain.ErrIngestFile) {
			return domain.IngestSummary{}, fmt.Errorf("%s: %w", op, err)
		}
		return domain.IngestSummary{}, fmt.Errorf("%s: %w: %v", op, domain.ErrIngestFile, err)
	}
	defer feed.Close()

	var summary domain.IngestSummary
	err = s.repo.WithinTx(ctx, func(tx domain.IngestTx) error {
		summary = domain.IngestSummary{}
		line := 1
		for {
			line++
			rec, err := feed.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}

			ingested, err := s.ingestRecord(ctx, tx, rec)
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			if ingested {
				summary.IngestedRows++
			} else {
				summary.SkippedRows++
			}
		}
	})
	if err != nil {
		return domain.IngestSummary{}, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.invalidate(ctx)

	slog.InfoContext(ctx, "feed ingested",
		"path", path,
		"ingested", summary.IngestedRows,
		"skipped", summary.SkippedRows,
	)

	return summary, nil
}

// ingestRecord persists one feed record and reports whether it produced a
// match. A record without a usable product is skipped entirely; a record
// without a competitor price still registers the product.
func (s *IngestService) ingestRecord(ctx context.Context, tx domain.IngestTx, rec domain.FeedRecord) (bool, error) {
	title := rec.Get(colTitle)
	vendor := rec.Get(colVendor)
	price := ParseNumeric(rec.Get(colPrice))
	if price == nil {
		price = ParseNumeric(rec.Get(colOriginalPrice))
	}
	if title == "" || vendor == "" || price == nil {
		return false, nil
	}

	unitType := optional(rec.Get(colMetricType))
	unitValue := ParseNumeric(rec.Get(colMetricValue))
	unitUnit := optional(rec.Get(colMetricUnit))
	ourUnitPrice := UnitPrice(price, unitTypeOrItem(unitType), unitValue, deref(unitUnit))

	productID, err := s.resolveProduct(ctx, tx, rec, title, vendor, *price, unitType, unitValue, unitUnit)
	if err != nil {
		return false, err
	}

	competitorPrice := ParseNumeric(rec.Get(colCompPrice))
	if competitorPrice == nil {
		return false, nil
	}

	compType, compValue, compUnit := competitorUnit(rec)
	competitorUnitPrice := UnitPrice(competitorPrice, unitTypeOrItem(compType), compValue, deref(compUnit))

	now := s.now()
	competitor := &domain.CompetitorProduct{
		ID:               s.newID(),
		CompetitorVendor: orDefault(rec.Get(colCompVendor), unknownVendor),
		Title:            optional(rec.Get(colCompTitle)),
		Price:            decimal.NewFromFloat(*competitorPrice),
		Currency:         domain.DefaultCurrency,
		UnitType:         compType,
		UnitValue:        compValue,
		UnitUnit:         compUnit,
		ProductURL:       optional(rec.Get(colCompLink)),
		CreatedAt:        now,
	}
	if err := tx.InsertCompetitorProduct(ctx, competitor); err != nil {
		return false, err
	}

	match := &domain.ProductMatch{
		ID:                  s.newID(),
		ProductID:           productID,
		CompetitorProductID: competitor.ID,
		MatchingScore:       ParseNumeric(rec.Get(colMatchingScore)),
		ExactMatch:          parseBool(rec.Get(colExactMatch)),
		BrandMatch:          parseBool(rec.Get(colBrandMatch)),
		ImageSimilarity:     ParseNumeric(rec.Get(colImageSimilar)),
		MatchSource:         csvMatchSource,
		CreatedAt:           now,
	}
	if err := tx.InsertMatch(ctx, match); err != nil {
		return false, err
	}

	if ourUnitPrice != nil && competitorUnitPrice != nil {
		if err := tx.InsertNormalizedPrice(ctx, &domain.NormalizedPrice{
			ID:                  s.newID(),
			ProductMatchID:      match.ID,
			OurUnitPrice:        *ourUnitPrice,
			CompetitorUnitPrice: *competitorUnitPrice,
			UnitType:            unitType,
			CreatedAt:           now,
		}); err != nil {
			return false, err
		}
	}

	return true, nil
}

// resolveProduct reuses the product sharing vendor and source link, or
// inserts a new one
func (s *IngestService) resolveProduct(
	ctx context.Context,
	tx domain.IngestTx,
	rec domain.FeedRecord,
	title, vendor string,
	price float64,
	unitType *string,
	unitValue *float64,
	unitUnit *string,
) (string, error) {
	sourceLink := optional(rec.Get(colLink))

	id, err := tx.FindProductID(ctx, vendor, sourceLink)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	product := &domain.Product{
		ID:          s.newID(),
		Title:       title,
		Description: optional(rec.Get(colDescription)),
		Vendor:      vendor,
		BasePrice:   decimal.NewFromFloat(price),
		Currency:    domain.DefaultCurrency,
		UnitType:    unitType,
		UnitValue:   unitValue,
		UnitUnit:    unitUnit,
		SourceLink:  sourceLink,
		ImageURL:    optional(rec.Get(colImage)),
		CreatedAt:   s.now(),
	}
	if err := tx.InsertProduct(ctx, product); err != nil {
		return "", err
	}
	return product.ID, nil
}

// competitorUnit picks the first flagged measure among weight, volume and
// count. With no flag set all three results are nil.
func competitorUnit(rec domain.FeedRecord) (unitType *string, value *float64, unit *string) {
	for _, kind := range []string{domain.UnitTypeWeight, domain.UnitTypeVolume, domain.UnitTypeCount} {
		if !parseBool(rec.Get(competitorHasFlag + kind + competitorSuffix)) {
			continue
		}
		k := kind
		return &k,
			ParseNumeric(rec.Get("s_" + kind + "_value" + competitorSuffix)),
			optional(rec.Get("s_" + kind + "_unit" + competitorSuffix))
	}
	return nil, nil, nil
}

func unitTypeOrItem(unitType *string) string {
	if unitType == nil {
		return domain.UnitTypeItem
	}
	return *unitType
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "t":
		return true
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
