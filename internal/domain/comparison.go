package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Confidence is the trust tier of a product/competitor match
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfidenceScope restricts pattern aggregation to a subset of matches
type ConfidenceScope string

const (
	ConfidenceScopeAll  ConfidenceScope = "all"
	ConfidenceScopeHigh ConfidenceScope = "high"
)

// Valid reports whether s is a known scope
func (s ConfidenceScope) Valid() bool {
	return s == ConfidenceScopeAll || s == ConfidenceScopeHigh
}

// Overpriced is a three-valued verdict. The zero value is OverpricedUnknown,
// which is used whenever no price index could be computed.
type Overpriced int8

const (
	OverpricedUnknown Overpriced = iota
	OverpricedNo
	OverpricedYes
)

// OverpricedFrom converts a known comparison result into a verdict
func OverpricedFrom(overpriced bool) Overpriced {
	if overpriced {
		return OverpricedYes
	}
	return OverpricedNo
}

// MarshalJSON encodes the verdict as true, false or null
func (o Overpriced) MarshalJSON() ([]byte, error) {
	switch o {
	case OverpricedYes:
		return []byte("true"), nil
	case OverpricedNo:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes true, false or null
func (o *Overpriced) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true":
		*o = OverpricedYes
	case "false":
		*o = OverpricedNo
	default:
		*o = OverpricedUnknown
	}
	return nil
}

func (o Overpriced) String() string {
	switch o {
	case OverpricedYes:
		return "yes"
	case OverpricedNo:
		return "no"
	default:
		return "unknown"
	}
}

// EnrichedComparison is one match row with its pricing verdict attached.
// Product-level fields are carried for grouping and omitted from the
// per-competitor JSON entry.
type EnrichedComparison struct {
	ProductID           string              `json:"-"`
	ProductTitle        string              `json:"-"`
	ProductPrice        decimal.NullDecimal `json:"-"`
	Vendor              *string             `json:"-"`
	CompetitorProductID string              `json:"competitorProductId"`
	CompetitorTitle     *string             `json:"competitorTitle"`
	CompetitorPrice     decimal.NullDecimal `json:"competitorPrice"`
	CompetitorVendor    *string             `json:"competitorVendor"`
	OurUnitPrice        *float64            `json:"ourUnitPrice"`
	CompetitorUnitPrice *float64            `json:"competitorUnitPrice"`
	PriceIndex          *float64            `json:"priceIndex"`
	IsOverpriced        Overpriced          `json:"isOverpriced"`
	Confidence          Confidence          `json:"confidence"`
	MatchingScore       *float64            `json:"matchingScore"`
	ExactMatch          bool                `json:"exactMatch"`
}

// GroupedProduct is one of our products with every competitor comparison,
// newest match first
type GroupedProduct struct {
	ProductID    string               `json:"productId"`
	ProductTitle string               `json:"productTitle"`
	ProductPrice decimal.NullDecimal  `json:"productPrice"`
	Vendor       *string              `json:"vendor"`
	Competitors  []EnrichedComparison `json:"competitors"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	HasNextPage bool `json:"hasNextPage"`
}

// OverpricedQuery holds pre-validated overpriced report parameters
type OverpricedQuery struct {
	Page      int
	Limit     int
	Threshold float64
	Filter    MatchFilter
}

// OverpricedMeta echoes report parameters back to the caller
type OverpricedMeta struct {
	Threshold float64 `json:"threshold"`
}

// OverpricedReport is one page of grouped comparisons
type OverpricedReport struct {
	Data       []GroupedProduct `json:"data"`
	Pagination Pagination       `json:"pagination"`
	Meta       OverpricedMeta   `json:"meta"`
}

// PatternQuery holds pre-validated pattern report parameters
type PatternQuery struct {
	Threshold       float64
	Filter          MatchFilter
	ConfidenceScope ConfidenceScope
}

// VendorStat summarises overpricing for one of our vendors
type VendorStat struct {
	Vendor                string  `json:"vendor"`
	OverpricedRate        float64 `json:"overpricedRate"`
	ProductOverpricedRate float64 `json:"productOverpricedRate"`
	TotalProducts         int     `json:"totalProducts"`
}

// SeverityBuckets partitions price indices by distance above the threshold
type SeverityBuckets struct {
	Acceptable         int `json:"acceptable"`
	Overpriced         int `json:"overpriced"`
	SeverelyOverpriced int `json:"severelyOverpriced"`
}

// CompetitorStat summarises how one competitor prices against us
type CompetitorStat struct {
	CompetitorVendor string          `json:"competitorVendor"`
	CheaperRate      float64         `json:"cheaperRate"`
	AvgPriceIndex    *float64        `json:"avgPriceIndex"`
	MedianPriceIndex *float64        `json:"medianPriceIndex"`
	Severity         SeverityBuckets `json:"severity"`
	TotalComparisons int             `json:"totalComparisons"`
}

// PatternMeta echoes report parameters back to the caller
type PatternMeta struct {
	Threshold       float64         `json:"threshold"`
	ConfidenceScope ConfidenceScope `json:"confidenceScope"`
}

// PatternReport holds vendor and competitor pricing statistics
type PatternReport struct {
	Competitors []CompetitorStat `json:"competitors"`
	Vendors     []VendorStat     `json:"vendors"`
	Meta        PatternMeta      `json:"meta"`
}

// IngestSummary counts the outcome of one ingested file
type IngestSummary struct {
	IngestedRows int `json:"ingestedRows"`
	SkippedRows  int `json:"skippedRows"`
}

// ProductListing is one page of catalog products
type ProductListing struct {
	Data       []Product  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CompetitorProductListing is one page of competitor listings
type CompetitorProductListing struct {
	Data       []CompetitorProduct `json:"data"`
	Pagination Pagination          `json:"pagination"`
}

// ProductRecency is a product id tagged with its most recent match time
type ProductRecency struct {
	ProductID     string
	LastMatchedAt time.Time
}
