package domain

import "github.com/shopspring/decimal"

// MatchFilter narrows match queries. Empty fields are not applied.
// Both fields compare by exact, case-sensitive equality.
type MatchFilter struct {
	Vendor           string
	CompetitorVendor string
}

// PriceFields are the raw pricing columns of one side of a comparison
type PriceFields struct {
	Price     decimal.NullDecimal
	UnitType  *string
	UnitValue decimal.NullDecimal
	UnitUnit  *string
	// Normalized is the unit price persisted at ingestion, if any
	Normalized decimal.NullDecimal
}

// JoinedMatchRow is a product match joined with both products and the
// optional normalized price row
type JoinedMatchRow struct {
	MatchID             string
	ProductID           string
	CompetitorProductID string
	ProductTitle        string
	CompetitorTitle     *string
	ProductVendor       *string
	CompetitorVendor    *string
	MatchingScore       decimal.NullDecimal
	ExactMatch          bool
	BrandMatch          bool
	Ours                PriceFields
	Competitor          PriceFields
}

// ProductFilter narrows product listings
type ProductFilter struct {
	Vendor string
	Search string
}

// CompetitorProductFilter narrows competitor listings
type CompetitorProductFilter struct {
	CompetitorVendor string
}

// FeedRecord is one header-keyed row of a pricing feed
type FeedRecord map[string]string

// Get returns the value for column, or "" when absent
func (r FeedRecord) Get(column string) string {
	return r[column]
}
