package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit types understood by the unit normalizer
const (
	UnitTypeWeight = "weight"
	UnitTypeVolume = "volume"
	UnitTypeCount  = "count"
	UnitTypeItem   = "item"
)

// DefaultCurrency is applied to rows ingested without a currency column
const DefaultCurrency = "MYR"

// Product represents one internal catalog SKU
type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Vendor      string          `json:"vendor"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Currency    string          `json:"currency"`
	UnitType    *string         `json:"unitType"`
	UnitValue   *float64        `json:"unitValue"`
	UnitUnit    *string         `json:"unitUnit"`
	SourceLink  *string         `json:"sourceLink"`
	ImageURL    *string         `json:"imageUrl"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// CompetitorProduct represents one scraped competitor listing
type CompetitorProduct struct {
	ID               string          `json:"id"`
	CompetitorVendor string          `json:"competitorVendor"`
	Title            *string         `json:"title"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	UnitType         *string         `json:"unitType"`
	UnitValue        *float64        `json:"unitValue"`
	UnitUnit         *string         `json:"unitUnit"`
	ProductURL       *string         `json:"productUrl"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// ProductMatch links a Product to a CompetitorProduct.
// How the match was decided is outside this service; the score and flags
// arrive with the ingested data.
type ProductMatch struct {
	ID                  string
	ProductID           string
	CompetitorProductID string
	MatchingScore       *float64 // 0.00-1.00
	ExactMatch          bool
	BrandMatch          bool
	ImageSimilarity     *float64
	MatchSource         string
	CreatedAt           time.Time
}

// NormalizedPrice caches unit prices computed at ingestion time.
// When present it wins over recomputation from raw fields.
type NormalizedPrice struct {
	ID                  string
	ProductMatchID      string
	OurUnitPrice        float64
	CompetitorUnitPrice float64
	UnitType            *string
	CreatedAt           time.Time
}
