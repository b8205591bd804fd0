package usecase

import "github.com/pricelens/backend/internal/domain"

// SevereOverpricedIndex is the price index above which a comparison is
// counted as severely overpriced
const SevereOverpricedIndex = 1.30

// DefaultThreshold is the price index above which a product is overpriced
// when the caller does not choose one
const DefaultThreshold = 1.1

// PriceIndex divides our unit price by the competitor's. It is nil when
// either side is unknown or the competitor unit price is zero.
func PriceIndex(ourUnitPrice, competitorUnitPrice *float64) *float64 {
	if ourUnitPrice == nil || competitorUnitPrice == nil || *competitorUnitPrice == 0 {
		return nil
	}
	idx := *ourUnitPrice / *competitorUnitPrice
	return &idx
}

// overpricedVerdict compares a price index with the threshold
func overpricedVerdict(priceIndex *float64, threshold float64) domain.Overpriced {
	if priceIndex == nil {
		return domain.OverpricedUnknown
	}
	return domain.OverpricedFrom(*priceIndex > threshold)
}

// EnrichMatch turns one joined match row into a priced comparison
func EnrichMatch(row domain.JoinedMatchRow, threshold float64) domain.EnrichedComparison {
	ourUnitPrice := ResolveUnitPrice(row.Ours)
	competitorUnitPrice := ResolveUnitPrice(row.Competitor)
	priceIndex := PriceIndex(ourUnitPrice, competitorUnitPrice)
	matchingScore := ParseNumeric(row.MatchingScore)

	return domain.EnrichedComparison{
		ProductID:           row.ProductID,
		ProductTitle:        row.ProductTitle,
		ProductPrice:        row.Ours.Price,
		Vendor:              row.ProductVendor,
		CompetitorProductID: row.CompetitorProductID,
		CompetitorTitle:     row.CompetitorTitle,
		CompetitorPrice:     row.Competitor.Price,
		CompetitorVendor:    row.CompetitorVendor,
		OurUnitPrice:        ourUnitPrice,
		CompetitorUnitPrice: competitorUnitPrice,
		PriceIndex:          priceIndex,
		IsOverpriced:        overpricedVerdict(priceIndex, threshold),
		Confidence:          ClassifyConfidence(matchingScore, row.ExactMatch),
		MatchingScore:       matchingScore,
		ExactMatch:          row.ExactMatch,
	}
}
