package usecase

import (
	"math"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ParseNumeric coerces a loosely typed value into a finite number.
// nil, blank or unparseable strings, NaN and ±Inf all yield nil;
// malformed input is never reported as an error.
func ParseNumeric(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return finite(float64(n))
	case int64:
		return finite(float64(n))
	case *float64:
		if n == nil {
			return nil
		}
		return finite(*n)
	case string:
		return parseNumericString(n)
	case []byte:
		return parseNumericString(string(n))
	case decimal.Decimal:
		return finite(n.InexactFloat64())
	case decimal.NullDecimal:
		if !n.Valid {
			return nil
		}
		return finite(n.Decimal.InexactFloat64())
	default:
		return nil
	}
}

func parseNumericString(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return finite(f)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// normalizeWeightValue converts a weight to grams
func normalizeWeightValue(value float64, unit string) *float64 {
	switch strings.ToLower(unit) {
	case "g":
		return &value
	case "kg":
		grams := value * 1000
		return &grams
	}
	return nil
}

// normalizeVolumeValue converts a volume to milliliters
func normalizeVolumeValue(value float64, unit string) *float64 {
	switch strings.ToLower(unit) {
	case "ml":
		return &value
	case "l":
		ml := value * 1000
		return &ml
	}
	return nil
}

// normalizeUnitValue converts value into the base denominator of unitType
func normalizeUnitValue(unitType string, value float64, unit string) *float64 {
	switch unitType {
	case domain.UnitTypeWeight:
		return normalizeWeightValue(value, unit)
	case domain.UnitTypeVolume:
		return normalizeVolumeValue(value, unit)
	case domain.UnitTypeCount:
		if value > 0 {
			return &value
		}
	}
	return nil
}

// UnitPrice returns price per gram, per milliliter, per counted unit or per
// item, depending on unitType. Empty strings stand for absent unit data.
//
// The price check runs before anything else: a missing or zero price never
// yields a unit price, even for items.
func UnitPrice(price *float64, unitType string, unitValue *float64, unitUnit string) *float64 {
	if price == nil || *price == 0 || unitType == "" {
		return nil
	}

	if unitType == domain.UnitTypeItem {
		p := *price
		return &p
	}

	if unitValue == nil || *unitValue == 0 || unitUnit == "" {
		return nil
	}

	denominator := normalizeUnitValue(unitType, *unitValue, unitUnit)
	if denominator == nil || *denominator <= 0 {
		return nil
	}

	perUnit := *price / *denominator
	return &perUnit
}

// ResolveUnitPrice prefers the unit price persisted at ingestion and only
// falls back to recomputing from the raw columns when none was stored
func ResolveUnitPrice(f domain.PriceFields) *float64 {
	if normalized := ParseNumeric(f.Normalized); normalized != nil {
		return normalized
	}
	return UnitPrice(
		ParseNumeric(f.Price),
		deref(f.UnitType),
		ParseNumeric(f.UnitValue),
		deref(f.UnitUnit),
	)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
