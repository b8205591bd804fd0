package http

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pricelens/backend/internal/domain"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// validationErrors collects per-parameter problems so a single 400 can
// report all of them
type validationErrors []string

func (v *validationErrors) add(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

// abort writes a 400 when any parameter was rejected
func (v validationErrors) abort(c *gin.Context) bool {
	if len(v) == 0 {
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   domain.ErrInvalidRequest.Error(),
		"details": []string(v),
	})
	return true
}

// queryNumber parses a query parameter. Blank, non-numeric and non-finite
// values report ok=false so the caller falls back to its default.
func queryNumber(c *gin.Context, name string) (float64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func (v *validationErrors) positiveInt(c *gin.Context, name string, def int) int {
	n, ok := queryNumber(c, name)
	if !ok {
		return def
	}
	if n != math.Trunc(n) || n < 1 {
		v.add("%s must be a positive integer", name)
		return def
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func (v *validationErrors) positiveFloat(c *gin.Context, name string, def float64) float64 {
	n, ok := queryNumber(c, name)
	if !ok {
		return def
	}
	if n <= 0 {
		v.add("%s must be positive", name)
		return def
	}
	return n
}

func (v *validationErrors) confidenceScope(c *gin.Context) domain.ConfidenceScope {
	raw := strings.TrimSpace(c.Query("confidenceScope"))
	if raw == "" {
		return domain.ConfidenceScopeAll
	}
	scope := domain.ConfidenceScope(raw)
	if !scope.Valid() {
		v.add("confidenceScope must be %q or %q", domain.ConfidenceScopeAll, domain.ConfidenceScopeHigh)
		return domain.ConfidenceScopeAll
	}
	return scope
}

func clampLimit(limit int) int {
	return min(max(limit, 1), maxLimit)
}

// trimmedQuery returns the trimmed parameter; empty means the filter is absent
func trimmedQuery(c *gin.Context, name string) string {
	return strings.TrimSpace(c.Query(name))
}

func matchFilter(c *gin.Context) domain.MatchFilter {
	return domain.MatchFilter{
		Vendor:           trimmedQuery(c, "vendor"),
		CompetitorVendor: trimmedQuery(c, "competitorVendor"),
	}
}
