package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pricelens/backend/internal/domain"
)

// OverpricedReporter builds paginated overpriced reports
type OverpricedReporter interface {
	BuildReport(ctx context.Context, q domain.OverpricedQuery) (*domain.OverpricedReport, error)
}

// PatternReporter builds vendor and competitor pattern reports
type PatternReporter interface {
	BuildReport(ctx context.Context, q domain.PatternQuery) (*domain.PatternReport, error)
}

// CatalogLister lists catalog and competitor products
type CatalogLister interface {
	ListProducts(ctx context.Context, page, limit int, filter domain.ProductFilter) (*domain.ProductListing, error)
	ListCompetitorProducts(ctx context.Context, page, limit int, filter domain.CompetitorProductFilter) (*domain.CompetitorProductListing, error)
}

// Ingester loads a pricing feed file into storage
type Ingester interface {
	Ingest(ctx context.Context, path string) (domain.IngestSummary, error)
}

// Services groups the collaborators a Handler dispatches to
type Services struct {
	Overpriced OverpricedReporter
	Patterns   PatternReporter
	Catalog    CatalogLister
	Ingest     Ingester
	Health     domain.HealthChecker
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc              Services
	defaultThreshold float64
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, defaultThreshold float64) *Handler {
	return &Handler{svc: svc, defaultThreshold: defaultThreshold}
}

// HealthCheck reports whether the database answers a trivial query
func (h *Handler) HealthCheck(c *gin.Context) {
	if h.svc.Health == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "ok", "db": "down"})
		return
	}

	if err := h.svc.Health.Ping(c.Request.Context()); err != nil {
		slog.WarnContext(c.Request.Context(), "health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "ok", "db": "down"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "up"})
}

// ListProducts handles GET /api/v1/products
func (h *Handler) ListProducts(c *gin.Context) {
	var errs validationErrors
	page := errs.positiveInt(c, "page", defaultPage)
	limit := clampLimit(errs.positiveInt(c, "limit", defaultLimit))
	if errs.abort(c) {
		return
	}

	listing, err := h.svc.Catalog.ListProducts(c.Request.Context(), page, limit, domain.ProductFilter{
		Vendor: trimmedQuery(c, "vendor"),
		Search: trimmedQuery(c, "search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// ListCompetitorProducts handles GET /api/v1/competitors/products
func (h *Handler) ListCompetitorProducts(c *gin.Context) {
	var errs validationErrors
	page := errs.positiveInt(c, "page", defaultPage)
	limit := clampLimit(errs.positiveInt(c, "limit", defaultLimit))
	if errs.abort(c) {
		return
	}

	listing, err := h.svc.Catalog.ListCompetitorProducts(c.Request.Context(), page, limit, domain.CompetitorProductFilter{
		CompetitorVendor: trimmedQuery(c, "competitorVendor"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// Overpriced handles GET /api/v1/analysis/overpriced
func (h *Handler) Overpriced(c *gin.Context) {
	var errs validationErrors
	page := errs.positiveInt(c, "page", defaultPage)
	limit := clampLimit(errs.positiveInt(c, "limit", defaultLimit))
	threshold := errs.positiveFloat(c, "threshold", h.defaultThreshold)
	if errs.abort(c) {
		return
	}

	report, err := h.svc.Overpriced.BuildReport(c.Request.Context(), domain.OverpricedQuery{
		Page:      page,
		Limit:     limit,
		Threshold: threshold,
		Filter:    matchFilter(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Patterns handles GET /api/v1/analysis/patterns
func (h *Handler) Patterns(c *gin.Context) {
	var errs validationErrors
	threshold := errs.positiveFloat(c, "threshold", h.defaultThreshold)
	scope := errs.confidenceScope(c)
	if errs.abort(c) {
		return
	}

	report, err := h.svc.Patterns.BuildReport(c.Request.Context(), domain.PatternQuery{
		Threshold:       threshold,
		Filter:          matchFilter(c),
		ConfidenceScope: scope,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

type ingestRequest struct {
	FilePath string `json:"filePath"`
}

// IngestCSV handles POST /api/v1/ingest/csv. An empty body ingests the
// configured default file.
func (h *Handler) IngestCSV(c *gin.Context) {
	var req ingestRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   domain.ErrInvalidRequest.Error(),
				"details": []string{"body must be a JSON object with an optional filePath"},
			})
			return
		}
	}

	summary, err := h.svc.Ingest.Ingest(c.Request.Context(), strings.TrimSpace(req.FilePath))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": summary})
}

// NotFound answers unknown routes
func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNotFound.Error()})
}

// respondError maps domain errors onto HTTP responses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidRequest.Error(), "details": []string{err.Error()}})
	case errors.Is(err, domain.ErrIngestFile):
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrIngestFile.Error(), "details": []string{err.Error()}})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNotFound.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": domain.ErrRateLimited.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
