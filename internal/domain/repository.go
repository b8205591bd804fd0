package domain

import (
	"context"
	"time"
)

// MatchRepository provides the joined match queries used by the reports
type MatchRepository interface {
	// DistinctProductIDsByRecency returns one entry per product with at
	// least one match passing filter
	DistinctProductIDsByRecency(ctx context.Context, filter MatchFilter) ([]ProductRecency, error)

	// MatchRowsForProducts returns every match of the given products passing
	// filter, newest match first
	MatchRowsForProducts(ctx context.Context, productIDs []string, filter MatchFilter) ([]JoinedMatchRow, error)

	// AllMatchRows returns every match passing filter
	AllMatchRows(ctx context.Context, filter MatchFilter) ([]JoinedMatchRow, error)
}

// CatalogRepository lists products on both sides of the comparison
type CatalogRepository interface {
	ListProducts(ctx context.Context, filter ProductFilter, offset, limit int) ([]Product, error)
	CountProducts(ctx context.Context, filter ProductFilter) (int, error)
	ListCompetitorProducts(ctx context.Context, filter CompetitorProductFilter, offset, limit int) ([]CompetitorProduct, error)
	CountCompetitorProducts(ctx context.Context, filter CompetitorProductFilter) (int, error)
}

// IngestRepository runs an ingestion unit of work in a single transaction
type IngestRepository interface {
	WithinTx(ctx context.Context, fn func(tx IngestTx) error) error
}

// IngestTx is the write side available inside an ingestion transaction
type IngestTx interface {
	// FindProductID returns ErrNotFound when no product has this vendor and
	// source link. A nil link never matches.
	FindProductID(ctx context.Context, vendor string, sourceLink *string) (string, error)
	InsertProduct(ctx context.Context, p *Product) error
	InsertCompetitorProduct(ctx context.Context, p *CompetitorProduct) error
	InsertMatch(ctx context.Context, m *ProductMatch) error
	InsertNormalizedPrice(ctx context.Context, n *NormalizedPrice) error
}

// HealthChecker reports whether the database is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// FeedReader iterates over the records of a pricing feed.
// Read returns io.EOF after the last record.
type FeedReader interface {
	Read() (FeedRecord, error)
	Close() error
}

// FeedOpener opens a pricing feed by path
type FeedOpener interface {
	Open(path string) (FeedReader, error)
}

// CacheRepository defines the interface for caching encoded report payloads.
// Every Clear advances the generation; SetIfGeneration is a no-op once the
// generation it was given is no longer current.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetIfGeneration(ctx context.Context, generation uint64, key string, value []byte, ttl time.Duration) error
	Generation(ctx context.Context) (uint64, error)
	Clear(ctx context.Context) error
}
