package usecase

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricelens/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data       map[string][]byte
	generation uint64
	getError   error
	setError   error
	getCalls   int
	setCalls   int
	clearCalls int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.getCalls++
	if m.getError != nil {
		return nil, m.getError
	}
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) SetIfGeneration(ctx context.Context, generation uint64, key string, value []byte, ttl time.Duration) error {
	if generation != m.generation {
		return nil
	}
	return m.Set(ctx, key, value, ttl)
}

func (m *MockCacheRepository) Generation(ctx context.Context) (uint64, error) {
	return m.generation, nil
}

func (m *MockCacheRepository) Clear(ctx context.Context) error {
	m.clearCalls++
	m.generation++
	m.data = make(map[string][]byte)
	return nil
}

// MockMatchRepository serves canned rows and records the calls it receives
type MockMatchRepository struct {
	recency []domain.ProductRecency
	rows    []domain.JoinedMatchRow
	err     error
	// onFetch runs before rows are returned, standing in for a concurrent writer
	onFetch func()

	recencyCalls int
	rowsCalls    int
	allCalls     int
	lastIDs      []string
	lastFilter   domain.MatchFilter
}

func (m *MockMatchRepository) DistinctProductIDsByRecency(ctx context.Context, filter domain.MatchFilter) ([]domain.ProductRecency, error) {
	m.recencyCalls++
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.ProductRecency, len(m.recency))
	copy(out, m.recency)
	return out, nil
}

func (m *MockMatchRepository) MatchRowsForProducts(ctx context.Context, productIDs []string, filter domain.MatchFilter) ([]domain.JoinedMatchRow, error) {
	m.rowsCalls++
	m.lastIDs = productIDs
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	if m.onFetch != nil {
		m.onFetch()
	}
	want := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	var out []domain.JoinedMatchRow
	for _, r := range m.rows {
		if want[r.ProductID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockMatchRepository) AllMatchRows(ctx context.Context, filter domain.MatchFilter) ([]domain.JoinedMatchRow, error) {
	m.allCalls++
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	if m.onFetch != nil {
		m.onFetch()
	}
	return m.rows, nil
}

// MockIngestRepository keeps inserted records in memory. Records written by
// a failed unit of work are discarded.
type MockIngestRepository struct {
	products    []*domain.Product
	competitors []*domain.CompetitorProduct
	matches     []*domain.ProductMatch
	normalized  []*domain.NormalizedPrice

	insertMatchError error
}

func (m *MockIngestRepository) WithinTx(ctx context.Context, fn func(tx domain.IngestTx) error) error {
	tx := &mockIngestTx{repo: m}
	if err := fn(tx); err != nil {
		return err
	}
	m.products = append(m.products, tx.products...)
	m.competitors = append(m.competitors, tx.competitors...)
	m.matches = append(m.matches, tx.matches...)
	m.normalized = append(m.normalized, tx.normalized...)
	return nil
}

type mockIngestTx struct {
	repo        *MockIngestRepository
	products    []*domain.Product
	competitors []*domain.CompetitorProduct
	matches     []*domain.ProductMatch
	normalized  []*domain.NormalizedPrice
}

func (t *mockIngestTx) FindProductID(ctx context.Context, vendor string, sourceLink *string) (string, error) {
	if sourceLink == nil {
		return "", domain.ErrNotFound
	}
	for _, p := range append(append([]*domain.Product{}, t.repo.products...), t.products...) {
		if p.Vendor == vendor && p.SourceLink != nil && *p.SourceLink == *sourceLink {
			return p.ID, nil
		}
	}
	return "", domain.ErrNotFound
}

func (t *mockIngestTx) InsertProduct(ctx context.Context, p *domain.Product) error {
	t.products = append(t.products, p)
	return nil
}

func (t *mockIngestTx) InsertCompetitorProduct(ctx context.Context, p *domain.CompetitorProduct) error {
	t.competitors = append(t.competitors, p)
	return nil
}

func (t *mockIngestTx) InsertMatch(ctx context.Context, m *domain.ProductMatch) error {
	if t.repo.insertMatchError != nil {
		return t.repo.insertMatchError
	}
	t.matches = append(t.matches, m)
	return nil
}

func (t *mockIngestTx) InsertNormalizedPrice(ctx context.Context, n *domain.NormalizedPrice) error {
	t.normalized = append(t.normalized, n)
	return nil
}

// MockFeed is an in-memory domain.FeedOpener
type MockFeed struct {
	records  []domain.FeedRecord
	openErr  error
	readErr  error
	openPath string
	closed   bool
}

func (f *MockFeed) Open(path string) (domain.FeedReader, error) {
	f.openPath = path
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &mockFeedReader{feed: f}, nil
}

type mockFeedReader struct {
	feed *MockFeed
	pos  int
}

func (r *mockFeedReader) Read() (domain.FeedRecord, error) {
	if r.pos >= len(r.feed.records) {
		if r.feed.readErr != nil {
			return nil, r.feed.readErr
		}
		return nil, io.EOF
	}
	rec := r.feed.records[r.pos]
	r.pos++
	return rec, nil
}

func (r *mockFeedReader) Close() error {
	r.feed.closed = true
	return nil
}

var errStorage = errors.New("connection refused")

func ptr[T any](v T) *T { return &v }

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// weightRow builds a match row priced by weight on both sides
func weightRow(productID, competitorID, vendor, competitorVendor string, ourPrice, ourGrams, compPrice, compGrams string) domain.JoinedMatchRow {
	return domain.JoinedMatchRow{
		MatchID:             productID + "-" + competitorID,
		ProductID:           productID,
		CompetitorProductID: competitorID,
		ProductTitle:        "Product " + productID,
		CompetitorTitle:     ptr("Competitor " + competitorID),
		ProductVendor:       ptr(vendor),
		CompetitorVendor:    ptr(competitorVendor),
		MatchingScore:       dec("0.90"),
		ExactMatch:          true,
		Ours: domain.PriceFields{
			Price:     dec(ourPrice),
			UnitType:  ptr(domain.UnitTypeWeight),
			UnitValue: dec(ourGrams),
			UnitUnit:  ptr("g"),
		},
		Competitor: domain.PriceFields{
			Price:     dec(compPrice),
			UnitType:  ptr(domain.UnitTypeWeight),
			UnitValue: dec(compGrams),
			UnitUnit:  ptr("g"),
		},
	}
}
