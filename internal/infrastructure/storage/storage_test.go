package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

var t0 = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: "file::memory:", ConnectAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, Migrate(store.DB(), store.Driver()))
	return store
}

func ptr[T any](v T) *T { return &v }

// seed inserts one match per entry; entries sharing a product id share the product
type seedMatch struct {
	productID, vendor        string
	competitorID, compVendor string
	ourPrice, compPrice      string
	score                    *float64
	exact                    bool
	at                       time.Time
	ourUnit, compUnit        *float64
}

func seed(t *testing.T, store *Store, matches []seedMatch) {
	t.Helper()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx domain.IngestTx) error {
		seen := map[string]bool{}
		for i, m := range matches {
			if !seen[m.productID] {
				seen[m.productID] = true
				if err := tx.InsertProduct(ctx, &domain.Product{
					ID:         m.productID,
					Title:      "Product " + m.productID,
					Vendor:     m.vendor,
					BasePrice:  decimal.RequireFromString(m.ourPrice),
					Currency:   domain.DefaultCurrency,
					UnitType:   ptr("weight"),
					UnitValue:  ptr(500.0),
					UnitUnit:   ptr("g"),
					SourceLink: ptr("https://shop.example/" + m.productID),
					CreatedAt:  m.at,
				}); err != nil {
					return err
				}
			}
			if err := tx.InsertCompetitorProduct(ctx, &domain.CompetitorProduct{
				ID:               m.competitorID,
				CompetitorVendor: m.compVendor,
				Title:            ptr("Rival " + m.competitorID),
				Price:            decimal.RequireFromString(m.compPrice),
				Currency:         domain.DefaultCurrency,
				UnitType:         ptr("weight"),
				UnitValue:        ptr(1.0),
				UnitUnit:         ptr("kg"),
				CreatedAt:        m.at,
			}); err != nil {
				return err
			}
			matchID := fmt.Sprintf("m%02d", i)
			if err := tx.InsertMatch(ctx, &domain.ProductMatch{
				ID:                  matchID,
				ProductID:           m.productID,
				CompetitorProductID: m.competitorID,
				MatchingScore:       m.score,
				ExactMatch:          m.exact,
				MatchSource:         "csv",
				CreatedAt:           m.at,
			}); err != nil {
				return err
			}
			if m.ourUnit != nil && m.compUnit != nil {
				if err := tx.InsertNormalizedPrice(ctx, &domain.NormalizedPrice{
					ID:                  "n" + matchID,
					ProductMatchID:      matchID,
					OurUnitPrice:        *m.ourUnit,
					CompetitorUnitPrice: *m.compUnit,
					UnitType:            ptr("weight"),
					CreatedAt:           m.at,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func defaultSeed() []seedMatch {
	return []seedMatch{
		{productID: "p1", vendor: "ours", competitorID: "c1", compVendor: "rival", ourPrice: "10.00", compPrice: "12.00",
			score: ptr(0.9), exact: true, at: t0, ourUnit: ptr(0.02), compUnit: ptr(0.012)},
		{productID: "p1", vendor: "ours", competitorID: "c2", compVendor: "other", ourPrice: "10.00", compPrice: "8.00",
			at: t0.Add(2 * time.Hour)},
		{productID: "p2", vendor: "ours", competitorID: "c3", compVendor: "rival", ourPrice: "5.00", compPrice: "5.00",
			at: t0.Add(time.Hour)},
		{productID: "p3", vendor: "theirs", competitorID: "c4", compVendor: "rival", ourPrice: "7.00", compPrice: "6.00",
			at: t0.Add(3 * time.Hour)},
	}
}

func TestStore_Ping(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, Migrate(store.DB(), store.Driver()), "second run reports no change")
}

func TestStore_DistinctProductIDsByRecency(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, defaultSeed())
	ctx := context.Background()

	got, err := store.DistinctProductIDsByRecency(ctx, domain.MatchFilter{})
	require.NoError(t, err)

	latest := map[string]time.Time{}
	for _, r := range got {
		latest[r.ProductID] = r.LastMatchedAt
	}
	assert.Len(t, latest, 3)
	assert.True(t, latest["p1"].Equal(t0.Add(2*time.Hour)), "p1 latest = %v", latest["p1"])
	assert.True(t, latest["p2"].Equal(t0.Add(time.Hour)))
	assert.True(t, latest["p3"].Equal(t0.Add(3*time.Hour)))

	got, err = store.DistinctProductIDsByRecency(ctx, domain.MatchFilter{Vendor: "ours", CompetitorVendor: "rival"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := []string{got[0].ProductID, got[1].ProductID}
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids)
	for _, r := range got {
		if r.ProductID == "p1" {
			assert.True(t, r.LastMatchedAt.Equal(t0), "filtered recency only counts rival matches")
		}
	}

	got, err = store.DistinctProductIDsByRecency(ctx, domain.MatchFilter{Vendor: "OURS"})
	require.NoError(t, err)
	assert.Empty(t, got, "vendor filter is case-sensitive")
}

func TestStore_MatchRowsForProducts(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, defaultSeed())

	rows, err := store.MatchRowsForProducts(context.Background(), []string{"p1", "p3"}, domain.MatchFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "c4", rows[0].CompetitorProductID, "newest match first")
	assert.Equal(t, "c2", rows[1].CompetitorProductID)
	assert.Equal(t, "c1", rows[2].CompetitorProductID)

	first := rows[2]
	assert.Equal(t, "p1", first.ProductID)
	assert.Equal(t, "Product p1", first.ProductTitle)
	assert.Equal(t, "ours", *first.ProductVendor)
	assert.Equal(t, "rival", *first.CompetitorVendor)
	assert.Equal(t, "Rival c1", *first.CompetitorTitle)
	assert.True(t, first.ExactMatch)
	assert.False(t, first.BrandMatch)
	require.True(t, first.MatchingScore.Valid)
	assert.True(t, first.MatchingScore.Decimal.Equal(decimal.RequireFromString("0.9")))
	assert.True(t, first.Ours.Price.Decimal.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, "weight", *first.Ours.UnitType)
	assert.True(t, first.Ours.UnitValue.Decimal.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "kg", *first.Competitor.UnitUnit)
	require.True(t, first.Ours.Normalized.Valid)
	assert.InDelta(t, 0.02, first.Ours.Normalized.Decimal.InexactFloat64(), 1e-12)
	assert.InDelta(t, 0.012, first.Competitor.Normalized.Decimal.InexactFloat64(), 1e-12)

	second := rows[1]
	assert.False(t, second.MatchingScore.Valid)
	assert.False(t, second.Ours.Normalized.Valid, "left join yields no normalized price")

	rows, err = store.MatchRowsForProducts(context.Background(), nil, domain.MatchFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_AllMatchRows(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, defaultSeed())

	rows, err := store.AllMatchRows(context.Background(), domain.MatchFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	rows, err = store.AllMatchRows(context.Background(), domain.MatchFilter{CompetitorVendor: "rival"})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, "rival", *r.CompetitorVendor)
	}
}

func TestStore_ListProducts(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, defaultSeed())
	ctx := context.Background()

	products, err := store.ListProducts(ctx, domain.ProductFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "p3", products[0].ID, "newest product first")
	assert.True(t, products[0].BasePrice.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, "MYR", products[0].Currency)
	assert.Equal(t, 500.0, *products[0].UnitValue)
	assert.True(t, products[0].CreatedAt.Equal(t0.Add(3*time.Hour)))

	products, err = store.ListProducts(ctx, domain.ProductFilter{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p2", products[0].ID)

	products, err = store.ListProducts(ctx, domain.ProductFilter{Search: "PRODUCT P1"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, products, 1, "search is case-insensitive")
	assert.Equal(t, "p1", products[0].ID)

	total, err := store.CountProducts(ctx, domain.ProductFilter{Vendor: "ours"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestStore_ListCompetitorProducts(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, defaultSeed())
	ctx := context.Background()

	listings, err := store.ListCompetitorProducts(ctx, domain.CompetitorProductFilter{CompetitorVendor: "rival"}, 0, 10)
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, "c4", listings[0].ID)
	assert.True(t, listings[0].Price.Equal(decimal.NewFromInt(6)))

	total, err := store.CountCompetitorProducts(ctx, domain.CompetitorProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestStore_WithinTx(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("rollback on error", func(t *testing.T) {
		err := store.WithinTx(ctx, func(tx domain.IngestTx) error {
			if err := tx.InsertProduct(ctx, &domain.Product{
				ID: "rolled-back", Title: "x", Vendor: "v", BasePrice: decimal.NewFromInt(1),
				Currency: "MYR", CreatedAt: t0,
			}); err != nil {
				return err
			}
			return fmt.Errorf("boom")
		})
		require.Error(t, err)

		total, err := store.CountProducts(ctx, domain.ProductFilter{})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("rollback on panic", func(t *testing.T) {
		assert.PanicsWithValue(t, "boom mid-file", func() {
			_ = store.WithinTx(ctx, func(tx domain.IngestTx) error {
				if err := tx.InsertProduct(ctx, &domain.Product{
					ID: "half", Title: "x", Vendor: "v", BasePrice: decimal.NewFromInt(1),
					Currency: "MYR", CreatedAt: t0,
				}); err != nil {
					return err
				}
				panic("boom mid-file")
			})
		})

		total, err := store.CountProducts(ctx, domain.ProductFilter{})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("find product by vendor and link", func(t *testing.T) {
		err := store.WithinTx(ctx, func(tx domain.IngestTx) error {
			if err := tx.InsertProduct(ctx, &domain.Product{
				ID: "kept", Title: "x", Vendor: "v", BasePrice: decimal.NewFromInt(1),
				Currency: "MYR", SourceLink: ptr("https://shop.example/x"), CreatedAt: t0,
			}); err != nil {
				return err
			}

			id, err := tx.FindProductID(ctx, "v", ptr("https://shop.example/x"))
			require.NoError(t, err)
			assert.Equal(t, "kept", id)

			_, err = tx.FindProductID(ctx, "other", ptr("https://shop.example/x"))
			assert.ErrorIs(t, err, domain.ErrNotFound)

			_, err = tx.FindProductID(ctx, "v", nil)
			assert.ErrorIs(t, err, domain.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("foreign keys are enforced", func(t *testing.T) {
		err := store.WithinTx(ctx, func(tx domain.IngestTx) error {
			return tx.InsertMatch(ctx, &domain.ProductMatch{
				ID: "orphan", ProductID: "missing", CompetitorProductID: "missing",
				MatchSource: "csv", CreatedAt: t0,
			})
		})
		assert.Error(t, err)
	})
}

func TestDialect_Placeholders(t *testing.T) {
	pg := &query{d: postgresDialect}
	assert.Equal(t, "$1", pg.arg("a"))
	assert.Equal(t, "$2, $3", pg.list([]string{"b", "c"}))
	assert.Len(t, pg.args, 3)

	lite := &query{d: sqliteDialect}
	assert.Equal(t, "?, ?", lite.list([]string{"a", "b"}))

	assert.Equal(t, "", where(nil))
	assert.Equal(t, " WHERE a AND b", where([]string{"a", "b"}))
}

func TestDBTime_Scan(t *testing.T) {
	var ts dbTime
	require.NoError(t, ts.Scan("2025-01-10 08:00:00.5+00:00"))
	assert.True(t, ts.Equal(t0.Add(500*time.Millisecond)))

	require.NoError(t, ts.Scan([]byte("2025-01-10T08:00:00Z")))
	assert.True(t, ts.Equal(t0))

	require.NoError(t, ts.Scan(t0.In(time.FixedZone("MYT", 8*3600))))
	assert.Equal(t, time.UTC, ts.Location())

	assert.Error(t, ts.Scan(42))
	assert.Error(t, ts.Scan("yesterday"))
}
