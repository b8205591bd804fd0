package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pricelens/backend/internal/domain"
)

var (
	_ domain.IngestRepository = (*Store)(nil)
	_ domain.IngestTx         = (*ingestTx)(nil)
)

// WithinTx runs fn in one transaction, committing only when fn succeeds.
// A panic in fn rolls the transaction back and is re-raised.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.IngestTx) error) (txErr error) {
	const op = "Store.WithinTx"
	log := slog.With("op", op)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Error("failed to rollback tx", "err", err)
			}
			panic(p)
		}
		if txErr == nil {
			if err := tx.Commit(); err != nil {
				txErr = fmt.Errorf("%s: failed to commit: %w", op, err)
			}
			return
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	return fn(&ingestTx{tx: tx, dialect: s.dialect})
}

type ingestTx struct {
	tx      *sql.Tx
	dialect dialect
}

func (t *ingestTx) FindProductID(ctx context.Context, vendor string, sourceLink *string) (string, error) {
	if sourceLink == nil {
		return "", domain.ErrNotFound
	}

	q := &query{d: t.dialect}
	stmt := "SELECT id FROM products WHERE vendor = " + q.arg(vendor) +
		" AND source_link = " + q.arg(*sourceLink) + " ORDER BY created_at, id LIMIT 1"

	var id string
	err := t.tx.QueryRowContext(ctx, stmt, q.args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find product: %w", err)
	}
	return id, nil
}

func (t *ingestTx) InsertProduct(ctx context.Context, p *domain.Product) error {
	q := &query{d: t.dialect}
	stmt := `INSERT INTO products (` + productColumns + `) VALUES (` +
		q.arg(p.ID) + ", " + q.arg(p.Title) + ", " + q.arg(p.Description) + ", " +
		q.arg(p.Vendor) + ", " + q.arg(p.BasePrice) + ", " + q.arg(p.Currency) + ", " +
		q.arg(p.UnitType) + ", " + q.arg(p.UnitValue) + ", " + q.arg(p.UnitUnit) + ", " +
		q.arg(p.SourceLink) + ", " + q.arg(p.ImageURL) + ", " + q.arg(p.CreatedAt.UTC()) + ")"

	if _, err := t.tx.ExecContext(ctx, stmt, q.args...); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (t *ingestTx) InsertCompetitorProduct(ctx context.Context, c *domain.CompetitorProduct) error {
	q := &query{d: t.dialect}
	stmt := `INSERT INTO competitor_products (` + competitorProductColumns + `) VALUES (` +
		q.arg(c.ID) + ", " + q.arg(c.CompetitorVendor) + ", " + q.arg(c.Title) + ", " +
		q.arg(c.Price) + ", " + q.arg(c.Currency) + ", " + q.arg(c.UnitType) + ", " +
		q.arg(c.UnitValue) + ", " + q.arg(c.UnitUnit) + ", " + q.arg(c.ProductURL) + ", " +
		q.arg(c.CreatedAt.UTC()) + ")"

	if _, err := t.tx.ExecContext(ctx, stmt, q.args...); err != nil {
		return fmt.Errorf("insert competitor product: %w", err)
	}
	return nil
}

func (t *ingestTx) InsertMatch(ctx context.Context, m *domain.ProductMatch) error {
	q := &query{d: t.dialect}
	stmt := `INSERT INTO product_matches (id, product_id, competitor_product_id, matching_score,
       exact_match, brand_match, image_similarity, match_source, created_at) VALUES (` +
		q.arg(m.ID) + ", " + q.arg(m.ProductID) + ", " + q.arg(m.CompetitorProductID) + ", " +
		q.arg(m.MatchingScore) + ", " + q.arg(m.ExactMatch) + ", " + q.arg(m.BrandMatch) + ", " +
		q.arg(m.ImageSimilarity) + ", " + q.arg(m.MatchSource) + ", " + q.arg(m.CreatedAt.UTC()) + ")"

	if _, err := t.tx.ExecContext(ctx, stmt, q.args...); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (t *ingestTx) InsertNormalizedPrice(ctx context.Context, n *domain.NormalizedPrice) error {
	q := &query{d: t.dialect}
	stmt := `INSERT INTO normalized_prices (id, product_match_id, our_unit_price,
       competitor_unit_price, unit_type, created_at) VALUES (` +
		q.arg(n.ID) + ", " + q.arg(n.ProductMatchID) + ", " + q.arg(n.OurUnitPrice) + ", " +
		q.arg(n.CompetitorUnitPrice) + ", " + q.arg(n.UnitType) + ", " + q.arg(n.CreatedAt.UTC()) + ")"

	if _, err := t.tx.ExecContext(ctx, stmt, q.args...); err != nil {
		return fmt.Errorf("insert normalized price: %w", err)
	}
	return nil
}
