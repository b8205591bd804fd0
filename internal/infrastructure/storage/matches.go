package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pricelens/backend/internal/domain"
)

var _ domain.MatchRepository = (*Store)(nil)

// joinedMatchSelect joins a match with both products and its optional
// normalized price row
const joinedMatchSelect = `
SELECT pm.id, pm.product_id, pm.competitor_product_id,
       p.title, cp.title, p.vendor, cp.competitor_vendor,
       pm.matching_score, pm.exact_match, pm.brand_match,
       p.base_price, p.unit_type, p.unit_value, p.unit_unit,
       cp.price, cp.unit_type, cp.unit_value, cp.unit_unit,
       np.our_unit_price, np.competitor_unit_price
FROM product_matches pm
JOIN products p ON p.id = pm.product_id
JOIN competitor_products cp ON cp.id = pm.competitor_product_id
LEFT JOIN normalized_prices np ON np.product_match_id = pm.id`

// matchFilterConds renders the vendor filters; empty values are skipped
func matchFilterConds(q *query, f domain.MatchFilter) []string {
	var conds []string
	if f.Vendor != "" {
		conds = append(conds, "p.vendor = "+q.arg(f.Vendor))
	}
	if f.CompetitorVendor != "" {
		conds = append(conds, "cp.competitor_vendor = "+q.arg(f.CompetitorVendor))
	}
	return conds
}

// DistinctProductIDsByRecency returns every product with a qualifying match,
// tagged with its latest match time. Order is left to the caller.
func (s *Store) DistinctProductIDsByRecency(ctx context.Context, filter domain.MatchFilter) ([]domain.ProductRecency, error) {
	const op = "Store.DistinctProductIDsByRecency"

	q := &query{d: s.dialect}
	stmt := `
SELECT pm.product_id, MAX(pm.created_at)
FROM product_matches pm
JOIN products p ON p.id = pm.product_id
JOIN competitor_products cp ON cp.id = pm.competitor_product_id` +
		where(matchFilterConds(q, filter)) + `
GROUP BY pm.product_id`

	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.ProductRecency
	for rows.Next() {
		var (
			r  domain.ProductRecency
			ts dbTime
		)
		if err := rows.Scan(&r.ProductID, &ts); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		r.LastMatchedAt = ts.Time
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// MatchRowsForProducts returns all qualifying matches of productIDs, newest first
func (s *Store) MatchRowsForProducts(ctx context.Context, productIDs []string, filter domain.MatchFilter) ([]domain.JoinedMatchRow, error) {
	const op = "Store.MatchRowsForProducts"

	if len(productIDs) == 0 {
		return nil, nil
	}

	q := &query{d: s.dialect}
	conds := []string{"pm.product_id IN (" + q.list(productIDs) + ")"}
	conds = append(conds, matchFilterConds(q, filter)...)

	rows, err := s.queryMatchRows(ctx, joinedMatchSelect+where(conds)+"\nORDER BY pm.created_at DESC, pm.id", q.args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

// AllMatchRows returns every qualifying match, newest first
func (s *Store) AllMatchRows(ctx context.Context, filter domain.MatchFilter) ([]domain.JoinedMatchRow, error) {
	const op = "Store.AllMatchRows"

	q := &query{d: s.dialect}
	stmt := joinedMatchSelect + where(matchFilterConds(q, filter)) + "\nORDER BY pm.created_at DESC, pm.id"

	rows, err := s.queryMatchRows(ctx, stmt, q.args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

func (s *Store) queryMatchRows(ctx context.Context, stmt string, args []any) ([]domain.JoinedMatchRow, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JoinedMatchRow
	for rows.Next() {
		r, err := scanJoinedMatchRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanJoinedMatchRow(rows *sql.Rows) (domain.JoinedMatchRow, error) {
	var r domain.JoinedMatchRow
	err := rows.Scan(
		&r.MatchID, &r.ProductID, &r.CompetitorProductID,
		&r.ProductTitle, &r.CompetitorTitle, &r.ProductVendor, &r.CompetitorVendor,
		&r.MatchingScore, &r.ExactMatch, &r.BrandMatch,
		&r.Ours.Price, &r.Ours.UnitType, &r.Ours.UnitValue, &r.Ours.UnitUnit,
		&r.Competitor.Price, &r.Competitor.UnitType, &r.Competitor.UnitValue, &r.Competitor.UnitUnit,
		&r.Ours.Normalized, &r.Competitor.Normalized,
	)
	return r, err
}
