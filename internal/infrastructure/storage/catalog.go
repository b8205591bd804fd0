package storage

import (
	"context"
	"fmt"

	"github.com/pricelens/backend/internal/domain"
)

var _ domain.CatalogRepository = (*Store)(nil)

const productColumns = `id, title, description, vendor, base_price, currency,
       unit_type, unit_value, unit_unit, source_link, image_url, created_at`

const competitorProductColumns = `id, competitor_vendor, title, price, currency,
       unit_type, unit_value, unit_unit, product_url, created_at`

func (s *Store) productConds(q *query, f domain.ProductFilter) []string {
	var conds []string
	if f.Vendor != "" {
		conds = append(conds, "vendor = "+q.arg(f.Vendor))
	}
	if f.Search != "" {
		conds = append(conds, "title "+s.dialect.containsOp+" "+q.arg("%"+f.Search+"%"))
	}
	return conds
}

func competitorConds(q *query, f domain.CompetitorProductFilter) []string {
	if f.CompetitorVendor == "" {
		return nil
	}
	return []string{"competitor_vendor = " + q.arg(f.CompetitorVendor)}
}

// ListProducts returns products newest first
func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter, offset, limit int) ([]domain.Product, error) {
	const op = "Store.ListProducts"

	q := &query{d: s.dialect}
	stmt := "SELECT " + productColumns + " FROM products" + where(s.productConds(q, filter))
	stmt += " ORDER BY created_at DESC, id LIMIT " + q.arg(limit) + " OFFSET " + q.arg(offset)

	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var (
			p  domain.Product
			ts dbTime
		)
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Vendor, &p.BasePrice, &p.Currency,
			&p.UnitType, &p.UnitValue, &p.UnitUnit, &p.SourceLink, &p.ImageURL, &ts,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.CreatedAt = ts.Time
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// CountProducts counts products passing filter
func (s *Store) CountProducts(ctx context.Context, filter domain.ProductFilter) (int, error) {
	const op = "Store.CountProducts"

	q := &query{d: s.dialect}
	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where(s.productConds(q, filter)), q.args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

// ListCompetitorProducts returns competitor listings newest first
func (s *Store) ListCompetitorProducts(ctx context.Context, filter domain.CompetitorProductFilter, offset, limit int) ([]domain.CompetitorProduct, error) {
	const op = "Store.ListCompetitorProducts"

	q := &query{d: s.dialect}
	stmt := "SELECT " + competitorProductColumns + " FROM competitor_products" + where(competitorConds(q, filter))
	stmt += " ORDER BY created_at DESC, id LIMIT " + q.arg(limit) + " OFFSET " + q.arg(offset)

	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.CompetitorProduct
	for rows.Next() {
		var (
			c  domain.CompetitorProduct
			ts dbTime
		)
		if err := rows.Scan(
			&c.ID, &c.CompetitorVendor, &c.Title, &c.Price, &c.Currency,
			&c.UnitType, &c.UnitValue, &c.UnitUnit, &c.ProductURL, &ts,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c.CreatedAt = ts.Time
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// CountCompetitorProducts counts competitor listings passing filter
func (s *Store) CountCompetitorProducts(ctx context.Context, filter domain.CompetitorProductFilter) (int, error) {
	const op = "Store.CountCompetitorProducts"

	q := &query{d: s.dialect}
	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM competitor_products"+where(competitorConds(q, filter)), q.args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}
