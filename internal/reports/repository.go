package reports

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/shared"
)

// Store reads report aggregates.
type Store interface {
	SalesTotals(ctx context.Context, rng shared.DateRange) (Totals, error)
	PurchaseTotals(ctx context.Context, rng shared.DateRange) (Totals, error)
	ExpenseTotals(ctx context.Context, rng shared.DateRange) (Totals, error)
	SalesByCustomer(ctx context.Context, rng shared.DateRange) ([]CustomerSales, error)
	ProductSales(ctx context.Context, rng shared.DateRange, limit int) ([]ProductSales, error)
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewStore returns a Postgres-backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func dateWhere(col string, rng shared.DateRange) db.Where {
	var w db.Where
	if rng.From != nil {
		w.Add(col+" >= ?", rng.From.Time)
	}
	if rng.To != nil {
		w.Add(col+" <= ?", rng.To.Time)
	}
	return w
}

func (s *pgStore) SalesTotals(ctx context.Context, rng shared.DateRange) (Totals, error) {
	w := dateWhere("s.date", rng)
	var t Totals
	err := s.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT s.id), COALESCE(SUM(si.sale_price * si.quantity), 0)::bigint
FROM sales s LEFT JOIN sale_items si ON si.sale_id = s.id`+w.SQL(), w.Args()...).Scan(&t.Count, &t.Total)
	return t, err
}

func (s *pgStore) PurchaseTotals(ctx context.Context, rng shared.DateRange) (Totals, error) {
	w := dateWhere("date", rng)
	var t Totals
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0)::bigint FROM purchases`+w.SQL(), w.Args()...).
		Scan(&t.Count, &t.Total)
	return t, err
}

func (s *pgStore) ExpenseTotals(ctx context.Context, rng shared.DateRange) (Totals, error) {
	w := dateWhere("date", rng)
	var t Totals
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0)::bigint FROM expenses`+w.SQL(), w.Args()...).
		Scan(&t.Count, &t.Total)
	return t, err
}

func (s *pgStore) SalesByCustomer(ctx context.Context, rng shared.DateRange) ([]CustomerSales, error) {
	w := dateWhere("s.date", rng)
	rows, err := s.pool.Query(ctx, `SELECT s.customer_id, COALESCE(c.name, ''), COUNT(DISTINCT s.id),
	COALESCE(SUM(si.sale_price * si.quantity), 0)::bigint
FROM sales s
LEFT JOIN customers c ON c.id = s.customer_id
LEFT JOIN sale_items si ON si.sale_id = s.id`+w.SQL()+`
GROUP BY s.customer_id, c.name
ORDER BY 4 DESC, 2`, w.Args()...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CustomerSales, error) {
		var cs CustomerSales
		err := row.Scan(&cs.CustomerID, &cs.CustomerName, &cs.SaleCount, &cs.Total)
		return cs, err
	})
}

func (s *pgStore) ProductSales(ctx context.Context, rng shared.DateRange, limit int) ([]ProductSales, error) {
	w := dateWhere("s.date", rng)
	args := append(w.Args(), limit)
	rows, err := s.pool.Query(ctx, `SELECT p.id, p.name, SUM(si.quantity * ps.units)::bigint,
	SUM(si.sale_price * si.quantity)::bigint
FROM sale_items si
JOIN sales s ON s.id = si.sale_id
JOIN pack_sizes ps ON ps.id = si.pack_size_id
JOIN products p ON p.id = ps.product_id`+w.SQL()+`
GROUP BY p.id, p.name
ORDER BY 4 DESC, p.name
LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[ProductSales])
}
