package expenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dawa-pos/dawa/internal/platform/db"
	"github.com/dawa-pos/dawa/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (Expense, error)
	List(ctx context.Context, req ListExpensesRequest) ([]Expense, error)
	Create(ctx context.Context, e Expense) (Expense, error)
	Update(ctx context.Context, e Expense) error
	Delete(ctx context.Context, id int64) error
	AccountExists(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const expenseColumns = `id, account_id, date, details, amount`

func scanExpense(row pgx.Row) (Expense, error) {
	var (
		e    Expense
		date time.Time
	)
	if err := row.Scan(&e.ID, &e.AccountID, &date, &e.Details, &e.Amount); err != nil {
		return Expense{}, err
	}
	e.Date = shared.NewDate(date)
	return e, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, fmt.Errorf("expense %d: %w", id, shared.ErrNotFound)
	}
	return e, err
}

func (r *repository) List(ctx context.Context, req ListExpensesRequest) ([]Expense, error) {
	var w db.Where
	if req.AccountID != nil {
		w.Add("account_id = ?", *req.AccountID)
	}
	if req.Date.From != nil {
		w.Add("date >= ?", req.Date.From.Time)
	}
	if req.Date.To != nil {
		w.Add("date <= ?", req.Date.To.Time)
	}
	if req.Search != "" {
		w.Add("details ILIKE ?", db.Contains(req.Search))
	}
	rows, err := r.db.Query(ctx, `SELECT `+expenseColumns+` FROM expenses`+w.SQL()+` ORDER BY date DESC, id`, w.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, e Expense) (Expense, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO expenses (account_id, date, details, amount) VALUES ($1, $2, $3, $4) RETURNING id`,
		e.AccountID, e.Date.Time, e.Details, e.Amount).Scan(&e.ID)
	if db.IsForeignKeyViolation(err) {
		return Expense{}, shared.ReferenceNotFound("account_id")
	}
	return e, err
}

func (r *repository) Update(ctx context.Context, e Expense) error {
	_, err := r.db.Exec(ctx, `UPDATE expenses SET account_id = $1, date = $2, details = $3, amount = $4 WHERE id = $5`,
		e.AccountID, e.Date.Time, e.Details, e.Amount, e.ID)
	if db.IsForeignKeyViolation(err) {
		return shared.ReferenceNotFound("account_id")
	}
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	return err
}

func (r *repository) AccountExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}
