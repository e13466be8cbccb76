package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/polkaapp/polka-api/internal/types"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PaymentsRepo = (*PostgresPaymentsRepo)(nil)

type PaymentsRepo interface {
	CreateOrder(ctx context.Context, order types.Order) error
	GetOrderByID(ctx context.Context, orderID string) (*types.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status types.OrderStatus) error
	// UpsertPayment records the provider's payment object locally, updating
	// the status on repeat notifications.
	UpsertPayment(ctx context.Context, payment types.Payment) error
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
}

type PostgresPaymentsRepo struct {
	db     DB
	logger *slog.Logger
}

func NewPostgresPaymentsRepo(db DB, logger *slog.Logger) *PostgresPaymentsRepo {
	return &PostgresPaymentsRepo{db: db, logger: logger}
}

const orderColumns = `id, user_id, order_number, total_amount, currency, status, created_at, updated_at`

func (r *PostgresPaymentsRepo) CreateOrder(ctx context.Context, order types.Order) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO orders (id, user_id, order_number, total_amount, currency, status)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID, order.UserID, order.OrderNumber, order.TotalAmount, order.Currency, order.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("order number %s already taken: %w", order.OrderNumber, types.ErrConflict)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *PostgresPaymentsRepo) GetOrderByID(ctx context.Context, orderID string) (*types.Order, error) {
	var o types.Order
	err := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID).
		Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.TotalAmount, &o.Currency,
			&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scanning order row: %w", err)
	}
	return &o, nil
}

func (r *PostgresPaymentsRepo) UpdateOrderStatus(ctx context.Context, orderID string, status types.OrderStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		orderID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresPaymentsRepo) UpsertPayment(ctx context.Context, payment types.Payment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payments (id, order_id, amount, currency, status)
         VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = now()`,
		payment.ID, payment.OrderID, payment.Amount, payment.Currency, payment.Status)
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	return nil
}

func (r *PostgresPaymentsRepo) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)`, orderNumber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking order number: %w", err)
	}
	return exists, nil
}
