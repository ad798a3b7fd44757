package sales

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/platform/db"
	"github.com/kitchenledger/backoffice/internal/shared"
)

// Repository persists orders and sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertOrderItem(ctx context.Context, item OrderItem) error
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	SetOrderStatus(ctx context.Context, id int64, status OrderStatus) error
	InsertSale(ctx context.Context, s Sale) (Sale, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	SetSaleStatus(ctx context.Context, id int64, status SaleStatus) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const orderColumns = `id, order_number, COALESCE(table_number, ''), COALESCE(customer_name, ''), status, subtotal, tax_amount,
    discount, total_amount, COALESCE(notes, ''), created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.OrderNumber, &o.TableNumber, &o.CustomerName, &status, &o.Subtotal, &o.TaxAmount,
		&o.Discount, &o.TotalAmount, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	o.Status = OrderStatus(status)
	return o, nil
}

const saleColumns = `id, order_id, reference, total_amount, discount, tax_amount, final_amount, payment_method, status,
    sale_date, created_by, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var method, status string
	err := row.Scan(&s.ID, &s.OrderID, &s.Reference, &s.TotalAmount, &s.Discount, &s.TaxAmount, &s.FinalAmount,
		&method, &status, &s.SaleDate, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrSaleNotFound
		}
		return Sale{}, err
	}
	s.PaymentMethod = PaymentMethod(method)
	s.Status = SaleStatus(status)
	return s, nil
}

func (r *txRepository) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO orders
    (order_number, table_number, customer_name, status, subtotal, tax_amount, discount, total_amount, notes, created_by)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
RETURNING id`,
		o.OrderNumber, o.TableNumber, o.CustomerName, string(o.Status), o.Subtotal, o.TaxAmount, o.Discount,
		o.TotalAmount, o.Notes, o.CreatedBy).Scan(&id)
	return id, err
}

func (r *txRepository) InsertOrderItem(ctx context.Context, item OrderItem) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, line_total, notes)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))`,
		item.OrderID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice, item.LineTotal, item.Notes)
	return err
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	return scanOrder(r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

func (r *txRepository) SetOrderStatus(ctx context.Context, id int64, status OrderStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	return err
}

func (r *txRepository) InsertSale(ctx context.Context, s Sale) (Sale, error) {
	return scanSale(r.tx.QueryRow(ctx, `INSERT INTO sales
    (order_id, reference, total_amount, discount, tax_amount, final_amount, payment_method, status, sale_date, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING `+saleColumns,
		s.OrderID, s.Reference, s.TotalAmount, s.Discount, s.TaxAmount, s.FinalAmount, string(s.PaymentMethod),
		string(s.Status), s.SaleDate, s.CreatedBy))
}

func (r *txRepository) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	return scanSale(r.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id))
}

func (r *txRepository) SetSaleStatus(ctx context.Context, id int64, status SaleStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE sales SET status = $2 WHERE id = $1`, id, string(status))
	return err
}

// GetOrder loads an order with its items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return Order{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, menu_item_id, name, quantity, unit_price, line_total, COALESCE(notes, '')
FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity, &it.UnitPrice, &it.LineTotal, &it.Notes); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

// DeleteOrder removes an order and its items unless a sale references it.
func (r *Repository) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders o WHERE o.id = $1
AND NOT EXISTS (SELECT 1 FROM sales s WHERE s.order_id = o.id)`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)); err != nil {
		return err
	}
	return ErrOrderHasSale
}

// GetSale loads one sale.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	return scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
}

// ListSales lists sales newest first.
func (r *Repository) ListSales(ctx context.Context, f SaleFilter) ([]Sale, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		add("sale_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		add("sale_date < ?", f.To)
	}
	query := `SELECT ` + saleColumns + ` FROM sales`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	query += ` ORDER BY sale_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Revenue sums final_amount and counts sales within [from, to).
func (r *Repository) Revenue(ctx context.Context, from, to time.Time, statuses []string) (decimal.Decimal, int, error) {
	var (
		total decimal.Decimal
		count int
	)
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(final_amount), 0), COUNT(*) FROM sales
WHERE sale_date >= $1 AND sale_date < $2 AND status = ANY($3)`,
		from, to, statuses).Scan(&total, &count)
	return total, count, err
}

// DailyRevenue sums final_amount per local calendar day within [from, to).
func (r *Repository) DailyRevenue(ctx context.Context, from, to time.Time, tz string, statuses []string) (map[string]DayRevenue, error) {
	rows, err := r.pool.Query(ctx, `SELECT (sale_date AT TIME ZONE $3)::date, COALESCE(SUM(final_amount), 0), COUNT(*)
FROM sales WHERE sale_date >= $1 AND sale_date < $2 AND status = ANY($4)
GROUP BY 1`, from, to, tz, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]DayRevenue)
	for rows.Next() {
		var day time.Time
		var rev DayRevenue
		if err := rows.Scan(&day, &rev.Amount, &rev.Count); err != nil {
			return nil, err
		}
		out[day.Format(shared.DateLayout)] = rev
	}
	return out, rows.Err()
}
