package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, id int64) (Item, error)
	SetItemStock(ctx context.Context, id int64, stock, costPrice decimal.Decimal) error
	InsertUsage(ctx context.Context, usage StockUsage) (StockUsage, error)
	InsertLog(ctx context.Context, log InventoryLog) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id))
}

func (r *txRepository) SetItemStock(ctx context.Context, id int64, stock, costPrice decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE items SET current_stock = $2, cost_price = $3, updated_at = NOW() WHERE id = $1`, id, stock, costPrice)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *txRepository) InsertUsage(ctx context.Context, u StockUsage) (StockUsage, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_usages
    (reference, item_id, quantity, unit, cost_per_unit, total_cost, reason, menu_item_id, order_id, usage_date, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULLIF($11,''),$12)
RETURNING id, created_at`,
		u.Reference, u.ItemID, u.Quantity, u.Unit, u.CostPerUnit, u.TotalCost, string(u.Reason),
		u.MenuItemID, u.OrderID, u.UsageDate, u.Notes, u.CreatedBy).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return StockUsage{}, err
	}
	return u, nil
}

func (r *txRepository) InsertLog(ctx context.Context, l InventoryLog) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_logs
    (item_id, log_type, quantity_change, previous_stock, new_stock, reason, reference, actor_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		l.ItemID, string(l.Type), l.QuantityChange, l.PreviousStock, l.NewStock, l.Reason, l.Reference, l.ActorID)
	return err
}
