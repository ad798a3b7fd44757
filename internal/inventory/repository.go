package inventory

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/platform/db"
	"github.com/kitchenledger/backoffice/internal/shared"
)

const itemColumns = `id, sku, name, unit, cost_price, current_stock, reorder_level, category_id, supplier_id, is_active, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Unit, &it.CostPrice, &it.CurrentStock, &it.ReorderLevel,
		&it.CategoryID, &it.SupplierID, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return it, nil
}

// GetItem loads an item by id.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
}

// CreateItem inserts a new active item.
func (r *Repository) CreateItem(ctx context.Context, in ItemInput) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `INSERT INTO items
    (sku, name, unit, cost_price, current_stock, reorder_level, category_id, supplier_id, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,TRUE)
RETURNING `+itemColumns,
		in.SKU, in.Name, in.Unit, in.CostPrice, in.InitialStock, in.ReorderLevel, in.CategoryID, in.SupplierID))
	if db.IsUniqueViolation(err, "") {
		return Item{}, ErrDuplicateSKU
	}
	return item, err
}

// UpdateItem changes descriptive fields; stock only moves through usage and stock input.
func (r *Repository) UpdateItem(ctx context.Context, id int64, in ItemInput) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `UPDATE items SET
    sku = $2, name = $3, unit = $4, cost_price = $5, reorder_level = $6, category_id = $7, supplier_id = $8, updated_at = NOW()
WHERE id = $1
RETURNING `+itemColumns,
		id, in.SKU, in.Name, in.Unit, in.CostPrice, in.ReorderLevel, in.CategoryID, in.SupplierID))
	if db.IsUniqueViolation(err, "") {
		return Item{}, ErrDuplicateSKU
	}
	return item, err
}

// DeactivateItem flags an item inactive.
func (r *Repository) DeactivateItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ListItems uses a dynamic query due to optional filters.
func (r *Repository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	args := []any{}
	if !filter.IncludeInactive {
		query += ` AND is_active`
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (name ILIKE $` + n + ` OR sku ILIKE $` + n + `)`
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		query += ` AND category_id = $` + strconv.Itoa(len(args))
	}
	args = append(args, shared.ClampLimit(filter.Limit, 0))
	query += ` ORDER BY name LIMIT $` + strconv.Itoa(len(args))
	return r.queryItems(ctx, query, args...)
}

// LowStock lists active items at or below their reorder level.
func (r *Repository) LowStock(ctx context.Context) ([]Item, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM items
WHERE is_active AND current_stock <= reorder_level ORDER BY name`)
}

func (r *Repository) queryItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListUsage returns usage records newest first.
func (r *Repository) ListUsage(ctx context.Context, filter UsageFilter) ([]StockUsage, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.ItemID != 0 {
		add("item_id = ?", filter.ItemID)
	}
	if filter.Reason != "" {
		add("reason = ?", string(filter.Reason))
	}
	if filter.OrderID != 0 {
		add("order_id = ?", filter.OrderID)
	}
	if !filter.From.IsZero() {
		add("usage_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		add("usage_date < ?", filter.To)
	}
	query := `SELECT id, reference, item_id, quantity, unit, cost_per_unit, total_cost, reason, menu_item_id, order_id,
    usage_date, COALESCE(notes, ''), created_by, created_at FROM stock_usages`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, shared.ClampLimit(filter.Limit, 0))
	query += ` ORDER BY usage_date DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StockUsage
	for rows.Next() {
		var u StockUsage
		var reason string
		if err := rows.Scan(&u.ID, &u.Reference, &u.ItemID, &u.Quantity, &u.Unit, &u.CostPerUnit, &u.TotalCost, &reason,
			&u.MenuItemID, &u.OrderID, &u.UsageDate, &u.Notes, &u.CreatedBy, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Reason = UsageType(reason)
		out = append(out, u)
	}
	return out, rows.Err()
}

// UsageCostByReason sums total_cost per reason within [from, to).
func (r *Repository) UsageCostByReason(ctx context.Context, from, to time.Time) (map[UsageType]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT reason, COALESCE(SUM(total_cost), 0)
FROM stock_usages WHERE usage_date >= $1 AND usage_date < $2 GROUP BY reason`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[UsageType]decimal.Decimal)
	for rows.Next() {
		var reason string
		var total decimal.Decimal
		if err := rows.Scan(&reason, &total); err != nil {
			return nil, err
		}
		out[UsageType(reason)] = total
	}
	return out, rows.Err()
}

// DailyUsageCost sums total_cost per local calendar day within [from, to).
func (r *Repository) DailyUsageCost(ctx context.Context, from, to time.Time, tz string) (map[string]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT (usage_date AT TIME ZONE $3)::date AS day, COALESCE(SUM(total_cost), 0)
FROM stock_usages WHERE usage_date >= $1 AND usage_date < $2 GROUP BY 1`, from, to, tz)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var day time.Time
		var total decimal.Decimal
		if err := rows.Scan(&day, &total); err != nil {
			return nil, err
		}
		out[day.Format(shared.DateLayout)] = total
	}
	return out, rows.Err()
}

// InventoryValue returns the sum of current_stock * cost_price over active items.
func (r *Repository) InventoryValue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(current_stock * cost_price), 0) FROM items WHERE is_active`).Scan(&total)
	return total, err
}
