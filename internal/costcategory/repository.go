package costcategory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists cost categories in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const categoryColumns = `id, name, type, COALESCE(description, ''), is_active, created_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	var typ string
	if err := row.Scan(&c.ID, &c.Name, &typ, &c.Description, &c.IsActive, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, ErrCategoryNotFound
		}
		return Category{}, err
	}
	c.Type = ExpenseType(typ)
	return c, nil
}

// FindByName loads a category by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (Category, error) {
	return scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM expense_categories WHERE name = $1`, name))
}

// Get loads a category by id.
func (r *Repository) Get(ctx context.Context, id int64) (Category, error) {
	return scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM expense_categories WHERE id = $1`, id))
}

// InsertIfAbsent inserts c unless the name is taken. inserted is false when
// a concurrent writer won the race; the caller should look the row up again.
func (r *Repository) InsertIfAbsent(ctx context.Context, c Category) (Category, bool, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO expense_categories (name, type, description, is_active)
VALUES ($1, $2, NULLIF($3, ''), TRUE)
ON CONFLICT (name) DO NOTHING
RETURNING `+categoryColumns, c.Name, string(c.Type), c.Description)
	created, err := scanCategory(row)
	if errors.Is(err, ErrCategoryNotFound) {
		return Category{}, false, nil
	}
	if err != nil {
		return Category{}, false, err
	}
	return created, true, nil
}

// List returns categories ordered by type then name.
func (r *Repository) List(ctx context.Context, includeInactive bool) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM expense_categories
WHERE is_active OR $1 ORDER BY type, name`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Deactivate flags a category inactive.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE expense_categories SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// Reactivate flags a category active again and returns the row.
func (r *Repository) Reactivate(ctx context.Context, id int64) (Category, error) {
	return scanCategory(r.pool.QueryRow(ctx, `UPDATE expense_categories SET is_active = TRUE
WHERE id = $1 RETURNING `+categoryColumns, id))
}
