package partners

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists partners in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const partnerColumns = `id, name, COALESCE(email, ''), share_percent, is_active, created_at, updated_at`

func scanPartner(row pgx.Row) (Partner, error) {
	var p Partner
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.SharePercent, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Partner{}, ErrPartnerNotFound
		}
		return Partner{}, err
	}
	return p, nil
}

// Create inserts a partner.
func (r *Repository) Create(ctx context.Context, in Input) (Partner, error) {
	return scanPartner(r.pool.QueryRow(ctx, `INSERT INTO partners (name, email, share_percent, is_active)
VALUES ($1, NULLIF($2, ''), $3, TRUE) RETURNING `+partnerColumns, in.Name, in.Email, in.SharePercent))
}

// Update rewrites a partner.
func (r *Repository) Update(ctx context.Context, id int64, in Input) (Partner, error) {
	return scanPartner(r.pool.QueryRow(ctx, `UPDATE partners SET name = $2, email = NULLIF($3, ''), share_percent = $4,
    updated_at = NOW()
WHERE id = $1 RETURNING `+partnerColumns, id, in.Name, in.Email, in.SharePercent))
}

// Get loads one partner.
func (r *Repository) Get(ctx context.Context, id int64) (Partner, error) {
	return scanPartner(r.pool.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id))
}

// Deactivate clears the active flag.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE partners SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPartnerNotFound
	}
	return nil
}

// List returns partners by descending share.
func (r *Repository) List(ctx context.Context, includeInactive bool) ([]Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY share_percent DESC, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
