package companies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-saas/meridian/internal/shared"
)

// RepositoryPort defines data access for companies.
type RepositoryPort interface {
	List(ctx context.Context, q shared.ListQuery) ([]Company, int, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
	Update(ctx context.Context, id int64, company Company) (Company, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const companyColumns = `id, code, name, address, is_active, created_at, updated_at`

// List returns companies matching the query plus the unpaged total.
func (r *Repository) List(ctx context.Context, q shared.ListQuery) ([]Company, int, error) {
	pattern := "%" + q.Search + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE deleted_at IS NULL
		  AND ($1 = '%%' OR name ILIKE $1 OR code ILIKE $1)
		ORDER BY name
		LIMIT $2 OFFSET $3`, pattern, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `
		SELECT count(*) FROM companies
		WHERE deleted_at IS NULL
		  AND ($1 = '%%' OR name ILIKE $1 OR code ILIKE $1)`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a company by id.
func (r *Repository) Get(ctx context.Context, id int64) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&c.ID, &c.Code, &c.Name, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, shared.ErrNotFound
		}
		return Company{}, err
	}
	return c, nil
}

// Create inserts a new company, active by default.
func (r *Repository) Create(ctx context.Context, company Company) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		INSERT INTO companies (code, name, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, now(), now())
		RETURNING `+companyColumns, company.Code, company.Name, company.Address).
		Scan(&c.ID, &c.Code, &c.Name, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Company{}, mapPGError(err)
	}
	return c, nil
}

// Update rewrites the mutable fields of a company.
func (r *Repository) Update(ctx context.Context, id int64, company Company) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		UPDATE companies
		SET code = $2, name = $3, address = $4, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+companyColumns, id, company.Code, company.Name, company.Address).
		Scan(&c.ID, &c.Code, &c.Name, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, shared.ErrNotFound
		}
		return Company{}, mapPGError(err)
	}
	return c, nil
}

// SetActive flips the activation flag. Deactivated companies stay visible
// to platform staff but resolve as unusable context.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE companies SET is_active = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
