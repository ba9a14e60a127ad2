package doctemplates

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-saas/meridian/internal/shared"
)

// RepositoryPort defines data access for document templates.
type RepositoryPort interface {
	List(ctx context.Context, companyID int64, kind Kind, q shared.ListQuery) ([]Template, int, error)
	Get(ctx context.Context, id, companyID int64) (Template, error)
	Create(ctx context.Context, tpl Template) (Template, error)
	Update(ctx context.Context, id, companyID int64, tpl Template) (Template, error)
	SoftDelete(ctx context.Context, id, companyID int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const templateColumns = `id, company_id, name, kind, body, created_at, updated_at`

func scanTemplateRow(row pgx.Row) (Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.CompanyID, &t.Name, &t.Kind, &t.Body, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, shared.ErrNotFound
		}
		return Template{}, mapPGError(err)
	}
	return t, nil
}

// List returns the company's templates, optionally filtered by kind.
func (r *Repository) List(ctx context.Context, companyID int64, kind Kind, q shared.ListQuery) ([]Template, int, error) {
	pattern := "%" + q.Search + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM document_templates
		WHERE company_id = $1 AND deleted_at IS NULL
		  AND ($2 = '' OR kind = $2)
		  AND ($3 = '%%' OR name ILIKE $3)
		ORDER BY name
		LIMIT $4 OFFSET $5`, companyID, string(kind), pattern, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		tpl, err := scanTemplateRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `
		SELECT count(*) FROM document_templates
		WHERE company_id = $1 AND deleted_at IS NULL
		  AND ($2 = '' OR kind = $2)
		  AND ($3 = '%%' OR name ILIKE $3)`, companyID, string(kind), pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches one template of the company.
func (r *Repository) Get(ctx context.Context, id, companyID int64) (Template, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM document_templates
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID)
	return scanTemplateRow(row)
}

// Create inserts a template.
func (r *Repository) Create(ctx context.Context, tpl Template) (Template, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO document_templates (company_id, name, kind, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING `+templateColumns, tpl.CompanyID, tpl.Name, tpl.Kind, tpl.Body)
	return scanTemplateRow(row)
}

// Update rewrites name, kind and body.
func (r *Repository) Update(ctx context.Context, id, companyID int64, tpl Template) (Template, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE document_templates
		SET name = $3, kind = $4, body = $5, updated_at = now()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
		RETURNING `+templateColumns, id, companyID, tpl.Name, tpl.Kind, tpl.Body)
	return scanTemplateRow(row)
}

// SoftDelete marks the template deleted. The row stays for audit.
func (r *Repository) SoftDelete(ctx context.Context, id, companyID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE document_templates
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID)
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
