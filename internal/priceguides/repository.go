package priceguides

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-saas/meridian/internal/platform/db"
	"github.com/meridian-saas/meridian/internal/shared"
)

// RepositoryPort defines data access for price guides.
type RepositoryPort interface {
	List(ctx context.Context, companyID int64, q shared.ListQuery) ([]Guide, int, error)
	Get(ctx context.Context, id, companyID int64) (Guide, error)
	Create(ctx context.Context, guide Guide) (Guide, error)
	Update(ctx context.Context, id, companyID int64, guide Guide) (Guide, error)
	SetActive(ctx context.Context, id, companyID int64, active bool) error
	Delete(ctx context.Context, id, companyID int64) error

	AddItem(ctx context.Context, guideID, companyID int64, item Item) (Item, error)
	UpdateItem(ctx context.Context, itemID, guideID, companyID int64, item Item) (Item, error)
	RemoveItem(ctx context.Context, itemID, guideID, companyID int64) error
}

// Repository provides PostgreSQL backed persistence. Guide reads load the
// line items alongside the header.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const guideColumns = `id, company_id, name, currency, is_active, created_at, updated_at`
const itemColumns = `id, guide_id, description, unit, unit_price_cents, created_at, updated_at`

func scanGuideRow(row pgx.Row) (Guide, error) {
	var g Guide
	err := row.Scan(&g.ID, &g.CompanyID, &g.Name, &g.Currency, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Guide{}, shared.ErrNotFound
		}
		return Guide{}, mapPGError(err)
	}
	return g, nil
}

func scanItemRow(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.GuideID, &it.Description, &it.Unit, &it.UnitPriceCents, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, mapPGError(err)
	}
	return it, nil
}

// List returns the company's guides without their items.
func (r *Repository) List(ctx context.Context, companyID int64, q shared.ListQuery) ([]Guide, int, error) {
	pattern := "%" + q.Search + "%"
	rows, err := r.pool.Query(ctx, `
		SELECT `+guideColumns+`
		FROM price_guides
		WHERE company_id = $1 AND deleted_at IS NULL
		  AND ($2 = '%%' OR name ILIKE $2)
		ORDER BY name
		LIMIT $3 OFFSET $4`, companyID, pattern, q.Limit, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Guide
	for rows.Next() {
		guide, err := scanGuideRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, guide)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `
		SELECT count(*) FROM price_guides
		WHERE company_id = $1 AND deleted_at IS NULL
		  AND ($2 = '%%' OR name ILIKE $2)`, companyID, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches one guide with its items.
func (r *Repository) Get(ctx context.Context, id, companyID int64) (Guide, error) {
	guide, err := scanGuideRow(r.pool.QueryRow(ctx, `
		SELECT `+guideColumns+`
		FROM price_guides
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID))
	if err != nil {
		return Guide{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM price_guide_items
		WHERE guide_id = $1
		ORDER BY id`, id)
	if err != nil {
		return Guide{}, err
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return Guide{}, err
		}
		guide.Items = append(guide.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Guide{}, err
	}
	return guide, nil
}

// Create inserts a guide header together with any initial items.
func (r *Repository) Create(ctx context.Context, guide Guide) (Guide, error) {
	var created Guide
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		created, err = scanGuideRow(tx.QueryRow(ctx, `
			INSERT INTO price_guides (company_id, name, currency, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, now(), now())
			RETURNING `+guideColumns, guide.CompanyID, guide.Name, guide.Currency))
		if err != nil {
			return err
		}
		for _, item := range guide.Items {
			inserted, err := scanItemRow(tx.QueryRow(ctx, `
				INSERT INTO price_guide_items (guide_id, description, unit, unit_price_cents, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
				RETURNING `+itemColumns, created.ID, item.Description, item.Unit, item.UnitPriceCents))
			if err != nil {
				return err
			}
			created.Items = append(created.Items, inserted)
		}
		return nil
	})
	if err != nil {
		return Guide{}, mapPGError(err)
	}
	return created, nil
}

// Update rewrites name and currency.
func (r *Repository) Update(ctx context.Context, id, companyID int64, guide Guide) (Guide, error) {
	updated, err := scanGuideRow(r.pool.QueryRow(ctx, `
		UPDATE price_guides
		SET name = $3, currency = $4, updated_at = now()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
		RETURNING `+guideColumns, id, companyID, guide.Name, guide.Currency))
	if err != nil {
		return Guide{}, err
	}
	return updated, nil
}

// SetActive flips the active flag.
func (r *Repository) SetActive(ctx context.Context, id, companyID int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE price_guides
		SET is_active = $3, updated_at = now()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete soft deletes the guide and drops its items.
func (r *Repository) Delete(ctx context.Context, id, companyID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE price_guides
			SET deleted_at = now(), updated_at = now()
			WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		_, err = tx.Exec(ctx, `DELETE FROM price_guide_items WHERE guide_id = $1`, id)
		return err
	})
}

// AddItem appends a line to the guide after checking ownership.
func (r *Repository) AddItem(ctx context.Context, guideID, companyID int64, item Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO price_guide_items (guide_id, description, unit, unit_price_cents, created_at, updated_at)
		SELECT g.id, $3, $4, $5, now(), now()
		FROM price_guides g
		WHERE g.id = $1 AND g.company_id = $2 AND g.deleted_at IS NULL
		RETURNING `+itemColumns, guideID, companyID, item.Description, item.Unit, item.UnitPriceCents)
	return scanItemRow(row)
}

// UpdateItem rewrites one line of the guide.
func (r *Repository) UpdateItem(ctx context.Context, itemID, guideID, companyID int64, item Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE price_guide_items i
		SET description = $4, unit = $5, unit_price_cents = $6, updated_at = now()
		FROM price_guides g
		WHERE i.id = $1 AND i.guide_id = $2 AND g.id = i.guide_id
		  AND g.company_id = $3 AND g.deleted_at IS NULL
		RETURNING i.id, i.guide_id, i.description, i.unit, i.unit_price_cents, i.created_at, i.updated_at`,
		itemID, guideID, companyID, item.Description, item.Unit, item.UnitPriceCents)
	return scanItemRow(row)
}

// RemoveItem deletes one line of the guide.
func (r *Repository) RemoveItem(ctx context.Context, itemID, guideID, companyID int64) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM price_guide_items i
		USING price_guides g
		WHERE i.id = $1 AND i.guide_id = $2 AND g.id = i.guide_id
		  AND g.company_id = $3 AND g.deleted_at IS NULL`, itemID, guideID, companyID)
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
