package offices

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-saas/meridian/internal/shared"
)

type memoryRepo struct {
	items  map[int64]Office
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]Office)}
}

func (r *memoryRepo) List(_ context.Context, companyID int64, q shared.ListQuery) ([]Office, int, error) {
	var out []Office
	for _, o := range r.items {
		if o.CompanyID != companyID {
			continue
		}
		if q.Search == "" || strings.Contains(o.Name, q.Search) {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(_ context.Context, id, companyID int64) (Office, error) {
	o, ok := r.items[id]
	if !ok || o.CompanyID != companyID {
		return Office{}, shared.ErrNotFound
	}
	return o, nil
}

func (r *memoryRepo) Create(_ context.Context, office Office) (Office, error) {
	r.nextID++
	office.ID = r.nextID
	office.IsActive = true
	r.items[office.ID] = office
	return office, nil
}

func (r *memoryRepo) Update(_ context.Context, id, companyID int64, office Office) (Office, error) {
	existing, err := r.Get(context.Background(), id, companyID)
	if err != nil {
		return Office{}, err
	}
	existing.Name = office.Name
	existing.Address = office.Address
	existing.Phone = office.Phone
	r.items[id] = existing
	return existing, nil
}

func (r *memoryRepo) SetActive(_ context.Context, id, companyID int64, active bool) error {
	o, err := r.Get(context.Background(), id, companyID)
	if err != nil {
		return err
	}
	o.IsActive = active
	r.items[id] = o
	return nil
}

func TestCreateTrimsAndValidates(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, 5, Office{Name: "  Main Office ", Address: " 1 High St "})
	require.NoError(t, err)
	require.Equal(t, "Main Office", created.Name)
	require.Equal(t, "1 High St", created.Address)
	require.Equal(t, int64(5), created.CompanyID)
	require.True(t, created.IsActive)

	_, err = svc.Create(ctx, 5, Office{Name: "   "})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestOfficeScopeIsolation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, 5, Office{Name: "Main"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, created.ID, 7)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.ErrorIs(t, svc.Deactivate(ctx, created.ID, 7), shared.ErrNotFound)

	require.NoError(t, svc.Deactivate(ctx, created.ID, 5))
	got, err := svc.Get(ctx, created.ID, 5)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}
