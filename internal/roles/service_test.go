package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/shared"
)

type memoryRepo struct {
	items  map[int64]Role
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]Role)}
}

func (r *memoryRepo) ListByCompany(_ context.Context, companyID int64) ([]Role, error) {
	var out []Role
	for _, role := range r.items {
		if role.Type == authz.RoleTypeCompany && role.CompanyID == companyID {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetInCompany(_ context.Context, id, companyID int64) (Role, error) {
	role, ok := r.items[id]
	if !ok || role.Type != authz.RoleTypeCompany || role.CompanyID != companyID {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (r *memoryRepo) CreateCompanyRole(_ context.Context, role Role) (Role, error) {
	r.nextID++
	role.ID = r.nextID
	r.items[role.ID] = role
	return role, nil
}

func (r *memoryRepo) UpdateInCompany(_ context.Context, id, companyID int64, role Role) (Role, error) {
	existing, err := r.GetInCompany(context.Background(), id, companyID)
	if err != nil {
		return Role{}, err
	}
	existing.Name = role.Name
	existing.Description = role.Description
	existing.Permissions = role.Permissions
	r.items[id] = existing
	return existing, nil
}

func (r *memoryRepo) DeleteInCompany(_ context.Context, id, companyID int64) error {
	if _, err := r.GetInCompany(context.Background(), id, companyID); err != nil {
		return err
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) ListPlatform(_ context.Context) ([]Role, error) {
	var out []Role
	for _, role := range r.items {
		if role.Type == authz.RoleTypePlatform {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetPlatform(_ context.Context, id int64) (Role, error) {
	role, ok := r.items[id]
	if !ok || role.Type != authz.RoleTypePlatform {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (r *memoryRepo) CreatePlatformRole(_ context.Context, role Role) (Role, error) {
	r.nextID++
	role.ID = r.nextID
	r.items[role.ID] = role
	return role, nil
}

func (r *memoryRepo) UpdatePlatform(_ context.Context, id int64, role Role) (Role, error) {
	existing, err := r.GetPlatform(context.Background(), id)
	if err != nil {
		return Role{}, err
	}
	existing.Name = role.Name
	existing.Description = role.Description
	existing.Permissions = role.Permissions
	existing.CompanyPermissions = role.CompanyPermissions
	r.items[id] = existing
	return existing, nil
}

func (r *memoryRepo) DeletePlatform(_ context.Context, id int64) error {
	if _, err := r.GetPlatform(context.Background(), id); err != nil {
		return err
	}
	delete(r.items, id)
	return nil
}

func TestCreateCompanyRoleNormalizesGrants(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.CreateCompanyRole(ctx, 5, " Office Admin ", "",
		[]string{" user:read ", "user:manage", "user:read", "office:*"})
	require.NoError(t, err)
	require.Equal(t, authz.RoleTypeCompany, created.Type)
	require.Equal(t, int64(5), created.CompanyID)
	require.Equal(t, "Office Admin", created.Name)
	require.Equal(t, []string{"office:*", "user:manage", "user:read"}, created.Permissions)
	require.Empty(t, created.CompanyPermissions)
}

func TestCompanyRoleRejectsPlatformAndSentinel(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateCompanyRole(ctx, 5, "Bad", "", []string{"platform:companies"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateCompanyRole(ctx, 5, "Bad", "", []string{"*"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateCompanyRole(ctx, 5, "Bad", "", []string{"noaction"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPlatformRoleSentinelAndTiers(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.CreatePlatformRole(ctx, "Support", "",
		[]string{"platform:companies"}, []string{"*"})
	require.NoError(t, err)
	require.Equal(t, authz.RoleTypePlatform, created.Type)
	require.Equal(t, []string{"*"}, created.CompanyPermissions)

	// platform tokens never belong in the company grant list
	_, err = svc.CreatePlatformRole(ctx, "Bad", "", nil, []string{"platform:roles"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCompanyRoleScopeIsolation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.CreateCompanyRole(ctx, 5, "Admin", "", []string{"user:manage"})
	require.NoError(t, err)

	_, err = svc.GetCompanyRole(ctx, created.ID, 7)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.ErrorIs(t, svc.DeleteCompanyRole(ctx, created.ID, 7), shared.ErrNotFound)

	require.NoError(t, svc.DeleteCompanyRole(ctx, created.ID, 5))
}

func TestCatalogListsBothTiers(t *testing.T) {
	entries := Catalog()
	require.NotEmpty(t, entries)

	var platform, company int
	for _, e := range entries {
		require.True(t, authz.WellFormed(e.Token))
		if e.Platform {
			platform++
			require.True(t, authz.IsPlatform(e.Token))
		} else {
			company++
			require.False(t, authz.IsPlatform(e.Token))
		}
	}
	require.NotZero(t, platform)
	require.NotZero(t, company)
}
