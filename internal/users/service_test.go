package users

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-saas/meridian/internal/shared"
)

type memoryRepo struct {
	users        map[int64]User
	hashes       map[int64]string
	roles        map[int64][]RoleRef
	restrictions map[int64][]Restriction
	nextID       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:        make(map[int64]User),
		hashes:       make(map[int64]string),
		roles:        make(map[int64][]RoleRef),
		restrictions: make(map[int64][]Restriction),
	}
}

func (r *memoryRepo) ListByCompany(_ context.Context, companyID int64, q shared.ListQuery) ([]User, int, error) {
	var out []User
	for _, u := range r.users {
		if u.Type != UserTypeCompany || u.CompanyID != companyID {
			continue
		}
		if q.Search == "" || strings.Contains(u.Name, q.Search) || strings.Contains(u.Email, q.Search) {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetInCompany(_ context.Context, id, companyID int64) (User, error) {
	u, ok := r.users[id]
	if !ok || u.Type != UserTypeCompany || u.CompanyID != companyID {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) CreateCompanyUser(_ context.Context, user User, passwordHash string) (User, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return User{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.Type = UserTypeCompany
	user.IsActive = true
	r.users[user.ID] = user
	r.hashes[user.ID] = passwordHash
	return user, nil
}

func (r *memoryRepo) UpdateInCompany(_ context.Context, id, companyID int64, name, email string) (User, error) {
	u, err := r.GetInCompany(context.Background(), id, companyID)
	if err != nil {
		return User{}, err
	}
	u.Name = name
	u.Email = email
	r.users[id] = u
	return u, nil
}

func (r *memoryRepo) SetActiveInCompany(_ context.Context, id, companyID int64, active bool) error {
	u, err := r.GetInCompany(context.Background(), id, companyID)
	if err != nil {
		return err
	}
	u.IsActive = active
	r.users[id] = u
	return nil
}

func (r *memoryRepo) AssignCompanyRole(_ context.Context, userID, companyID, roleID int64) error {
	if _, err := r.GetInCompany(context.Background(), userID, companyID); err != nil {
		return err
	}
	r.roles[userID] = append(r.roles[userID], RoleRef{ID: roleID})
	return nil
}

func (r *memoryRepo) RemoveRole(_ context.Context, userID, roleID int64) error {
	kept := r.roles[userID][:0]
	removed := false
	for _, ref := range r.roles[userID] {
		if ref.ID == roleID {
			removed = true
			continue
		}
		kept = append(kept, ref)
	}
	if !removed {
		return shared.ErrNotFound
	}
	r.roles[userID] = kept
	return nil
}

func (r *memoryRepo) ListRoles(_ context.Context, userID int64) ([]RoleRef, error) {
	return r.roles[userID], nil
}

func (r *memoryRepo) ListInternal(_ context.Context, q shared.ListQuery) ([]User, int, error) {
	var out []User
	for _, u := range r.users {
		if u.Type == UserTypeInternal {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) CreateInternalUser(_ context.Context, user User, passwordHash string) (User, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return User{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.Type = UserTypeInternal
	user.IsActive = true
	r.users[user.ID] = user
	r.hashes[user.ID] = passwordHash
	return user, nil
}

func (r *memoryRepo) AssignPlatformRole(_ context.Context, userID, roleID int64) error {
	u, ok := r.users[userID]
	if !ok || u.Type != UserTypeInternal {
		return shared.ErrNotFound
	}
	r.roles[userID] = append(r.roles[userID], RoleRef{ID: roleID})
	return nil
}

func (r *memoryRepo) ListRestrictions(_ context.Context, userID int64) ([]Restriction, error) {
	return r.restrictions[userID], nil
}

func (r *memoryRepo) AddRestriction(_ context.Context, userID, companyID int64) error {
	for i, row := range r.restrictions[userID] {
		if row.CompanyID == companyID {
			r.restrictions[userID][i].IsActive = true
			return nil
		}
	}
	r.restrictions[userID] = append(r.restrictions[userID], Restriction{CompanyID: companyID, IsActive: true})
	return nil
}

func (r *memoryRepo) RevokeRestriction(_ context.Context, userID, companyID int64) error {
	for i, row := range r.restrictions[userID] {
		if row.CompanyID == companyID {
			r.restrictions[userID][i].IsActive = false
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memoryRepo) RemoveRestriction(_ context.Context, userID, companyID int64) error {
	kept := r.restrictions[userID][:0]
	removed := false
	for _, row := range r.restrictions[userID] {
		if row.CompanyID == companyID {
			removed = true
			continue
		}
		kept = append(kept, row)
	}
	if !removed {
		return shared.ErrNotFound
	}
	r.restrictions[userID] = kept
	return nil
}

func TestCreateCompanyUserHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.CreateCompanyUser(ctx, 5, "  Dana Voss ", " Dana@Example.COM ", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "Dana Voss", created.Name)
	require.Equal(t, "dana@example.com", created.Email)
	require.Equal(t, int64(5), created.CompanyID)
	require.Equal(t, UserTypeCompany, created.Type)
	require.True(t, created.IsActive)

	hash := repo.hashes[created.ID]
	require.NotEqual(t, "correct horse", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))
}

func TestCreateCompanyUserValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateCompanyUser(ctx, 5, "", "dana@example.com", "correct horse")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateCompanyUser(ctx, 5, "Dana", "not-an-email", "correct horse")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateCompanyUser(ctx, 5, "Dana", "dana@example.com", "short")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCompanyScopeIsEnforced(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.CreateCompanyUser(ctx, 5, "Dana", "dana@example.com", "correct horse")
	require.NoError(t, err)

	_, err = svc.GetCompanyUser(ctx, created.ID, 7)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.UpdateCompanyUser(ctx, created.ID, 7, "Dana", "dana@example.com")
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.ErrorIs(t, svc.DeactivateCompanyUser(ctx, created.ID, 7), shared.ErrNotFound)

	got, err := svc.GetCompanyUser(ctx, created.ID, 5)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}

func TestRoleAssignmentRoundTrip(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.CreateCompanyUser(ctx, 5, "Dana", "dana@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(ctx, created.ID, 5, 31))
	roles, err := svc.Roles(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)

	require.NoError(t, svc.RemoveRole(ctx, created.ID, 31))
	require.ErrorIs(t, svc.RemoveRole(ctx, created.ID, 31), shared.ErrNotFound)
}

func TestInternalUserAndRestrictions(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	staff, err := svc.CreateInternalUser(ctx, "Ops Admin", "ops@meridian.example", "correct horse")
	require.NoError(t, err)
	require.Equal(t, UserTypeInternal, staff.Type)
	require.Zero(t, staff.CompanyID)

	require.NoError(t, svc.AssignPlatformRole(ctx, staff.ID, 9))

	require.NoError(t, svc.RestrictTo(ctx, staff.ID, 5))
	require.NoError(t, svc.RestrictTo(ctx, staff.ID, 5)) // idempotent re-add
	rows, err := svc.Restrictions(ctx, staff.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].IsActive)

	require.NoError(t, svc.RevokeRestriction(ctx, staff.ID, 5))
	rows, err = svc.Restrictions(ctx, staff.ID)
	require.NoError(t, err)
	require.False(t, rows[0].IsActive)

	require.NoError(t, svc.RemoveRestriction(ctx, staff.ID, 5))
	rows, err = svc.Restrictions(ctx, staff.ID)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestDuplicateEmail(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateCompanyUser(ctx, 5, "Dana", "dana@example.com", "correct horse")
	require.NoError(t, err)
	_, err = svc.CreateInternalUser(ctx, "Other", "dana@example.com", "correct horse")
	require.ErrorIs(t, err, shared.ErrDuplicate)
}
