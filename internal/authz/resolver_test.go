package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-saas/meridian/internal/authz"
	"github.com/meridian-saas/meridian/internal/shared"
)

type stubCompanyRepo struct {
	companies map[int64]authz.Company
	err       error
}

func (s *stubCompanyRepo) Get(_ context.Context, id int64) (authz.Company, error) {
	if s.err != nil {
		return authz.Company{}, s.err
	}
	company, ok := s.companies[id]
	if !ok {
		return authz.Company{}, shared.ErrNotFound
	}
	return company, nil
}

type stubRestrictionRepo struct {
	rows    map[int64][]authz.Restriction
	touched []int64
	err     error
}

func (s *stubRestrictionRepo) ListFor(_ context.Context, userID int64) ([]authz.Restriction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[userID], nil
}

func (s *stubRestrictionRepo) TouchLastAccessed(_ context.Context, _, companyID int64) error {
	s.touched = append(s.touched, companyID)
	return nil
}

func newResolver(companies map[int64]authz.Company, rows map[int64][]authz.Restriction) (*authz.Resolver, *stubRestrictionRepo) {
	restrictions := &stubRestrictionRepo{rows: rows}
	return authz.NewResolver(&stubCompanyRepo{companies: companies}, restrictions), restrictions
}

func TestResolveCompanyActorIsAlwaysFixed(t *testing.T) {
	resolver, _ := newResolver(nil, nil)
	sess := &shared.Session{}
	// Session state never influences a company actor's scope.
	sess.SetActiveCompany(99)

	res, ok, err := resolver.Resolve(context.Background(), authz.CompanyActor{UserID: 1, CompanyID: 5}, sess)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, res.Fixed)
	require.EqualValues(t, 5, res.CompanyID)
}

func TestResolveCompanyActorWithoutCompany(t *testing.T) {
	resolver, _ := newResolver(nil, nil)
	_, ok, err := resolver.Resolve(context.Background(), authz.CompanyActor{UserID: 1}, &shared.Session{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveInternalActorNoSelection(t *testing.T) {
	resolver, _ := newResolver(nil, nil)
	_, ok, err := resolver.Resolve(context.Background(), authz.InternalActor{UserID: 2}, &shared.Session{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolveInternalActorSelection(t *testing.T) {
	resolver, _ := newResolver(map[int64]authz.Company{4: {ID: 4, Name: "Acme", IsActive: true}}, nil)
	sess := &shared.Session{}
	sess.SetActiveCompany(4)

	res, ok, err := resolver.Resolve(context.Background(), authz.InternalActor{UserID: 2}, sess)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, res.Fixed)
	require.EqualValues(t, 4, res.CompanyID)
}

func TestResolveStaleSelection(t *testing.T) {
	// Company went inactive after selection: treat as awaiting selection.
	resolver, _ := newResolver(map[int64]authz.Company{4: {ID: 4, IsActive: false}}, nil)
	sess := &shared.Session{}
	sess.SetActiveCompany(4)

	_, ok, err := resolver.Resolve(context.Background(), authz.InternalActor{UserID: 2}, sess)
	require.NoError(t, err)
	require.False(t, ok)

	// Selection fell off the allow-list.
	resolver, _ = newResolver(
		map[int64]authz.Company{4: {ID: 4, IsActive: true}},
		map[int64][]authz.Restriction{2: {{CompanyID: 8, IsActive: true}}},
	)
	_, ok, err = resolver.Resolve(context.Background(), authz.InternalActor{UserID: 2}, sess)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSwitchCompanyUnrestricted(t *testing.T) {
	resolver, restrictions := newResolver(map[int64]authz.Company{4: {ID: 4, Name: "Acme", IsActive: true}}, nil)
	sess := &shared.Session{}

	company, err := resolver.SwitchCompany(context.Background(), authz.InternalActor{UserID: 2}, sess, 4)
	require.NoError(t, err)
	require.Equal(t, "Acme", company.Name)
	require.EqualValues(t, 4, sess.ActiveCompany())
	// No allow-list rows: nothing to stamp.
	require.Empty(t, restrictions.touched)
}

func TestSwitchCompanyRestricted(t *testing.T) {
	companies := map[int64]authz.Company{
		4: {ID: 4, Name: "Acme", IsActive: true},
		8: {ID: 8, Name: "Globex", IsActive: true},
	}
	rows := map[int64][]authz.Restriction{2: {{CompanyID: 4, IsActive: true}}}
	resolver, restrictions := newResolver(companies, rows)
	sess := &shared.Session{}

	// Not allow-listed.
	_, err := resolver.SwitchCompany(context.Background(), authz.InternalActor{UserID: 2}, sess, 8)
	require.ErrorIs(t, err, authz.ErrCompanyRestricted)
	require.Zero(t, sess.ActiveCompany())

	// Allow-listed: switch succeeds and stamps last access.
	_, err = resolver.SwitchCompany(context.Background(), authz.InternalActor{UserID: 2}, sess, 4)
	require.NoError(t, err)
	require.EqualValues(t, 4, sess.ActiveCompany())
	require.Equal(t, []int64{4}, restrictions.touched)
}

func TestSwitchCompanyRevokedRow(t *testing.T) {
	companies := map[int64]authz.Company{4: {ID: 4, IsActive: true}}
	rows := map[int64][]authz.Restriction{2: {{CompanyID: 4, IsActive: false}}}
	resolver, _ := newResolver(companies, rows)
	sess := &shared.Session{}

	_, err := resolver.SwitchCompany(context.Background(), authz.InternalActor{UserID: 2}, sess, 4)
	require.ErrorIs(t, err, authz.ErrCompanyRestricted)
	require.Zero(t, sess.ActiveCompany())
}

func TestSwitchCompanyInactiveTarget(t *testing.T) {
	resolver, _ := newResolver(map[int64]authz.Company{4: {ID: 4, IsActive: false}}, nil)
	sess := &shared.Session{}

	_, err := resolver.SwitchCompany(context.Background(), authz.InternalActor{UserID: 2}, sess, 4)
	require.ErrorIs(t, err, authz.ErrCompanyInactive)
	require.Zero(t, sess.ActiveCompany())
}

func TestSwitchCompanyUnknownTarget(t *testing.T) {
	resolver, _ := newResolver(nil, nil)
	_, err := resolver.SwitchCompany(context.Background(), authz.InternalActor{UserID: 2}, &shared.Session{}, 123)
	require.ErrorIs(t, err, authz.ErrCompanyNotFound)
}

func TestSwitchCompanyRejectsCompanyActor(t *testing.T) {
	resolver, _ := newResolver(map[int64]authz.Company{4: {ID: 4, IsActive: true}}, nil)
	_, err := resolver.SwitchCompany(context.Background(), authz.CompanyActor{UserID: 1, CompanyID: 5}, &shared.Session{}, 4)
	require.ErrorIs(t, err, authz.ErrNotInternal)
}

func TestExitCompany(t *testing.T) {
	resolver, _ := newResolver(nil, nil)
	sess := &shared.Session{}
	sess.SetActiveCompany(4)

	resolver.ExitCompany(authz.InternalActor{UserID: 2}, sess)
	require.Zero(t, sess.ActiveCompany())

	// Never exposed to company actors; must be a no-op regardless.
	sess.SetActiveCompany(4)
	resolver.ExitCompany(authz.CompanyActor{UserID: 1, CompanyID: 5}, sess)
	require.EqualValues(t, 4, sess.ActiveCompany())
}
