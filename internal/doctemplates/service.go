package doctemplates

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-saas/meridian/internal/shared"
)

// Service handles document template logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the company's templates. An empty kind means all kinds.
func (s *Service) List(ctx context.Context, companyID int64, kind Kind, q shared.ListQuery) ([]Template, int, error) {
	if kind != "" && !kind.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown template kind %q", shared.ErrValidation, kind)
	}
	return s.repo.List(ctx, companyID, kind, q)
}

// Get fetches one template of the company.
func (s *Service) Get(ctx context.Context, id, companyID int64) (Template, error) {
	return s.repo.Get(ctx, id, companyID)
}

// Create validates and inserts a template.
func (s *Service) Create(ctx context.Context, companyID int64, tpl Template) (Template, error) {
	tpl, err := normalize(tpl)
	if err != nil {
		return Template{}, err
	}
	tpl.CompanyID = companyID
	return s.repo.Create(ctx, tpl)
}

// Update rewrites a template.
func (s *Service) Update(ctx context.Context, id, companyID int64, tpl Template) (Template, error) {
	tpl, err := normalize(tpl)
	if err != nil {
		return Template{}, err
	}
	return s.repo.Update(ctx, id, companyID, tpl)
}

// Delete soft deletes the template.
func (s *Service) Delete(ctx context.Context, id, companyID int64) error {
	return s.repo.SoftDelete(ctx, id, companyID)
}

func normalize(tpl Template) (Template, error) {
	tpl.Name = strings.TrimSpace(tpl.Name)
	if tpl.Name == "" {
		return Template{}, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if !tpl.Kind.Valid() {
		return Template{}, fmt.Errorf("%w: unknown template kind %q", shared.ErrValidation, tpl.Kind)
	}
	if strings.TrimSpace(tpl.Body) == "" {
		return Template{}, fmt.Errorf("%w: body is required", shared.ErrValidation)
	}
	return tpl, nil
}
