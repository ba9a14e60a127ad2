package companies

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-saas/meridian/internal/shared"
)

// Service handles company business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns companies matching the query.
func (s *Service) List(ctx context.Context, q shared.ListQuery) ([]Company, int, error) {
	return s.repo.List(ctx, q)
}

// Get fetches one company.
func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a company.
func (s *Service) Create(ctx context.Context, company Company) (Company, error) {
	if err := normalize(&company); err != nil {
		return Company{}, err
	}
	return s.repo.Create(ctx, company)
}

// Update validates and rewrites a company.
func (s *Service) Update(ctx context.Context, id int64, company Company) (Company, error) {
	if err := normalize(&company); err != nil {
		return Company{}, err
	}
	return s.repo.Update(ctx, id, company)
}

// Activate re-enables a company as selectable context.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, true)
}

// Deactivate disables a company. Existing sessions pointing at it fall
// back to awaiting-selection on their next request.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}

func normalize(company *Company) error {
	company.Code = strings.ToUpper(strings.TrimSpace(company.Code))
	company.Name = strings.TrimSpace(company.Name)
	company.Address = strings.TrimSpace(company.Address)
	if company.Code == "" {
		return fmt.Errorf("%w: company code is required", shared.ErrValidation)
	}
	if company.Name == "" {
		return fmt.Errorf("%w: company name is required", shared.ErrValidation)
	}
	return nil
}
