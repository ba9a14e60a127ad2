package offices

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-saas/meridian/internal/shared"
)

// Service handles office administration logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the company's offices.
func (s *Service) List(ctx context.Context, companyID int64, q shared.ListQuery) ([]Office, int, error) {
	return s.repo.List(ctx, companyID, q)
}

// Get fetches one office of the company.
func (s *Service) Get(ctx context.Context, id, companyID int64) (Office, error) {
	return s.repo.Get(ctx, id, companyID)
}

// Create validates and inserts an office.
func (s *Service) Create(ctx context.Context, companyID int64, office Office) (Office, error) {
	office, err := normalize(office)
	if err != nil {
		return Office{}, err
	}
	office.CompanyID = companyID
	return s.repo.Create(ctx, office)
}

// Update rewrites an office.
func (s *Service) Update(ctx context.Context, id, companyID int64, office Office) (Office, error) {
	office, err := normalize(office)
	if err != nil {
		return Office{}, err
	}
	return s.repo.Update(ctx, id, companyID, office)
}

// Activate re-enables the office.
func (s *Service) Activate(ctx context.Context, id, companyID int64) error {
	return s.repo.SetActive(ctx, id, companyID, true)
}

// Deactivate disables the office.
func (s *Service) Deactivate(ctx context.Context, id, companyID int64) error {
	return s.repo.SetActive(ctx, id, companyID, false)
}

func normalize(office Office) (Office, error) {
	office.Name = strings.TrimSpace(office.Name)
	office.Address = strings.TrimSpace(office.Address)
	office.Phone = strings.TrimSpace(office.Phone)
	if office.Name == "" {
		return Office{}, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	return office, nil
}
