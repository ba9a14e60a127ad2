package priceguides

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-saas/meridian/internal/shared"
)

// Service handles price guide logic. Prices are integer cents and must
// never go negative.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the company's guides.
func (s *Service) List(ctx context.Context, companyID int64, q shared.ListQuery) ([]Guide, int, error) {
	return s.repo.List(ctx, companyID, q)
}

// Get fetches one guide with its items.
func (s *Service) Get(ctx context.Context, id, companyID int64) (Guide, error) {
	return s.repo.Get(ctx, id, companyID)
}

// Create validates and inserts a guide, items included, atomically.
func (s *Service) Create(ctx context.Context, companyID int64, guide Guide) (Guide, error) {
	guide, err := normalizeGuide(guide)
	if err != nil {
		return Guide{}, err
	}
	for i, item := range guide.Items {
		item, err := normalizeItem(item)
		if err != nil {
			return Guide{}, err
		}
		guide.Items[i] = item
	}
	guide.CompanyID = companyID
	return s.repo.Create(ctx, guide)
}

// Update rewrites the guide header.
func (s *Service) Update(ctx context.Context, id, companyID int64, guide Guide) (Guide, error) {
	guide, err := normalizeGuide(guide)
	if err != nil {
		return Guide{}, err
	}
	return s.repo.Update(ctx, id, companyID, guide)
}

// Activate re-enables the guide.
func (s *Service) Activate(ctx context.Context, id, companyID int64) error {
	return s.repo.SetActive(ctx, id, companyID, true)
}

// Deactivate disables the guide.
func (s *Service) Deactivate(ctx context.Context, id, companyID int64) error {
	return s.repo.SetActive(ctx, id, companyID, false)
}

// Delete soft deletes the guide with its items.
func (s *Service) Delete(ctx context.Context, id, companyID int64) error {
	return s.repo.Delete(ctx, id, companyID)
}

// AddItem validates and appends a line.
func (s *Service) AddItem(ctx context.Context, guideID, companyID int64, item Item) (Item, error) {
	item, err := normalizeItem(item)
	if err != nil {
		return Item{}, err
	}
	return s.repo.AddItem(ctx, guideID, companyID, item)
}

// UpdateItem rewrites a line.
func (s *Service) UpdateItem(ctx context.Context, itemID, guideID, companyID int64, item Item) (Item, error) {
	item, err := normalizeItem(item)
	if err != nil {
		return Item{}, err
	}
	return s.repo.UpdateItem(ctx, itemID, guideID, companyID, item)
}

// RemoveItem deletes a line.
func (s *Service) RemoveItem(ctx context.Context, itemID, guideID, companyID int64) error {
	return s.repo.RemoveItem(ctx, itemID, guideID, companyID)
}

func normalizeGuide(guide Guide) (Guide, error) {
	guide.Name = strings.TrimSpace(guide.Name)
	guide.Currency = strings.ToUpper(strings.TrimSpace(guide.Currency))
	if guide.Name == "" {
		return Guide{}, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if len(guide.Currency) != 3 {
		return Guide{}, fmt.Errorf("%w: currency must be a 3-letter code", shared.ErrValidation)
	}
	return guide, nil
}

func normalizeItem(item Item) (Item, error) {
	item.Description = strings.TrimSpace(item.Description)
	item.Unit = strings.TrimSpace(item.Unit)
	if item.Description == "" {
		return Item{}, fmt.Errorf("%w: item description is required", shared.ErrValidation)
	}
	if item.Unit == "" {
		return Item{}, fmt.Errorf("%w: item unit is required", shared.ErrValidation)
	}
	if item.UnitPriceCents < 0 {
		return Item{}, fmt.Errorf("%w: unit price may not be negative", shared.ErrValidation)
	}
	return item, nil
}
