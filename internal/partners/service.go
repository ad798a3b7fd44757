package partners

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kitchenledger/backoffice/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Create(ctx context.Context, in Input) (Partner, error)
	Update(ctx context.Context, id int64, in Input) (Partner, error)
	Get(ctx context.Context, id int64) (Partner, error)
	Deactivate(ctx context.Context, id int64) error
	List(ctx context.Context, includeInactive bool) ([]Partner, error)
}

// Invalidator is notified when shares change.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service manages partners. Shares are not required to sum to 100; the
// balance sheet reports the total so it can be flagged.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
}

// NewService builds Service. invalidator may be nil.
func NewService(repo RepositoryPort, invalidator Invalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

var hundred = decimal.NewFromInt(100)

func check(in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.SharePercent.IsNegative() || in.SharePercent.GreaterThan(hundred) {
		return ErrInvalidShare
	}
	return shared.Validate(*in)
}

// Create adds a partner.
func (s *Service) Create(ctx context.Context, in Input) (Partner, error) {
	if err := check(&in); err != nil {
		return Partner{}, err
	}
	p, err := s.repo.Create(ctx, in)
	if err != nil {
		return Partner{}, err
	}
	s.bump(ctx)
	return p, nil
}

// Update edits a partner.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Partner, error) {
	if err := check(&in); err != nil {
		return Partner{}, err
	}
	p, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Partner{}, err
	}
	s.bump(ctx)
	return p, nil
}

// Get loads one partner.
func (s *Service) Get(ctx context.Context, id int64) (Partner, error) {
	return s.repo.Get(ctx, id)
}

// Deactivate removes a partner from future splits.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// List lists partners.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Partner, error) {
	return s.repo.List(ctx, includeInactive)
}

// Active lists the partners that take part in a split.
func (s *Service) Active(ctx context.Context) ([]Partner, error) {
	return s.repo.List(ctx, false)
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator != nil {
		_ = s.invalidator.Bump(ctx)
	}
}
