package viewing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/house-market/internal/email"
	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/policy"
	"github.com/evcraddock/house-market/internal/property"
)

// PropertyLookup finds the listing a viewing is for.
type PropertyLookup interface {
	GetByID(id string) (*property.Property, error)
}

// Notifier tells listing owners about viewing requests.
type Notifier interface {
	ViewingRequested(to string, notice email.ViewingNotice) error
}

// Service provides viewing business logic.
type Service struct {
	repo       *Repository
	properties PropertyLookup
	notifier   Notifier
	now        func() time.Time
}

// NewService creates a viewing service. notifier may be nil.
func NewService(repo *Repository, properties PropertyLookup, notifier Notifier) *Service {
	return &Service{repo: repo, properties: properties, notifier: notifier, now: time.Now}
}

func resource(v *Viewing) policy.Resource {
	return policy.Resource{Kind: policy.KindViewing, OwnerID: v.OwnerID, CreatorID: v.RequesterID}
}

// Create requests a viewing of propertyID. New viewings start scheduled.
func (s *Service) Create(ctx context.Context, subject policy.Subject, propertyID string, in Input) (*Viewing, error) {
	if err := policy.Evaluate(subject, policy.Create, policy.Resource{Kind: policy.KindViewing}); err != nil {
		return nil, err
	}
	if err := in.Validate(s.now()); err != nil {
		return nil, err
	}

	p, err := s.properties.GetByID(propertyID)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Insert(&Viewing{
		ID:          uuid.NewString(),
		PropertyID:  p.ID,
		RequesterID: subject.UserID,
		OwnerID:     p.OwnerID,
		ScheduledAt: in.ScheduledAt,
		Notes:       in.Notes,
		Status:      StatusScheduled,
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil && p.ListerEmail != "" {
		notice := email.ViewingNotice{
			Listing:     email.Listing{ID: p.ID, Title: p.Title, Address: p.Address, Price: p.Price},
			ScheduledAt: saved.ScheduledAt,
			Notes:       saved.Notes,
		}
		if err := s.notifier.ViewingRequested(p.ListerEmail, notice); err != nil {
			slog.Warn("notifying owner of viewing", "viewing", saved.ID, "err", err)
		}
	}
	return saved, nil
}

// Get returns a viewing visible to the requester or the listing owner.
func (s *Service) Get(ctx context.Context, subject policy.Subject, id string) (*Viewing, error) {
	return s.authorize(subject, policy.Read, id)
}

// ListForOwner returns viewings of the subject's listings.
func (s *Service) ListForOwner(ctx context.Context, subject policy.Subject) ([]*Viewing, error) {
	if subject.Anonymous() {
		return nil, fmt.Errorf("listing viewings: %w", errs.ErrUnauthorized)
	}
	return s.repo.ListByOwner(subject.UserID)
}

// ListForRequester returns viewings the subject has requested.
func (s *Service) ListForRequester(ctx context.Context, subject policy.Subject) ([]*Viewing, error) {
	if subject.Anonymous() {
		return nil, fmt.Errorf("listing viewings: %w", errs.ErrUnauthorized)
	}
	return s.repo.ListByRequester(subject.UserID)
}

// UpdateStatus sets any recognized status. Either party may change it and
// no transition order is enforced.
func (s *Service) UpdateStatus(ctx context.Context, subject policy.Subject, id string, status Status) (*Viewing, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: status %q", errs.ErrInvalid, status)
	}
	if _, err := s.authorize(subject, policy.Update, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(id, status); err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

// Delete removes a viewing. Only the requester may do so.
func (s *Service) Delete(ctx context.Context, subject policy.Subject, id string) error {
	if _, err := s.authorize(subject, policy.Delete, id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

func (s *Service) authorize(subject policy.Subject, action policy.Action, id string) (*Viewing, error) {
	v, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := policy.Evaluate(subject, action, resource(v)); err != nil {
		return nil, err
	}
	return v, nil
}
