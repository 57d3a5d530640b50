package inquiry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/evcraddock/house-market/internal/email"
	"github.com/evcraddock/house-market/internal/errs"
	"github.com/evcraddock/house-market/internal/policy"
	"github.com/evcraddock/house-market/internal/property"
)

// PropertyLookup finds the listing an inquiry is about.
type PropertyLookup interface {
	GetByID(id string) (*property.Property, error)
}

// Notifier tells listing owners about new inquiries.
type Notifier interface {
	InquiryReceived(to string, notice email.InquiryNotice) error
}

// Service provides inquiry business logic.
type Service struct {
	repo       *Repository
	properties PropertyLookup
	notifier   Notifier
}

// NewService creates an inquiry service. notifier may be nil.
func NewService(repo *Repository, properties PropertyLookup, notifier Notifier) *Service {
	return &Service{repo: repo, properties: properties, notifier: notifier}
}

func resource(q *Inquiry) policy.Resource {
	return policy.Resource{Kind: policy.KindInquiry, OwnerID: q.OwnerID, CreatorID: q.SenderID}
}

// Create sends an inquiry about propertyID. The owner is taken from the
// listing and notified by email best-effort.
func (s *Service) Create(ctx context.Context, subject policy.Subject, propertyID string, in Input) (*Inquiry, error) {
	if err := policy.Evaluate(subject, policy.Create, policy.Resource{Kind: policy.KindInquiry}); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := s.properties.GetByID(propertyID)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Insert(&Inquiry{
		ID:          uuid.NewString(),
		PropertyID:  p.ID,
		SenderID:    subject.UserID,
		OwnerID:     p.OwnerID,
		SenderName:  in.SenderName,
		SenderEmail: in.SenderEmail,
		SenderPhone: in.SenderPhone,
		Subject:     in.Subject,
		Message:     in.Message,
		Status:      StatusUnread,
		Priority:    in.Priority,
	})
	if err != nil {
		return nil, err
	}

	s.notifyOwner(p, saved)
	return saved, nil
}

func (s *Service) notifyOwner(p *property.Property, q *Inquiry) {
	if s.notifier == nil || p.ListerEmail == "" {
		return
	}
	notice := email.InquiryNotice{
		Listing:     email.Listing{ID: p.ID, Title: p.Title, Address: p.Address, Price: p.Price},
		SenderName:  q.SenderName,
		SenderEmail: q.SenderEmail,
		SenderPhone: q.SenderPhone,
		Subject:     q.Subject,
		Message:     q.Message,
	}
	if err := s.notifier.InquiryReceived(p.ListerEmail, notice); err != nil {
		slog.Warn("notifying owner of inquiry", "inquiry", q.ID, "err", err)
	}
}

// Get returns an inquiry visible to the sender or the listing owner.
func (s *Service) Get(ctx context.Context, subject policy.Subject, id string) (*Inquiry, error) {
	q, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := policy.Evaluate(subject, policy.Read, resource(q)); err != nil {
		return nil, err
	}
	return q, nil
}

// ListReceived returns inquiries about the subject's listings.
func (s *Service) ListReceived(ctx context.Context, subject policy.Subject) ([]*Inquiry, error) {
	if subject.Anonymous() {
		return nil, fmt.Errorf("listing inquiries: %w", errs.ErrUnauthorized)
	}
	return s.repo.ListByOwner(subject.UserID)
}

// ListSent returns inquiries the subject has sent.
func (s *Service) ListSent(ctx context.Context, subject policy.Subject) ([]*Inquiry, error) {
	if subject.Anonymous() {
		return nil, fmt.Errorf("listing inquiries: %w", errs.ErrUnauthorized)
	}
	return s.repo.ListBySender(subject.UserID)
}

// UpdateStatus changes the status. Only the listing owner may do so.
func (s *Service) UpdateStatus(ctx context.Context, subject policy.Subject, id string, status Status) (*Inquiry, error) {
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

// UpdatePriority changes the priority. Only the listing owner may do so.
func (s *Service) UpdatePriority(ctx context.Context, subject policy.Subject, id string, priority Priority) (*Inquiry, error) {
	if !priority.IsValid() {
		return nil, fmt.Errorf("%w: priority %q", errs.ErrInvalid, priority)
	}
	if _, err := s.authorize(subject, policy.Update, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePriority(id, priority); err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

// Delete removes an inquiry. The sender or the listing owner may do so.
func (s *Service) Delete(ctx context.Context, subject policy.Subject, id string) error {
	if _, err := s.authorize(subject, policy.Delete, id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

func (s *Service) authorize(subject policy.Subject, action policy.Action, id string) (*Inquiry, error) {
	q, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := policy.Evaluate(subject, action, resource(q)); err != nil {
		return nil, err
	}
	return q, nil
}
