// Package inquiry provides client queries sent by buyers to listing owners.
package inquiry

import (
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/house-market/internal/errs"
)

// Status tracks whether the owner has handled an inquiry. Any status may
// follow any other.
type Status string

const (
	StatusUnread  Status = "unread"
	StatusRead    Status = "read"
	StatusReplied Status = "replied"
)

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	switch s {
	case StatusUnread, StatusRead, StatusReplied:
		return true
	}
	return false
}

// Priority is the owner's triage level for an inquiry.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if a priority is recognized.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Inquiry is a message from a buyer about a listing.
type Inquiry struct {
	ID          string    `json:"id"`
	PropertyID  string    `json:"property_id"`
	SenderID    string    `json:"sender_id"`
	OwnerID     string    `json:"owner_id"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email"`
	SenderPhone string    `json:"sender_phone"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input holds the sender-supplied fields of a new inquiry.
type Input struct {
	SenderName  string   `json:"sender_name"`
	SenderEmail string   `json:"sender_email"`
	SenderPhone string   `json:"sender_phone"`
	Subject     string   `json:"subject"`
	Message     string   `json:"message"`
	Priority    Priority `json:"priority"`
}

// Validate normalizes in and checks required fields.
func (in *Input) Validate() error {
	in.Message = strings.TrimSpace(in.Message)
	in.Subject = strings.TrimSpace(in.Subject)
	in.SenderEmail = strings.TrimSpace(in.SenderEmail)

	if in.Message == "" {
		return fmt.Errorf("%w: message is required", errs.ErrInvalid)
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.IsValid() {
		return fmt.Errorf("%w: priority %q", errs.ErrInvalid, in.Priority)
	}
	return nil
}
