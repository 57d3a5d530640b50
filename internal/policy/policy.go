// Package policy decides whether a subject may perform an action on a record.
// Every service calls Evaluate before touching data owned by someone.
package policy

import (
	"fmt"

	"github.com/evcraddock/house-market/internal/errs"
)

// Action is an operation on a record.
type Action string

const (
	Read   Action = "read"
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
)

// Kind identifies the type of record being acted on.
type Kind string

const (
	KindProperty   Kind = "property"
	KindInquiry    Kind = "inquiry"
	KindViewing    Kind = "viewing"
	KindPreference Kind = "preference"
	KindProfile    Kind = "profile"
)

// Subject is the user performing an action. The zero value is anonymous.
type Subject struct {
	UserID string
}

// Anonymous reports whether no user is signed in.
func (s Subject) Anonymous() bool { return s.UserID == "" }

// Resource describes the record being acted on.
type Resource struct {
	Kind Kind
	// OwnerID is the property owner for property, inquiry and viewing
	// records, and the user for preference and profile records.
	OwnerID string
	// CreatorID is the inquiry sender or viewing requester.
	CreatorID string
}

// Evaluate returns nil when subject may perform action on res,
// errs.ErrUnauthorized for anonymous subjects on non-public actions,
// and errs.ErrForbidden otherwise.
func Evaluate(subject Subject, action Action, res Resource) error {
	if res.Kind == KindProperty && action == Read {
		return nil
	}
	if subject.Anonymous() {
		return fmt.Errorf("%s %s: %w", action, res.Kind, errs.ErrUnauthorized)
	}

	if allowed(subject.UserID, action, res) {
		return nil
	}
	return fmt.Errorf("%s %s: %w", action, res.Kind, errs.ErrForbidden)
}

func allowed(user string, action Action, res Resource) bool {
	owner := user == res.OwnerID
	creator := user == res.CreatorID

	switch res.Kind {
	case KindProperty:
		switch action {
		case Create:
			return true
		case Update, Delete:
			return owner
		}
	case KindInquiry:
		switch action {
		case Create:
			return true
		case Read, Delete:
			return owner || creator
		case Update:
			return owner
		}
	case KindViewing:
		switch action {
		case Create:
			return true
		case Read, Update:
			return owner || creator
		case Delete:
			return creator
		}
	case KindPreference, KindProfile:
		switch action {
		case Read, Create, Update:
			return owner
		}
	}
	return false
}
