package policy

import (
	"errors"
	"testing"

	"github.com/evcraddock/house-market/internal/errs"
)

func TestEvaluate(t *testing.T) {
	owner := Subject{UserID: "owner"}
	sender := Subject{UserID: "sender"}
	stranger := Subject{UserID: "stranger"}
	anon := Subject{}

	property := Resource{Kind: KindProperty, OwnerID: "owner"}
	inquiry := Resource{Kind: KindInquiry, OwnerID: "owner", CreatorID: "sender"}
	viewing := Resource{Kind: KindViewing, OwnerID: "owner", CreatorID: "sender"}
	pref := Resource{Kind: KindPreference, OwnerID: "sender"}
	profile := Resource{Kind: KindProfile, OwnerID: "owner"}

	tests := []struct {
		name    string
		subject Subject
		action  Action
		res     Resource
		want    error
	}{
		{"anyone reads property", anon, Read, property, nil},
		{"anonymous cannot create property", anon, Create, property, errs.ErrUnauthorized},
		{"member creates property", stranger, Create, property, nil},
		{"owner updates property", owner, Update, property, nil},
		{"stranger cannot update property", stranger, Update, property, errs.ErrForbidden},
		{"stranger cannot delete property", stranger, Delete, property, errs.ErrForbidden},

		{"member sends inquiry", stranger, Create, inquiry, nil},
		{"sender reads inquiry", sender, Read, inquiry, nil},
		{"owner reads inquiry", owner, Read, inquiry, nil},
		{"stranger cannot read inquiry", stranger, Read, inquiry, errs.ErrForbidden},
		{"owner updates inquiry", owner, Update, inquiry, nil},
		{"sender cannot update inquiry", sender, Update, inquiry, errs.ErrForbidden},
		{"sender deletes inquiry", sender, Delete, inquiry, nil},
		{"owner deletes inquiry", owner, Delete, inquiry, nil},
		{"anonymous cannot read inquiry", anon, Read, inquiry, errs.ErrUnauthorized},

		{"requester reads viewing", sender, Read, viewing, nil},
		{"owner updates viewing", owner, Update, viewing, nil},
		{"requester updates viewing", sender, Update, viewing, nil},
		{"owner cannot delete viewing", owner, Delete, viewing, errs.ErrForbidden},
		{"requester deletes viewing", sender, Delete, viewing, nil},
		{"stranger cannot read viewing", stranger, Read, viewing, errs.ErrForbidden},

		{"user reads own preferences", sender, Read, pref, nil},
		{"user updates own preferences", sender, Update, pref, nil},
		{"other user cannot read preferences", owner, Read, pref, errs.ErrForbidden},
		{"preferences are never deleted", sender, Delete, pref, errs.ErrForbidden},

		{"user updates own profile", owner, Update, profile, nil},
		{"other user cannot update profile", stranger, Update, profile, errs.ErrForbidden},
		{"unknown kind is denied", owner, Read, Resource{Kind: "other", OwnerID: "owner"}, errs.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Evaluate(tt.subject, tt.action, tt.res)
			if tt.want == nil {
				if err != nil {
					t.Errorf("err = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
