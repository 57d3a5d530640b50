package property

import (
	"errors"
	"net/url"
	"testing"

	"github.com/evcraddock/house-market/internal/errs"
)

func TestValidStatus(t *testing.T) {
	for _, s := range []string{"available", "pending", "sold"} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false", s)
		}
	}
	for _, s := range []string{"", "rented", "AVAILABLE"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true", s)
		}
	}
}

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"ok", Input{Title: "Bungalow", Address: "1 Main St", Price: 100}, nil},
		{"missing title", Input{Address: "1 Main St"}, errs.ErrInvalid},
		{"blank address", Input{Title: "T", Address: "   "}, errs.ErrInvalid},
		{"negative price", Input{Title: "T", Address: "A", Price: -1}, errs.ErrInvalid},
		{"bad status", Input{Title: "T", Address: "A", Status: "rented"}, errs.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			err := in.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("validate: %v", err)
				}
				if in.Status != StatusAvailable {
					t.Errorf("status = %q, want default available", in.Status)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPatchApply(t *testing.T) {
	p := &Property{Title: "Old", Address: "1 Main St", Price: 100, Status: StatusAvailable}

	title := "New"
	sold := StatusSold
	if err := (Patch{Title: &title, Status: &sold}).Apply(p); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.Title != "New" || p.Status != StatusSold || p.Price != 100 {
		t.Errorf("got %+v", p)
	}

	// Sold back to available is allowed.
	avail := StatusAvailable
	if err := (Patch{Status: &avail}).Apply(p); err != nil {
		t.Errorf("free-form transition: %v", err)
	}

	bad := Status("rented")
	if err := (Patch{Status: &bad}).Apply(p); !errors.Is(err, errs.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if p.Status != StatusAvailable {
		t.Errorf("failed patch changed status to %q", p.Status)
	}
}

func TestListOptionsParams(t *testing.T) {
	if got := (ListOptions{}).Params(); len(got) != 0 {
		t.Errorf("empty options params = %v", got)
	}

	got := ListOptions{City: "Austin", MinPrice: 100, Status: StatusPending, Limit: 10}.Params()
	want := map[string]string{"city": "austin", "min_price": "100", "status": "pending", "limit": "10"}
	if len(got) != len(want) {
		t.Fatalf("params = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("params[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestParseListOptionsRoundTrip(t *testing.T) {
	in := ListOptions{Status: StatusSold, City: "austin", MinPrice: 5, MaxPrice: 10, MinBedrooms: 2, Search: "loft", Limit: 3, Offset: 6}

	got, err := ParseListOptions(in.Query())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != in {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}

func TestParseListOptionsInvalid(t *testing.T) {
	for _, raw := range []string{"status=gone", "min_price=abc", "limit=-1", "min_beds=x"} {
		q, _ := url.ParseQuery(raw)
		if _, err := ParseListOptions(q); !errors.Is(err, errs.ErrInvalid) {
			t.Errorf("%s: err = %v, want ErrInvalid", raw, err)
		}
	}
}
