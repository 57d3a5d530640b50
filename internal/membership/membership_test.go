package membership

import (
	"reflect"
	"testing"
)

func TestToggle(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		id   string
		want []string
	}{
		{"add to empty", nil, "p1", []string{"p1"}},
		{"append", []string{"p1"}, "p2", []string{"p1", "p2"}},
		{"remove first", []string{"p1", "p2"}, "p1", []string{"p2"}},
		{"remove only", []string{"p1"}, "p1", []string{}},
		{"remove all copies", []string{"p1", "p2", "p1"}, "p1", []string{"p2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Toggle(tt.ids, tt.id)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Toggle(%v, %q) = %v, want %v", tt.ids, tt.id, got, tt.want)
			}
		})
	}
}

func TestToggleRoundTrip(t *testing.T) {
	got := Toggle(Toggle([]string{}, "p1"), "p1")
	if len(got) != 0 {
		t.Errorf("round trip = %v, want empty", got)
	}
}

func TestToggleDoesNotModifyInput(t *testing.T) {
	in := []string{"p1", "p2"}
	Toggle(in, "p1")
	if !reflect.DeepEqual(in, []string{"p1", "p2"}) {
		t.Errorf("input modified: %v", in)
	}
}

func TestContainsAndDedupe(t *testing.T) {
	if !Contains([]string{"a", "b"}, "b") || Contains(nil, "a") {
		t.Error("Contains mismatch")
	}
	got := Dedupe([]string{"a", "", "b", "a"})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Dedupe = %v", got)
	}
}
