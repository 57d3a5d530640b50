package cli

import (
	"strings"
	"testing"
)

func TestArgumentValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"show needs id", []string{"show"}},
		{"remove needs id", []string{"remove"}},
		{"add needs address", []string{"add"}},
		{"favorite needs id", []string{"favorite"}},
		{"catalogue takes one id", []string{"catalogue", "a", "b"}},
		{"saved rejects unknown list", []string{"saved", "wishlist"}},
		{"inquire needs message", []string{"inquire", "abc"}},
		{"viewing needs date and time", []string{"viewing", "abc", "2026-11-08"}},
		{"signup needs email", []string{"signup"}},
		{"confirm needs email", []string{"confirm"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv("HM_SERVER_URL", "http://127.0.0.1:1")
			if _, err := executeCommand(tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestViewingRejectsBadDate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HM_SERVER_URL", "http://127.0.0.1:1")

	_, err := executeCommand("viewing", "abc", "next-week", "10:00")
	if err == nil || !strings.Contains(err.Error(), "invalid date/time") {
		t.Fatalf("expected date error, got %v", err)
	}
}

func TestListRejectsBadStatus(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HM_SERVER_URL", "http://127.0.0.1:1")

	_, err := executeCommand("list", "--status", "rented")
	if err == nil || !strings.Contains(err.Error(), "invalid status") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestInquireRejectsBadPriority(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HM_SERVER_URL", "http://127.0.0.1:1")

	_, err := executeCommand("inquire", "abc", "hello", "--priority", "urgent")
	if err == nil || !strings.Contains(err.Error(), "invalid priority") {
		t.Fatalf("expected priority error, got %v", err)
	}
}
