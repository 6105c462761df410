package models

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDescription(t *testing.T) {
	tests := []struct {
		name        string
		description string
		maxLen      int
		wantErr     error
	}{
		{"valid", "Checkout fails with error 500", 5000, nil},
		{"empty", "", 5000, ErrEmptyDescription},
		{"whitespace only", "   \n\t ", 5000, ErrEmptyDescription},
		{"too long", strings.Repeat("a", 6000), 5000, ErrDescriptionTooLong},
		{"exactly max length", strings.Repeat("a", 5000), 5000, nil},
		{"no limit", strings.Repeat("a", 6000), 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDescription(tt.description, tt.maxLen)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDescription() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDescription() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestKBEntrySearchText(t *testing.T) {
	t.Run("title only", func(t *testing.T) {
		e := KBEntry{Title: "Checkout error 500 on mobile"}
		if got := e.SearchText(); got != "Checkout error 500 on mobile" {
			t.Errorf("SearchText() = %q", got)
		}
	})

	t.Run("title with symptoms", func(t *testing.T) {
		e := KBEntry{
			Title:    "Checkout error 500 on mobile",
			Symptoms: []string{"error 500", "checkout fails"},
		}
		want := "Checkout error 500 on mobile error 500 checkout fails"
		if got := e.SearchText(); got != want {
			t.Errorf("SearchText() = %q, want %q", got, want)
		}
	})
}
