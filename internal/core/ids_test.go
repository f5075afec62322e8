// AngelaMos | 2026
// ids_test.go

package core

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateEventID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "simple", id: "evt-1"},
		{name: "max length", id: strings.Repeat("e", MaxEventIDLength)},
		{name: "empty", id: "", wantErr: true},
		{name: "too long", id: strings.Repeat("e", MaxEventIDLength+1), wantErr: true},
		{name: "slash", id: "a/b", wantErr: true},
		{name: "space", id: "a b", wantErr: true},
		{name: "tab", id: "a\tb", wantErr: true},
		{name: "newline", id: "a\n", wantErr: true},
		{name: "non-breaking space", id: "a\u00a0b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEventID(tt.id)
			if !tt.wantErr {
				if err != nil {
					t.Errorf("ValidateEventID(%q) = %v", tt.id, err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ValidateEventID(%q) = %v, want ErrInvalidInput", tt.id, err)
			}
		})
	}
}
