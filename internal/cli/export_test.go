package cli

import (
	"testing"

	"github.com/pkglens/pkglens/pkg/errors"
)

func TestValidateExportFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"dot", false},
		{"svg", false},
		{"png", true},
		{"pdf", true},
		{"", true},
		{"DOT", true},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			err := validateExportFormat(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateExportFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if tt.wantErr && errors.GetCode(err) != errors.ErrCodeInvalidFormat {
				t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ErrCodeInvalidFormat)
			}
		})
	}
}
