package cli

import (
	"testing"

	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/pm"
)

func TestParsePackageArg(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    pm.Package
		wantErr bool
	}{
		{
			name: "bare name",
			arg:  "react",
			want: pm.Package{Name: "react"},
		},
		{
			name: "name with version",
			arg:  "lodash@4.17.21",
			want: pm.Package{Name: "lodash", Version: "4.17.21"},
		},
		{
			name: "name with range",
			arg:  "express@^4.18.0",
			want: pm.Package{Name: "express", Version: "^4.18.0"},
		},
		{
			name: "scoped name",
			arg:  "@types/node",
			want: pm.Package{Name: "@types/node"},
		},
		{
			name: "scoped name with version",
			arg:  "@babel/core@7.23.0",
			want: pm.Package{Name: "@babel/core", Version: "7.23.0"},
		},
		{
			name: "dist tag",
			arg:  "typescript@next",
			want: pm.Package{Name: "typescript", Version: "next"},
		},
		{
			name: "trailing at means latest",
			arg:  "react@",
			want: pm.Package{Name: "react"},
		},
		{
			name:    "empty",
			arg:     "",
			wantErr: true,
		},
		{
			name:    "uppercase name",
			arg:     "React",
			wantErr: true,
		},
		{
			name:    "name with spaces",
			arg:     "left pad",
			wantErr: true,
		},
		{
			name:    "shell metacharacters in version",
			arg:     "react@1.0.0;id",
			wantErr: true,
		},
		{
			name:    "command substitution in version",
			arg:     "react@$(id)",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePackageArg(tt.arg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePackageArg(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("parsePackageArg(%q) = %+v, want %+v", tt.arg, got, tt.want)
			}
		})
	}
}

func TestParsePackageArgErrorCode(t *testing.T) {
	_, err := parsePackageArg("Not A Package")
	if code := errors.GetCode(err); code != errors.ErrCodeInvalidPackage {
		t.Errorf("code = %q, want %q", code, errors.ErrCodeInvalidPackage)
	}

	_, err = parsePackageArg("react@`touch x`")
	if code := errors.GetCode(err); code != errors.ErrCodeInvalidPackage {
		t.Errorf("code = %q, want %q", code, errors.ErrCodeInvalidPackage)
	}
}
