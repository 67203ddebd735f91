package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName rejects names that could not be a package and
// could hurt us if they were: names here end up in filesystem probes
// under node_modules and in shell command lines.
//
// The rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path traversal sequences (.., //) or backslashes
//   - Maximum length of 256 characters
//
// Registry-specific shape (case, allowed punctuation) is checked by
// ValidateNpmPackageName on top of this.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// npmPackageNameRegex matches valid npm package names, including
// scoped names like @types/node.
var npmPackageNameRegex = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

// npmMaxNameLength is the registry's limit on package name length.
const npmMaxNameLength = 214

// ValidateNpmPackageName validates an npm package name per the
// registry's rules: lowercase, URL-safe characters, at most one scope
// segment, no leading dot or underscore.
func ValidateNpmPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}

	if len(name) > npmMaxNameLength {
		return New(ErrCodeInvalidPackage, "npm package names are limited to %d characters", npmMaxNameLength)
	}

	if strings.ToLower(name) != name {
		return New(ErrCodeInvalidPackage, "npm package names must be lowercase: %q", name)
	}

	if !npmPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid npm package name: %q", name)
	}

	return nil
}

// versionSpecRegex matches exact versions, dist-tags and simple semver
// ranges ("18.2.0", "latest", "^1.2.3", ">=2.0.0-beta.1").
var versionSpecRegex = regexp.MustCompile(`^[A-Za-z0-9._^~<>=+-]+$`)

// ValidateVersionSpec rejects version arguments that could not be a
// semver spec or dist-tag. Like package names, version specs end up in
// shell command lines, so shell metacharacters and whitespace are
// rejected outright. An empty spec is valid and means "latest".
func ValidateVersionSpec(spec string) error {
	if spec == "" {
		return nil
	}
	if len(spec) > 100 {
		return New(ErrCodeInvalidPackage, "version spec too long")
	}
	if !versionSpecRegex.MatchString(spec) {
		return New(ErrCodeInvalidPackage, "invalid version spec: %q", spec)
	}
	return nil
}

// ValidateURL ensures a URL uses the http or https scheme. Used for
// registry endpoints read from configuration.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
