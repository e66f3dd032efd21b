// Package names validates the names workbooks are stored under.
package names

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	maxNameLen  = 255
)

// Normalize turns a free-form string (usually a file name) into a valid
// store name:
// - Always lower-case
// - Spaces and underscores become hyphens
// - Allowed characters: a-z, 0-9, '.', '-'
// - Must start with [a-z0-9]
// - Max length: 255 bytes
func Normalize(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("name cannot be empty")
	}

	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '.' {
			b.WriteRune(r)
		}
	}
	s = strings.Trim(b.String(), "-.")

	if s == "" {
		return "", fmt.Errorf("name must contain a letter or digit")
	}
	if err := Validate(s); err != nil {
		return "", err
	}
	return s, nil
}

// Validate checks that s is a valid store name without normalizing it.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(s) > maxNameLen {
		return fmt.Errorf("name exceeds maximum length of %d bytes", maxNameLen)
	}
	if !namePattern.MatchString(s) {
		return fmt.Errorf("invalid name %q: must be lowercase, start with a letter or digit, and contain only [a-z0-9._-]", s)
	}
	return nil
}

// IsPattern reports whether s contains glob characters.
func IsPattern(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
