package utils

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// Field validation rules for accounts and hotels. Failures return a
// human-readable message suitable for a field-level 400 response.

var (
	// Passwords need at least 8 alphanumeric characters with both letters
	// and digits.
	passwordRe = regexp.MustCompile(`^[A-Za-z\d]{8,}$`)
	hasLetter  = regexp.MustCompile(`[A-Za-z]`)
	hasDigit   = regexp.MustCompile(`\d`)

	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// socialPlatforms is the allow-list of keys accepted in a hotel's
// social_links map.
var socialPlatforms = map[string]bool{
	"facebook":  true,
	"instagram": true,
	"twitter":   true,
	"linkedin":  true,
	"youtube":   true,
	"tiktok":    true,
	"website":   true,
}

// ValidatePassword enforces the account password policy.
func ValidatePassword(pw string) error {
	if !passwordRe.MatchString(pw) || !hasLetter.MatchString(pw) || !hasDigit.MatchString(pw) {
		return fmt.Errorf("password must be at least 8 characters long and contain both letters and numbers")
	}
	return nil
}

// ValidateUsername enforces the username charset and length limits.
func ValidateUsername(name string) error {
	if name == "" || len(name) > 150 || !usernameRe.MatchString(name) {
		return fmt.Errorf("username can only contain letters, numbers, dots, dashes, and underscores")
	}
	return nil
}

// ValidateEmail checks that the value parses as a single address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

// ValidateSocialLinks rejects unknown platform keys and empty values.
func ValidateSocialLinks(links map[string]string) error {
	for platform, url := range links {
		if !socialPlatforms[platform] {
			return fmt.Errorf("'%s' is not a supported social media platform", platform)
		}
		if strings.TrimSpace(url) == "" {
			return fmt.Errorf("URL for '%s' must be a non-empty string", platform)
		}
	}
	return nil
}

// NormalizeOrdering validates an ordering query parameter against an
// allow-list of fields and returns the column plus direction. An empty or
// unknown value falls back to the provided default.
func NormalizeOrdering(raw, def string, allowed map[string]bool) (column string, desc bool) {
	v := strings.TrimSpace(raw)
	if v == "" {
		v = def
	}
	if strings.HasPrefix(v, "-") {
		desc = true
		v = v[1:]
	}
	if !allowed[v] {
		v = strings.TrimPrefix(def, "-")
		desc = strings.HasPrefix(def, "-")
	}
	return v, desc
}
