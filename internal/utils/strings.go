package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.@+-]{3,150}$`)
)

// NormalizeEmail normalizes email addresses (lowercase and trim)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps a leading + and the digits, dropping spaces, dashes
// and brackets so that one number has exactly one stored form.
func NormalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return ""
	}

	var result strings.Builder
	for i, r := range cleaned {
		if i == 0 && r == '+' {
			result.WriteRune(r)
		} else if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(NormalizeEmail(email))
}

// IsValidPhone accepts 9 to 13 digits with an optional leading +. Only
// digits, spaces, dashes and brackets may appear in the raw input.
func IsValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return false
	}
	for i, r := range phone {
		switch {
		case unicode.IsDigit(r), r == ' ', r == '-', r == '(', r == ')':
		case r == '+' && i == 0:
		default:
			return false
		}
	}
	digits := strings.TrimPrefix(NormalizePhone(phone), "+")
	return len(digits) >= 9 && len(digits) <= 13
}

// IsValidUsername also rejects names that would pass as an email or phone
// number, since login routes on that shape before trying usernames.
func IsValidUsername(username string) bool {
	if !usernameRegex.MatchString(username) {
		return false
	}
	return !IsValidEmail(username) && !IsValidPhone(username)
}

// FileExtension returns the lower-cased extension of name without the dot.
func FileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
