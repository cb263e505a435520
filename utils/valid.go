// utils/valid.go
package utils

import (
	"errors"
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phone10Regex   = regexp.MustCompile(`^\d{10}$`)
	nonDigitRegex  = regexp.MustCompile(`[^\d]`)
	scriptTagRegex = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	otpCodeRegex   = regexp.MustCompile(`^\d{6}$`)
	upiIDRegex     = regexp.MustCompile(`^[a-zA-Z0-9._-]{2,256}@[a-zA-Z][a-zA-Z0-9]{1,64}$`)
)

// SanitizeInput sanitizes user input to prevent XSS and injection attacks
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)

	// Remove any potential script tags before escaping
	input = scriptTagRegex.ReplaceAllString(input, "")

	input = html.EscapeString(input)

	// Remove control characters, keep newlines for multi-line text
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' {
			return -1
		}
		return r
	}, input)
}

// SanitizeStringArray sanitizes an array of strings, dropping empty entries
func SanitizeStringArray(inputs []string) []string {
	sanitized := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if s := SanitizeInput(input); s != "" {
			sanitized = append(sanitized, s)
		}
	}
	return sanitized
}

// SanitizeEmail lower-cases and validates an email address
func SanitizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !IsValidEmail(email) {
		return "", errors.New("invalid email format")
	}
	return email, nil
}

// IsValidEmail reports whether email looks like an address.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizePhone strips everything but digits and a leading country code,
// returning the 10-digit national number.
func NormalizePhone(phone, countryCode string) string {
	digits := nonDigitRegex.ReplaceAllString(phone, "")
	cc := nonDigitRegex.ReplaceAllString(countryCode, "")
	if cc != "" && len(digits) == 10+len(cc) && strings.HasPrefix(digits, cc) {
		digits = digits[len(cc):]
	}
	return digits
}

// IsValidPhone10 reports whether phone is exactly ten digits.
func IsValidPhone10(phone string) bool {
	return phone10Regex.MatchString(phone)
}

// ToE164 prefixes a 10-digit national number with the implicit country code.
func ToE164(phone, countryCode string) string {
	if !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	return countryCode + phone
}

// IsValidOTPCode reports whether code is exactly six digits.
func IsValidOTPCode(code string) bool {
	return otpCodeRegex.MatchString(code)
}

// IsValidUPIID reports whether id has the handle@provider form.
func IsValidUPIID(id string) bool {
	return upiIDRegex.MatchString(id)
}

// MaskPhone hides all but the last four digits for logging.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
