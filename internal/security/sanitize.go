// Package security holds the client-side input checks, the login/register
// rate limiter and the anti-forgery token source. None of it is a substitute
// for server-side validation.
package security

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	reAngle      = regexp.MustCompile(`[<>]`)
	reJSProtocol = regexp.MustCompile(`(?i)javascript:`)
	reHandler    = regexp.MustCompile(`(?i)on\w+=`)
	reNonDigit   = regexp.MustCompile(`\D`)

	reEmail   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	rePhoneIN = regexp.MustCompile(`^[6-9]\d{9}$`)
	rePincode = regexp.MustCompile(`^\d{6}$`)
	reLetter  = regexp.MustCompile(`[A-Za-z]`)
	reDigit   = regexp.MustCompile(`\d`)
)

// Sanitize strips angle brackets, javascript: and inline event handlers, then trims.
func Sanitize(s string) string {
	s = reAngle.ReplaceAllString(s, "")
	s = reJSProtocol.ReplaceAllString(s, "")
	s = reHandler.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func DigitsOnly(s string) string { return reNonDigit.ReplaceAllString(s, "") }

func ValidEmail(s string) bool { return reEmail.MatchString(s) }

// ValidIndianPhone checks a 10 digit mobile number starting with 6-9.
// Formatting characters are ignored.
func ValidIndianPhone(s string) bool { return rePhoneIN.MatchString(DigitsOnly(s)) }

func ValidPincode(s string) bool { return rePincode.MatchString(s) }

const MinPasswordLen = 6

// PasswordProblems lists every rule the password breaks, in a fixed order.
// An empty result means the password is acceptable.
func PasswordProblems(pw string) []string {
	var out []string
	if len(pw) < MinPasswordLen {
		out = append(out, "Password must be at least 6 characters")
	}
	if !reLetter.MatchString(pw) {
		out = append(out, "Password must contain at least one letter")
	}
	if !reDigit.MatchString(pw) {
		out = append(out, "Password must contain at least one number")
	}
	return out
}

// IsSecureURL accepts https URLs and anything on localhost.
func IsSecureURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "https" || u.Hostname() == "localhost"
}
