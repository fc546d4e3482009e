// Package validation holds the account field rules shared by the auth
// service and the CLI's registration prompts.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	emailRE        = regexp.MustCompile(`^.+@([^.@][^@]+)$`)
	hostnamePartRE = regexp.MustCompile(`(?i)^(xn-|[a-z0-9]+)(-[a-z0-9]+)*$`)
	tldPartRE      = regexp.MustCompile(`(?i)^([a-z]{2,20}|xn--([a-z0-9]+-)*[a-z0-9]+)$`)
	shuIDRE        = regexp.MustCompile(`^\d{9}$`)
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 8
	MaxPasswordLength = 12
	DateLayout        = time.DateOnly
)

// Name rejects empty names
func Name(val string) error {
	if strings.TrimSpace(val) == "" {
		return errors.New("Name should not be void")
	}
	return nil
}

// Username checks the minimum length
func Username(val string) error {
	if len(val) < MinUsernameLength {
		return fmt.Errorf("%s: username is shorter than %d letter", val, MinUsernameLength)
	}
	return nil
}

// Email checks the address shape and that its domain is a plausible hostname
func Email(val string) error {
	m := emailRE.FindStringSubmatch(val)
	if m == nil || Hostname(m[1]) != nil {
		return fmt.Errorf("%s: is not a valid email", val)
	}
	return nil
}

// Hostname checks val is a dotted DNS name with a valid TLD
func Hostname(val string) error {
	invalid := fmt.Errorf("%s is not a valid hostname", val)
	if len(val) > 253 {
		return invalid
	}

	parts := strings.Split(val, ".")
	for _, part := range parts {
		if part == "" || len(part) > 63 || !hostnamePartRE.MatchString(part) {
			return invalid
		}
	}

	if len(parts) < 2 || !tldPartRE.MatchString(parts[len(parts)-1]) {
		return invalid
	}
	return nil
}

// Password enforces 8-12 characters with an uppercase letter, a digit and
// a special character
func Password(val string) error {
	n := len([]rune(val))
	if n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("password must be %d-%d characters long", MinPasswordLength, MaxPasswordLength)
	}

	var upper, digit, special int
	for _, c := range val {
		switch {
		case unicode.IsLetter(c):
			if unicode.IsUpper(c) {
				upper++
			}
		case unicode.IsDigit(c):
			digit++
		default:
			special++
		}
	}

	if upper == 0 || digit == 0 || special == 0 {
		return errors.New("password must contain at least one digit, one uppercase character and one special character")
	}
	return nil
}

// ShuID checks the 9-digit university ID format
func ShuID(val string) error {
	if !shuIDRE.MatchString(val) {
		return fmt.Errorf("%s is not a valid SHU ID", val)
	}
	return nil
}

// Date parses a YYYY-MM-DD date
func Date(val string) (time.Time, error) {
	d, err := time.Parse(DateLayout, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s is not a valid date, expected YYYY-MM-DD", val)
	}
	return d, nil
}
