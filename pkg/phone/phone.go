// Package phone converts user-entered Kenyan mobile numbers into the
// 254XXXXXXXXX subscriber format the M-Pesa API expects.
package phone

import (
	"strings"

	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
)

const countryCode = "254"

// AcceptedFormats is returned to callers when a number is rejected.
var AcceptedFormats = []string{"0XXXXXXXXX", "254XXXXXXXXX", "+254XXXXXXXXX"}

var stripper = strings.NewReplacer(" ", "", "\t", "", "-", "", "(", "", ")", "")

// Normalize returns the canonical 254XXXXXXXXX form of raw.
func Normalize(raw string) (string, error) {
	cleaned := stripper.Replace(strings.TrimSpace(raw))

	var subscriber string
	switch {
	case strings.HasPrefix(cleaned, "+"+countryCode):
		subscriber = cleaned[len(countryCode)+1:]
	case strings.HasPrefix(cleaned, countryCode):
		subscriber = cleaned[len(countryCode):]
	case strings.HasPrefix(cleaned, "0"):
		subscriber = cleaned[1:]
	default:
		return "", invalid(raw)
	}

	if !validSubscriber(subscriber) {
		return "", invalid(raw)
	}
	return countryCode + subscriber, nil
}

// Valid reports whether raw normalizes cleanly.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

func validSubscriber(s string) bool {
	if len(s) != 9 {
		return false
	}
	if s[0] != '1' && s[0] != '7' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func invalid(raw string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidPhone, "invalid phone number format").WithDetails(map[string]any{
		"phone":           raw,
		"acceptedFormats": AcceptedFormats,
	})
}
