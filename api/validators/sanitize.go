package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, drops control characters, collapses runs of
// whitespace and caps the result at maxLen runes (0 means no cap). Free text
// ends up in emails and in the provider's TransactionDesc.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(input) {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}

	out := []rune(b.String())
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return strings.TrimSpace(string(out))
}
