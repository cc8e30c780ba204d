package secretutil

import "strings"

// Mask keeps the first and last characters of a secret and stars the rest.
// Secrets too short to hide anything are fully starred.
func Mask(secret string, visibleStart, visibleEnd int) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= visibleStart+visibleEnd {
		return strings.Repeat("*", len(secret))
	}

	hidden := len(secret) - visibleStart - visibleEnd
	return secret[:visibleStart] + strings.Repeat("*", hidden) + secret[len(secret)-visibleEnd:]
}
