package source

import "strings"

const maxImageURLLength = 2048

// ValidImageURL returns the trimmed url when it is an absolute http(s) URL of
// acceptable length, and "" otherwise.
func ValidImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return ""
	}
	if len(raw) > maxImageURLLength {
		return ""
	}
	return raw
}
