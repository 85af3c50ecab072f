// Package textclean turns HTML residue from feeds and extractors into plain text.
package textclean

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	imageURL   = regexp.MustCompile(`(?i)https?://\S+\.(jpg|jpeg|png|gif|webp|svg)\S*`)
)

// Clean strips tags, drops bare image URLs and collapses whitespace.
func Clean(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := raw
	if strings.ContainsAny(raw, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err == nil {
			doc.Find("script, style, noscript").Remove()
			var parts []string
			doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
				parts = append(parts, s.Text())
			})
			text = strings.Join(parts, " ")
		}
	}

	text = imageURL.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
