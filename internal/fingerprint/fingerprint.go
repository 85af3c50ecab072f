// Package fingerprint derives article identities and tracks which ones are already stored.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"news_ingest/internal/domain"
)

var whitespace = regexp.MustCompile(`\s+`)

var trackingParams = map[string]struct{}{
	"fbclid": {}, "gclid": {}, "ref": {}, "mc_cid": {}, "mc_eid": {},
}

// Identify returns the url key and content hash of an article draft.
func Identify(a *domain.Article) domain.Fingerprint {
	return domain.Fingerprint{
		URLKey:      URLKey(a.URL),
		ContentHash: ContentHash(a.Title, a.Content),
	}
}

// ContentHash is a SHA-256 over whitespace-collapsed title and content. Case is preserved.
func ContentHash(title, content string) string {
	normalized := CollapseSpace(title) + "\n" + CollapseSpace(content)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// CollapseSpace squeezes runs of whitespace into single spaces and trims the ends.
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// URLKey normalizes a URL so that re-scrapes differing only in protocol,
// tracking parameters, fragment or trailing slash map to the same key.
func URLKey(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimSuffix(strings.TrimSuffix(host, ":80"), ":443")
	path := strings.TrimRight(u.EscapedPath(), "/")

	query := u.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") {
			continue
		}
		if _, ok := trackingParams[lk]; ok {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(host)
	sb.WriteString(path)
	for i, k := range keys {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		values := query[k]
		sort.Strings(values)
		for j, v := range values {
			if j > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}
