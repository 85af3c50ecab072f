package fingerprint

import "strings"

// Canonicalizer maps raw publisher labels onto one canonical source name.
type Canonicalizer struct {
	exact  map[string]string
	folded map[string]string
}

func NewCanonicalizer(aliases map[string]string) *Canonicalizer {
	c := &Canonicalizer{
		exact:  make(map[string]string, len(aliases)),
		folded: make(map[string]string, len(aliases)),
	}
	for raw, canonical := range aliases {
		raw = strings.TrimSpace(raw)
		c.exact[raw] = canonical
		c.folded[strings.ToLower(strings.TrimRight(raw, "/"))] = canonical
	}
	return c
}

// Canonical returns the canonical name for raw, or raw itself (trimmed) when no alias matches.
func (c *Canonicalizer) Canonical(raw string) string {
	raw = strings.TrimSpace(raw)
	if canonical, ok := c.exact[raw]; ok {
		return canonical
	}
	if canonical, ok := c.folded[strings.ToLower(strings.TrimRight(raw, "/"))]; ok {
		return canonical
	}
	return raw
}
