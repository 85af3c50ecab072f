package classifier

import (
	"context"
	"regexp"
	"strings"

	"news_ingest/internal/domain"
)

type rule struct {
	category string
	pattern  *regexp.Regexp
}

type countryRule struct {
	country string
	pattern *regexp.Regexp
}

// Rules are evaluated in this order and the first match wins.
var keywordTable = []struct {
	category string
	words    []string
}{
	{"startups", []string{
		"startup", "startups", "funding", "raises", "raised", "investment", "investor", "investors",
		"venture capital", "seed round", "series a", "series b", "series c", "acquisition", "acquires",
		"founder", "founders", "unicorn", "scaleup", "scale-up",
	}},
	{"policy", []string{
		"policy", "regulation", "regulations", "regulator", "regulators", "law", "laws", "legislation",
		"act", "government", "parliament", "commission", "directive", "gdpr", "compliance", "ban", "lawmakers",
	}},
	{"research", []string{
		"research", "researchers", "paper", "study", "breakthrough", "benchmark", "university",
		"laboratory", "lab", "dataset", "peer-reviewed", "scientists",
	}},
	{"industry", []string{
		"enterprise", "enterprises", "partnership", "market", "industry", "industrial", "manufacturing",
		"revenue", "customers", "adoption", "corporate", "deal", "contract",
	}},
}

var countryTable = []struct {
	country string
	words   []string
}{
	{"France", []string{"france", "french", "paris"}},
	{"Germany", []string{"germany", "german", "berlin", "munich"}},
	{"Netherlands", []string{"netherlands", "dutch", "amsterdam"}},
	{"Spain", []string{"spain", "spanish", "madrid", "barcelona"}},
	{"Italy", []string{"italy", "italian", "milan", "rome"}},
	{"Sweden", []string{"sweden", "swedish", "stockholm"}},
	{"Finland", []string{"finland", "finnish", "helsinki"}},
	{"Denmark", []string{"denmark", "danish", "copenhagen"}},
	{"Poland", []string{"poland", "polish", "warsaw"}},
	{"Portugal", []string{"portugal", "portuguese", "lisbon"}},
	{"Belgium", []string{"belgium", "belgian", "brussels"}},
	{"Austria", []string{"austria", "austrian", "vienna"}},
	{"Ireland", []string{"ireland", "irish", "dublin"}},
	{"Estonia", []string{"estonia", "estonian", "tallinn"}},
	{"Switzerland", []string{"switzerland", "swiss", "zurich"}},
	{"United Kingdom", []string{"united kingdom", "britain", "british", "london"}},
}

var europeInTitle = compileWords([]string{"europe", "european", "eu"})

// KnownCountries lists every country the keyword table can emit, plus Europe.
func KnownCountries() []string {
	out := make([]string, 0, len(countryTable)+1)
	for _, c := range countryTable {
		out = append(out, c.country)
	}
	return append(out, "Europe")
}

// Keyword is the deterministic rule-table classifier. It never fails.
type Keyword struct {
	rules     []rule
	countries []countryRule
}

// NewKeyword keeps only the rules whose category is in the enumeration, in
// table order.
func NewKeyword(categories domain.Categories) *Keyword {
	k := &Keyword{}
	for _, entry := range keywordTable {
		if !categories.Contains(entry.category) {
			continue
		}
		k.rules = append(k.rules, rule{category: entry.category, pattern: compileWords(entry.words)})
	}
	for _, entry := range countryTable {
		k.countries = append(k.countries, countryRule{country: entry.country, pattern: compileWords(entry.words)})
	}
	return k
}

func (k *Keyword) Classify(_ context.Context, a *domain.Article) (Result, error) {
	return k.classify(a), nil
}

func (k *Keyword) classify(a *domain.Article) Result {
	text := a.Title + "\n" + a.Content

	res := Result{Category: domain.CategoryUncategorized, Strategy: StrategyKeyword}
	for _, r := range k.rules {
		if r.pattern.MatchString(text) {
			res.Category = r.category
			break
		}
	}

	for _, c := range k.countries {
		if c.pattern.MatchString(text) {
			res.Country = c.country
			return res
		}
	}
	if europeInTitle.MatchString(a.Title) {
		res.Country = "Europe"
	}
	return res
}

func compileWords(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}
