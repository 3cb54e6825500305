// pkg/classify/rules.go
package classify

import (
	"strings"

	"github.com/twi-data/streamwatch-ingress/pkg/model"
)

// Rule pairs a header predicate with the role assigned on a match. Rules
// are evaluated in order; the first match wins.
type Rule struct {
	Name  string
	Role  model.Role
	Match func(header string) bool
}

// KeywordRule builds a rule that matches when the lowercased header
// contains any of the given keywords.
func KeywordRule(name string, role model.Role, keywords ...string) Rule {
	return Rule{
		Name:  name,
		Role:  role,
		Match: containsAny(keywords),
	}
}

func containsAny(keywords []string) func(string) bool {
	return func(header string) bool {
		h := model.NormalizeHeader(header)
		for _, kw := range keywords {
			if strings.Contains(h, kw) {
				return true
			}
		}
		return false
	}
}

// hasToken reports whether any whole word of the header equals one of the
// given tokens. Short analyte names like "pH" and "DO" need word matching:
// a plain substring test would claim "Phone" for pH.
func hasToken(header string, tokens ...string) bool {
	words := strings.FieldsFunc(model.NormalizeHeader(header), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, w := range words {
		for _, t := range tokens {
			if w == t {
				return true
			}
		}
	}
	return false
}

// DefaultRules returns the rule table used across the StreamWatch source
// files. Priority order is fixed: identifier, date, parameter, free text.
// The keyword sets cover the headers observed in the monitoring
// spreadsheets (site locations, BACT/HAB results, bug counts, volunteer
// and meter tracking).
func DefaultRules() []Rule {
	paramKeywords := containsAny([]string{
		"dissolved", "oxygen", "temp", "turbid",
		"nitrate", "phosphate", "chloride", "conduct",
		"coli", "mpn", "bacteria", "phyco", "chlorophyll",
		"count", "abundance", "dominance", "result", "value",
		"latitude", "longitude",
	})

	return []Rule{
		KeywordRule("identifier", model.RoleIdentifier,
			"site", "station", "location", "volunteer", "equipment", "sample id", "sampleid"),
		KeywordRule("date", model.RoleDate,
			"date", "time"),
		{
			Name: "parameter",
			Role: model.RoleParameter,
			Match: func(header string) bool {
				return paramKeywords(header) || hasToken(header, "ph", "do", "tds")
			},
		},
		KeywordRule("free_text", model.RoleFreeText,
			"note", "comment", "desc", "taxon", "genus", "species", "bug"),
	}
}
