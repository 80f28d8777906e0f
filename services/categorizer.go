package services

import (
	"strings"
	"unicode"
)

// FallbackCategory is assigned when no keyword matches.
const FallbackCategory = "other"

type keywordRule struct {
	keyword  string
	category string
}

// keywordRules is ordered: on a word match the first rule wins, so longer
// keywords sit before the shorter ones they contain.
var keywordRules = []keywordRule{
	// energy
	{"total energie", "energy"}, {"totalenergies", "energy"}, {"edf", "energy"},
	{"engie", "energy"}, {"eni", "energy"}, {"ilek", "energy"}, {"sowee", "energy"},
	{"veolia", "energy"}, {"suez", "energy"},

	// telecom
	{"red by sfr", "mobile"}, {"free mobile", "mobile"}, {"sosh", "mobile"},
	{"orange", "internet"}, {"sfr", "internet"}, {"bouygues", "internet"},
	{"bbox", "internet"}, {"free", "internet"},

	// insurance
	{"axa", "insurance"}, {"allianz", "insurance"}, {"macif", "insurance"},
	{"maif", "insurance"}, {"matmut", "insurance"}, {"groupama", "insurance"},
	{"maaf", "insurance"}, {"alan", "insurance"},

	// bank
	{"societe generale", "bank"}, {"credit agricole", "bank"}, {"boursorama", "bank"},
	{"boursobank", "bank"}, {"revolut", "bank"}, {"n26", "bank"}, {"bnp", "bank"},
	{"lcl", "bank"},

	// leisure
	{"prime video", "leisure"}, {"basic fit", "leisure"}, {"fitness park", "leisure"},
	{"netflix", "leisure"}, {"spotify", "leisure"}, {"deezer", "leisure"},
	{"disney", "leisure"}, {"apple", "leisure"},

	// food
	{"uber eats", "food"}, {"intermarche", "food"}, {"leclerc", "food"},
	{"carrefour", "food"}, {"auchan", "food"}, {"monoprix", "food"},
	{"franprix", "food"}, {"lidl", "food"}, {"aldi", "food"},

	// transport
	{"total access", "transport"}, {"sncf", "transport"}, {"ratp", "transport"},
	{"uber", "transport"}, {"bolt", "transport"}, {"shell", "transport"},
	{"vinci", "transport"},

	// income
	{"salaire", "salary"}, {"salary", "salary"}, {"payroll", "salary"},
}

// normalizeLabel lower-cases label and collapses punctuation into single
// spaces, so "PRLV SEPA EDF-123" becomes "prlv sepa edf 123".
func normalizeLabel(label string) string {
	fields := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// Categorize maps a free-form label, such as a bank statement line, to a
// default category name. An exact keyword match beats a match on whole
// words inside the label.
func Categorize(label string) string {
	normalized := normalizeLabel(label)
	if normalized == "" {
		return FallbackCategory
	}

	for _, r := range keywordRules {
		if normalized == r.keyword {
			return r.category
		}
	}
	padded := " " + normalized + " "
	for _, r := range keywordRules {
		if strings.Contains(padded, " "+r.keyword+" ") {
			return r.category
		}
	}
	return FallbackCategory
}
