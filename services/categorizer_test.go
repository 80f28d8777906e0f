package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LovationAdmin/family-budget-api/models"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"PRLV SEPA EDF-123456", "energy"},
		{"Eni", "energy"},
		{"Free Mobile", "mobile"},
		{"FREE MOBILE FACTURE 04/24", "mobile"},
		{"Free", "internet"},
		{"CB CARREFOUR MARKET 12/05", "food"},
		{"Uber Eats", "food"},
		{"UBER TRIP HELP.UBER.COM", "transport"},
		{"VIR SALAIRE ACME", "salary"},
		{"Netflix.com", "leisure"},
		{"AXA ASSURANCE", "insurance"},
		{"freelance payment", FallbackCategory},
		{"generic store", FallbackCategory},
		{"", FallbackCategory},
		{"  --  ", FallbackCategory},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.label))
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "prlv sepa edf 123", normalizeLabel("PRLV SEPA EDF-123"))
	assert.Equal(t, "", normalizeLabel("*/*"))
}

func TestCategoriesResolveToDefaults(t *testing.T) {
	names := make(map[string]bool, len(DefaultCategories))
	for _, d := range DefaultCategories {
		names[d.name] = true
	}
	for _, r := range keywordRules {
		assert.True(t, names[r.category], "keyword %q maps to unknown category %q", r.keyword, r.category)
	}
	assert.False(t, names[FallbackCategory])
}

func TestSuggest(t *testing.T) {
	svc := &CategoryService{}

	got := svc.Suggest("SNCF INTERNET")
	assert.Equal(t, Suggestion{Category: "transport", MainCategory: models.MainEssentials}, got)

	got = svc.Suggest("unknown shop")
	assert.Equal(t, Suggestion{Category: FallbackCategory}, got)
}
