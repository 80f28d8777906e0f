package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LovationAdmin/family-budget-api/models"
)

// BudgetRule is a target split of income across the three spending buckets.
type BudgetRule struct {
	Name        string
	Essentials  decimal.Decimal
	Commitments decimal.Decimal
	Savings     decimal.Decimal
}

func newRule(name string, essentials, commitments, savings int64) BudgetRule {
	return BudgetRule{
		Name:        name,
		Essentials:  decimal.NewFromInt(essentials),
		Commitments: decimal.NewFromInt(commitments),
		Savings:     decimal.NewFromInt(savings),
	}
}

// BudgetRules is ordered; earlier rules win ties.
var BudgetRules = []BudgetRule{
	newRule("50/30/20", 50, 30, 20),
	newRule("70/20/10", 70, 20, 10),
	newRule("40/30/30", 40, 30, 30),
}

var goodSavingsThreshold = decimal.NewFromInt(20)

// Score is the summed absolute deviation between the rule and actual.
func (r BudgetRule) Score(actual models.Allocation) decimal.Decimal {
	return r.Essentials.Sub(actual.Essentials).Abs().
		Add(r.Commitments.Sub(actual.Commitments).Abs()).
		Add(r.Savings.Sub(actual.Savings).Abs())
}

// RecommendRule picks the rule closest to actual. Callers must not call it
// when the underlying income is zero.
func RecommendRule(actual models.Allocation) models.Recommendation {
	best := BudgetRules[0]
	bestScore := best.Score(actual)

	for _, rule := range BudgetRules[1:] {
		if score := rule.Score(actual); score.LessThan(bestScore) {
			best, bestScore = rule, score
		}
	}

	return models.Recommendation{
		RuleName:      best.Name,
		Essentials:    best.Essentials,
		Commitments:   best.Commitments,
		Savings:       best.Savings,
		Score:         bestScore,
		IsGoodSavings: actual.Savings.GreaterThanOrEqual(goodSavingsThreshold),
	}
}

// AllocationFromBreakdown converts an expense breakdown into percentages of
// totalIncome per main category. Category names match case-insensitively and
// a scoped category shadows a default one with the same name. Expenses in
// unknown categories, or in categories filed under income, are left out.
func AllocationFromBreakdown(breakdown []models.CategoryTotal, categories []models.Category, totalIncome decimal.Decimal) models.Allocation {
	alloc := models.Allocation{
		Essentials:  decimal.Zero,
		Commitments: decimal.Zero,
		Savings:     decimal.Zero,
	}
	if !totalIncome.IsPositive() {
		return alloc
	}

	byName := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if existing, ok := byName[key]; ok && !existing.IsDefault {
			continue
		}
		byName[key] = c
	}

	for _, item := range breakdown {
		c, ok := byName[strings.ToLower(strings.TrimSpace(item.Category))]
		if !ok {
			continue
		}
		switch c.MainCategory {
		case models.MainEssentials:
			alloc.Essentials = alloc.Essentials.Add(item.Total)
		case models.MainCommitments:
			alloc.Commitments = alloc.Commitments.Add(item.Total)
		case models.MainSavings:
			alloc.Savings = alloc.Savings.Add(item.Total)
		}
	}

	alloc.Essentials = alloc.Essentials.Div(totalIncome).Mul(hundred)
	alloc.Commitments = alloc.Commitments.Div(totalIncome).Mul(hundred)
	alloc.Savings = alloc.Savings.Div(totalIncome).Mul(hundred)
	return alloc
}
