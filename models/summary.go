package models

import "github.com/shopspring/decimal"

// Summary is the aggregation of a transaction set over an optional window.
type Summary struct {
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalExpense      decimal.Decimal `json:"total_expense"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	Progress          decimal.Decimal `json:"progress"`
	IsOverBudget      bool            `json:"is_over_budget"`
	CategoryBreakdown []CategoryTotal `json:"category_breakdown"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Allocation holds percentages of total income per main category.
type Allocation struct {
	Essentials  decimal.Decimal `json:"essentials"`
	Commitments decimal.Decimal `json:"commitments"`
	Savings     decimal.Decimal `json:"savings"`
}

type Recommendation struct {
	RuleName      string          `json:"rule_name"`
	Essentials    decimal.Decimal `json:"essentials"`
	Commitments   decimal.Decimal `json:"commitments"`
	Savings       decimal.Decimal `json:"savings"`
	Score         decimal.Decimal `json:"score"`
	IsGoodSavings bool            `json:"is_good_savings"`
}

// Dashboard is the response of the summary endpoint.
type Dashboard struct {
	Period         PeriodKind      `json:"period"`
	Scope          string          `json:"scope"`
	FamilyID       string          `json:"family_id,omitempty"`
	Summary        Summary         `json:"summary"`
	Allocation     *Allocation     `json:"allocation,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	BudgetCap      *Summary        `json:"budget_cap,omitempty"`
}
