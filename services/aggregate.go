package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LovationAdmin/family-budget-api/models"
)

var hundred = decimal.NewFromInt(100)

// AggregateOptions restricts and scores an aggregation. Nil bounds are open.
type AggregateOptions struct {
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	TargetAmount decimal.Decimal
}

func (o AggregateOptions) retains(ts time.Time) bool {
	if o.PeriodStart != nil && ts.Before(*o.PeriodStart) {
		return false
	}
	if o.PeriodEnd != nil && ts.After(*o.PeriodEnd) {
		return false
	}
	return true
}

// Aggregate folds txns into income, expense and net totals plus a per-category
// expense breakdown sorted by total, descending. Categories with equal totals
// keep the order in which they first appear in txns.
//
// Progress is expense as a percentage of TargetAmount and may exceed 100. With
// a zero or negative target, Progress is 0 and IsOverBudget is false.
//
// txns is not modified.
func Aggregate(txns []models.Transaction, opts AggregateOptions) models.Summary {
	summary := models.Summary{
		TotalIncome:       decimal.Zero,
		TotalExpense:      decimal.Zero,
		NetAmount:         decimal.Zero,
		Progress:          decimal.Zero,
		CategoryBreakdown: []models.CategoryTotal{},
	}

	index := make(map[string]int)
	for _, t := range txns {
		if !opts.retains(t.Timestamp) {
			continue
		}

		switch t.Type {
		case models.TransactionIncome:
			summary.TotalIncome = summary.TotalIncome.Add(t.Amount)
		case models.TransactionExpense:
			summary.TotalExpense = summary.TotalExpense.Add(t.Amount)

			i, ok := index[t.Category]
			if !ok {
				i = len(summary.CategoryBreakdown)
				index[t.Category] = i
				summary.CategoryBreakdown = append(summary.CategoryBreakdown, models.CategoryTotal{
					Category: t.Category,
					Total:    decimal.Zero,
				})
			}
			summary.CategoryBreakdown[i].Total = summary.CategoryBreakdown[i].Total.Add(t.Amount)
			summary.CategoryBreakdown[i].Count++
		}
	}

	summary.NetAmount = summary.TotalIncome.Sub(summary.TotalExpense)

	if opts.TargetAmount.IsPositive() {
		summary.Progress = summary.TotalExpense.Div(opts.TargetAmount).Mul(hundred)
		summary.IsOverBudget = summary.TotalExpense.GreaterThan(opts.TargetAmount)
	}

	sort.SliceStable(summary.CategoryBreakdown, func(i, j int) bool {
		return summary.CategoryBreakdown[i].Total.GreaterThan(summary.CategoryBreakdown[j].Total)
	})

	return summary
}
