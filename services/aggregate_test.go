package services

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LovationAdmin/family-budget-api/models"
)

var baseTime = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func income(amount string, at time.Time) models.Transaction {
	return models.Transaction{Amount: dec(amount), Type: models.TransactionIncome, Category: "salary", Timestamp: at}
}

func expense(amount, category string, at time.Time) models.Transaction {
	return models.Transaction{Amount: dec(amount), Type: models.TransactionExpense, Category: category, Timestamp: at}
}

func scenarioTransactions() []models.Transaction {
	return []models.Transaction{
		income("1000", baseTime),
		expense("400", "food", baseTime.Add(time.Hour)),
		expense("200", "transport", baseTime.Add(2*time.Hour)),
	}
}

func TestAggregateScenarioNoTarget(t *testing.T) {
	s := Aggregate(scenarioTransactions(), AggregateOptions{})

	assertDecimal(t, "1000", s.TotalIncome)
	assertDecimal(t, "600", s.TotalExpense)
	assertDecimal(t, "400", s.NetAmount)
	assertDecimal(t, "0", s.Progress)
	assert.False(t, s.IsOverBudget)

	require.Len(t, s.CategoryBreakdown, 2)
	assert.Equal(t, "food", s.CategoryBreakdown[0].Category)
	assertDecimal(t, "400", s.CategoryBreakdown[0].Total)
	assert.Equal(t, 1, s.CategoryBreakdown[0].Count)
	assert.Equal(t, "transport", s.CategoryBreakdown[1].Category)
	assertDecimal(t, "200", s.CategoryBreakdown[1].Total)
	assert.Equal(t, 1, s.CategoryBreakdown[1].Count)
}

func TestAggregateScenarioOverTarget(t *testing.T) {
	s := Aggregate(scenarioTransactions(), AggregateOptions{TargetAmount: dec("500")})

	assertDecimal(t, "120", s.Progress)
	assert.True(t, s.IsOverBudget)
}

func TestAggregateEmpty(t *testing.T) {
	for _, target := range []string{"0", "500", "-10"} {
		s := Aggregate(nil, AggregateOptions{TargetAmount: dec(target)})

		assertDecimal(t, "0", s.TotalIncome)
		assertDecimal(t, "0", s.TotalExpense)
		assertDecimal(t, "0", s.NetAmount)
		assertDecimal(t, "0", s.Progress)
		assert.False(t, s.IsOverBudget)
		assert.NotNil(t, s.CategoryBreakdown)
		assert.Empty(t, s.CategoryBreakdown)
	}
}

func TestAggregateExpenseEqualToTargetIsNotOver(t *testing.T) {
	s := Aggregate(scenarioTransactions(), AggregateOptions{TargetAmount: dec("600")})

	assertDecimal(t, "100", s.Progress)
	assert.False(t, s.IsOverBudget)
}

func TestAggregateZeroTargetSafety(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		txns := randomTransactions(rng, 1+rng.IntN(20))
		s := Aggregate(txns, AggregateOptions{TargetAmount: decimal.Zero})

		assert.False(t, s.IsOverBudget)
		assertDecimal(t, "0", s.Progress)
	}
}

func TestAggregateGroupsAndSortsBreakdown(t *testing.T) {
	txns := []models.Transaction{
		expense("10", "leisure", baseTime),
		expense("30", "food", baseTime),
		expense("25.50", "housing", baseTime),
		expense("20", "food", baseTime),
		expense("10", "mobile", baseTime),
		income("75", baseTime),
	}

	s := Aggregate(txns, AggregateOptions{})

	require.Len(t, s.CategoryBreakdown, 4)
	got := make([]string, len(s.CategoryBreakdown))
	for i, c := range s.CategoryBreakdown {
		got[i] = c.Category
	}
	// leisure and mobile tie at 10 and keep their first-seen order.
	assert.Equal(t, []string{"food", "housing", "leisure", "mobile"}, got)
	assertDecimal(t, "50", s.CategoryBreakdown[0].Total)
	assert.Equal(t, 2, s.CategoryBreakdown[0].Count)
	assertDecimal(t, "95.5", s.TotalExpense)
	assertDecimal(t, "-20.5", s.NetAmount)
}

func TestAggregateExactDecimalSums(t *testing.T) {
	txns := make([]models.Transaction, 0, 10)
	for i := 0; i < 10; i++ {
		txns = append(txns, expense("0.1", "food", baseTime))
	}

	s := Aggregate(txns, AggregateOptions{})
	assertDecimal(t, "1", s.TotalExpense)
}

func TestAggregatePeriodFilter(t *testing.T) {
	txns := []models.Transaction{
		expense("100", "food", baseTime.Add(-24*time.Hour)),
		expense("50", "food", baseTime),
		expense("25", "food", baseTime.Add(48*time.Hour)),
	}

	start := baseTime
	s := Aggregate(txns, AggregateOptions{PeriodStart: &start})
	// Lower bound is inclusive.
	assertDecimal(t, "75", s.TotalExpense)

	end := baseTime.Add(24 * time.Hour)
	s = Aggregate(txns, AggregateOptions{PeriodStart: &start, PeriodEnd: &end})
	assertDecimal(t, "50", s.TotalExpense)
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	txns := []models.Transaction{
		expense("5", "leisure", baseTime),
		expense("50", "food", baseTime),
	}
	before := append([]models.Transaction(nil), txns...)

	Aggregate(txns, AggregateOptions{TargetAmount: dec("10")})

	assert.Equal(t, before, txns)
}

func TestAggregateIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	txns := randomTransactions(rng, 40)
	target := dec("1234.56")

	first := Aggregate(txns, AggregateOptions{TargetAmount: target})
	second := Aggregate(txns, AggregateOptions{TargetAmount: target})

	assert.Equal(t, first, second)
}

func TestAggregateAdditivity(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 100; i++ {
		txns := randomTransactions(rng, rng.IntN(30))

		var a, b []models.Transaction
		for _, txn := range txns {
			if rng.IntN(2) == 0 {
				a = append(a, txn)
			} else {
				b = append(b, txn)
			}
		}

		whole := Aggregate(txns, AggregateOptions{})
		left := Aggregate(a, AggregateOptions{})
		right := Aggregate(b, AggregateOptions{})

		assert.True(t, whole.TotalIncome.Equal(left.TotalIncome.Add(right.TotalIncome)))
		assert.True(t, whole.TotalExpense.Equal(left.TotalExpense.Add(right.TotalExpense)))
	}
}

func TestAggregatePeriodMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	for i := 0; i < 100; i++ {
		txns := randomTransactions(rng, 1+rng.IntN(30))

		early := baseTime.Add(time.Duration(rng.IntN(30*24)) * time.Hour)
		late := early.Add(time.Duration(1+rng.IntN(10*24)) * time.Hour)

		wide := Aggregate(txns, AggregateOptions{PeriodStart: &early})
		narrow := Aggregate(txns, AggregateOptions{PeriodStart: &late})

		assert.True(t, wide.TotalExpense.GreaterThanOrEqual(narrow.TotalExpense),
			"expense from %s (%s) must cover expense from %s (%s)", early, wide.TotalExpense, late, narrow.TotalExpense)
		assert.True(t, wide.TotalIncome.GreaterThanOrEqual(narrow.TotalIncome))
	}
}

var randomCategories = []string{"food", "housing", "transport", "leisure", "savings"}

// randomTransactions spreads n non-negative transactions over 40 days from baseTime.
func randomTransactions(rng *rand.Rand, n int) []models.Transaction {
	txns := make([]models.Transaction, 0, n)
	for i := 0; i < n; i++ {
		amount := decimal.New(rng.Int64N(100000), -2)
		at := baseTime.Add(time.Duration(rng.IntN(40*24)) * time.Hour)
		if rng.IntN(3) == 0 {
			txns = append(txns, models.Transaction{Amount: amount, Type: models.TransactionIncome, Category: "salary", Timestamp: at})
			continue
		}
		category := randomCategories[rng.IntN(len(randomCategories))]
		txns = append(txns, models.Transaction{Amount: amount, Type: models.TransactionExpense, Category: category, Timestamp: at})
	}
	return txns
}
