package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LovationAdmin/family-budget-api/models"
)

func TestDashboardPersonalMonth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")

	thisMonth := at(time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC))
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("3000"), Type: models.TransactionIncome, Category: "salary", Timestamp: thisMonth})
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("1500"), Type: models.TransactionExpense, Category: "housing", Timestamp: thisMonth})
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("900"), Type: models.TransactionExpense, Category: "leisure", Timestamp: thisMonth})
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("600"), Type: models.TransactionExpense, Category: "savings", Timestamp: thisMonth})
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("400"), Type: models.TransactionExpense, Category: "food", Timestamp: at(time.Date(2024, 4, 28, 0, 0, 0, 0, time.UTC))})

	dash, err := env.summaries.Dashboard(ctx, alice, "month", "", "")
	require.NoError(t, err)

	assert.Equal(t, models.PeriodMonth, dash.Period)
	assert.Equal(t, ScopePersonal, dash.Scope)
	assert.Empty(t, dash.FamilyID)
	assertDecimal(t, "3000", dash.Summary.TotalIncome)
	assertDecimal(t, "3000", dash.Summary.TotalExpense)
	assertDecimal(t, "0", dash.Summary.NetAmount)

	require.NotNil(t, dash.Allocation)
	assertDecimal(t, "50", dash.Allocation.Essentials)
	assertDecimal(t, "30", dash.Allocation.Commitments)
	assertDecimal(t, "20", dash.Allocation.Savings)

	require.NotNil(t, dash.Recommendation)
	assert.Equal(t, "50/30/20", dash.Recommendation.RuleName)
	assertDecimal(t, "0", dash.Recommendation.Score)
	assert.True(t, dash.Recommendation.IsGoodSavings)
	assert.Nil(t, dash.BudgetCap)
}

func TestDashboardWithoutIncomeHasNoRecommendation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "Alice", "alice@example.com")
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("40"), Type: models.TransactionExpense, Category: "food"})

	dash, err := env.summaries.Dashboard(context.Background(), alice, "week", ScopePersonal, "")
	require.NoError(t, err)

	assert.Equal(t, models.PeriodWeek, dash.Period)
	assertDecimal(t, "40", dash.Summary.TotalExpense)
	assert.Nil(t, dash.Allocation)
	assert.Nil(t, dash.Recommendation)
}

func TestDashboardUnknownPeriodFallsBackToMonth(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "Alice", "alice@example.com")
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("40"), Type: models.TransactionExpense, Category: "food", Timestamp: at(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))})

	dash, err := env.summaries.Dashboard(context.Background(), alice, "quarter", "", "")
	require.NoError(t, err)

	assert.Equal(t, models.PeriodMonth, dash.Period)
	assertDecimal(t, "40", dash.Summary.TotalExpense)
}

func TestDashboardFamilyScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")
	bob := env.signup(t, "Bob", "bob@example.com")
	fid := env.family(t, alice, "Martin", "bob@example.com")

	budgetCap := dec("1000")
	_, err := env.families.Update(ctx, alice, fid, models.UpdateFamilyRequest{BudgetCap: &budgetCap})
	require.NoError(t, err)

	// Family-scoped categories feed the allocation.
	_, err = env.categories.Create(ctx, alice, models.CreateCategoryRequest{Name: "Kids fund", MainCategory: models.MainSavings, FamilyID: fid})
	require.NoError(t, err)

	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("2000"), Type: models.TransactionIncome, Category: "salary", FamilyID: fid})
	env.txn(t, bob, models.CreateTransactionRequest{Amount: dec("900"), Type: models.TransactionExpense, Category: "food", FamilyID: fid})
	env.txn(t, bob, models.CreateTransactionRequest{Amount: dec("300"), Type: models.TransactionExpense, Category: "kids fund", FamilyID: fid})
	env.txn(t, bob, models.CreateTransactionRequest{Amount: dec("5000"), Type: models.TransactionExpense, Category: "leisure"})

	dash, err := env.summaries.Dashboard(ctx, bob, "year", "family", "")
	require.NoError(t, err)

	assert.Equal(t, ScopeFamily, dash.Scope)
	assert.Equal(t, fid, dash.FamilyID)
	assertDecimal(t, "2000", dash.Summary.TotalIncome)
	assertDecimal(t, "1200", dash.Summary.TotalExpense)

	require.NotNil(t, dash.Allocation)
	assertDecimal(t, "45", dash.Allocation.Essentials)
	assertDecimal(t, "0", dash.Allocation.Commitments)
	assertDecimal(t, "15", dash.Allocation.Savings)

	require.NotNil(t, dash.BudgetCap)
	assertDecimal(t, "120", dash.BudgetCap.Progress)
	assert.True(t, dash.BudgetCap.IsOverBudget)
}

func TestDashboardFamilyScopeRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")
	carol := env.signup(t, "Carol", "carol@example.com")
	fid := env.family(t, alice, "Martin")

	_, err := env.summaries.Dashboard(ctx, carol, "month", "family", fid)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.summaries.Dashboard(ctx, carol, "month", "family", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
