package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LovationAdmin/family-budget-api/events"
	"github.com/LovationAdmin/family-budget-api/models"
)

func TestCreateBudgetFillsWindow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup(t, "Alice", "alice@example.com")

	b, err := env.budgets.Create(context.Background(), alice, models.CreateBudgetRequest{
		Label: " Groceries ", Kind: "WEEK", TargetAmount: dec("150"),
		StartDate: at(testNow.AddDate(0, -1, 0)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", b.Label)
	assert.Equal(t, models.PeriodWeek, b.Kind)
	assert.False(t, b.IsCustom)
	require.NotNil(t, b.StartDate)
	require.NotNil(t, b.EndDate)
	assert.Equal(t, time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC), *b.StartDate)
	assert.Equal(t, testNow, *b.EndDate)

	stored, err := env.store.GetBudget(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.StartDate, "non-custom dates are computed, not stored")
	assert.Nil(t, stored.EndDate)
	assert.Equal(t, []events.Type{events.BudgetCreated}, env.events.types())
}

func TestCreateCustomBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")

	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC)
	b, err := env.budgets.Create(ctx, alice, models.CreateBudgetRequest{
		Label: "Holidays", Kind: models.PeriodCustom, TargetAmount: dec("800"), StartDate: &from, EndDate: &to,
	})
	require.NoError(t, err)
	assert.True(t, b.IsCustom)
	assert.Equal(t, from, *b.StartDate)
	assert.Equal(t, to, *b.EndDate)

	_, err = env.budgets.Create(ctx, alice, models.CreateBudgetRequest{Label: "No end", Kind: models.PeriodCustom, StartDate: &from})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.budgets.Create(ctx, alice, models.CreateBudgetRequest{Label: "Backwards", Kind: models.PeriodCustom, StartDate: &to, EndDate: &from})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateBudgetValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")

	tests := []struct {
		name string
		req  models.CreateBudgetRequest
		want error
	}{
		{"empty label", models.CreateBudgetRequest{Label: " ", Kind: models.PeriodMonth}, ErrInvalidInput},
		{"unknown kind", models.CreateBudgetRequest{Label: "X", Kind: "fortnight"}, ErrInvalidInput},
		{"negative target", models.CreateBudgetRequest{Label: "X", Kind: models.PeriodMonth, TargetAmount: dec("-1")}, ErrInvalidInput},
		{"foreign family", models.CreateBudgetRequest{Label: "X", Kind: models.PeriodMonth, FamilyID: "other"}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.budgets.Create(ctx, alice, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBudgetVisibilityAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")
	bob := env.signup(t, "Bob", "bob@example.com")
	carol := env.signup(t, "Carol", "carol@example.com")
	fid := env.family(t, alice, "Martin", "bob@example.com")

	shared, err := env.budgets.Create(ctx, alice, models.CreateBudgetRequest{Label: "Food", Kind: models.PeriodMonth, FamilyID: fid})
	require.NoError(t, err)
	personal, err := env.budgets.Create(ctx, alice, models.CreateBudgetRequest{Label: "Me", Kind: models.PeriodMonth})
	require.NoError(t, err)

	_, err = env.budgets.Get(ctx, bob, shared.ID)
	assert.NoError(t, err)
	_, err = env.budgets.Get(ctx, bob, personal.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.budgets.Get(ctx, carol, shared.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	label := "Hijacked"
	_, err = env.budgets.Update(ctx, bob, shared.ID, models.UpdateBudgetRequest{Label: &label})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, env.budgets.Delete(ctx, bob, shared.ID), ErrForbidden)

	mine, err := env.budgets.List(ctx, alice, ScopePersonal, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, personal.ID, mine[0].ID)

	family, err := env.budgets.List(ctx, bob, ScopeFamily, "")
	require.NoError(t, err)
	require.Len(t, family, 1)
	assert.Equal(t, shared.ID, family[0].ID)
}

func TestUpdateBudgetSwitchesKind(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")
	b, err := env.budgets.Create(ctx, alice, models.CreateBudgetRequest{Label: "Food", Kind: models.PeriodMonth, TargetAmount: dec("300")})
	require.NoError(t, err)

	custom := models.PeriodCustom
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	updated, err := env.budgets.Update(ctx, alice, b.ID, models.UpdateBudgetRequest{Kind: &custom, StartDate: &from, EndDate: &to})
	require.NoError(t, err)
	assert.True(t, updated.IsCustom)
	assert.Equal(t, time.Date(2024, 5, 10, 23, 59, 59, 999999999, time.UTC), *updated.EndDate, "a date-only end covers its day")

	year := models.PeriodYear
	target := dec("3600")
	updated, err = env.budgets.Update(ctx, alice, b.ID, models.UpdateBudgetRequest{Kind: &year, TargetAmount: &target})
	require.NoError(t, err)
	assert.False(t, updated.IsCustom)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *updated.StartDate)

	stored, err := env.store.GetBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.StartDate)
	assert.True(t, stored.TargetAmount.Equal(target))
}

func TestDeleteBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")
	b, err := env.budgets.Create(ctx, alice, models.CreateBudgetRequest{Label: "Food", Kind: models.PeriodMonth})
	require.NoError(t, err)

	require.NoError(t, env.budgets.Delete(ctx, alice, b.ID))
	_, err = env.budgets.Get(ctx, alice, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, env.events.types(), events.BudgetDeleted)
}

func TestBudgetSummaryPersonalThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")
	fid := env.family(t, alice, "Martin")

	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("120"), Type: models.TransactionExpense, Category: "food", Timestamp: at(testNow.Add(-24 * time.Hour))})
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("60"), Type: models.TransactionExpense, Category: "transport", Timestamp: at(testNow.Add(-48 * time.Hour))})
	// Outside the week.
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("500"), Type: models.TransactionExpense, Category: "food", Timestamp: at(testNow.AddDate(0, 0, -10))})
	// Family transactions stay out of personal threads.
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("70"), Type: models.TransactionExpense, Category: "food", FamilyID: fid, Timestamp: at(testNow)})

	b, err := env.budgets.Create(ctx, alice, models.CreateBudgetRequest{Label: "Week", Kind: models.PeriodWeek, TargetAmount: dec("150")})
	require.NoError(t, err)

	bs, err := env.budgets.Summary(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, bs.Budget.ID)
	assertDecimal(t, "180", bs.Summary.TotalExpense)
	assertDecimal(t, "120", bs.Summary.Progress)
	assert.True(t, bs.Summary.IsOverBudget)
	require.Len(t, bs.Summary.CategoryBreakdown, 2)
	assert.Equal(t, "food", bs.Summary.CategoryBreakdown[0].Category)
}

func TestBudgetSummaryFamilyCustomThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")
	bob := env.signup(t, "Bob", "bob@example.com")
	fid := env.family(t, alice, "Martin", "bob@example.com")

	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("100"), Type: models.TransactionExpense, Category: "leisure", FamilyID: fid, Timestamp: at(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))})
	env.txn(t, bob, models.CreateTransactionRequest{Amount: dec("50"), Type: models.TransactionExpense, Category: "leisure", FamilyID: fid, Timestamp: at(time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC))})
	env.txn(t, bob, models.CreateTransactionRequest{Amount: dec("999"), Type: models.TransactionExpense, Category: "leisure", FamilyID: fid, Timestamp: at(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))})
	env.txn(t, bob, models.CreateTransactionRequest{Amount: dec("25"), Type: models.TransactionExpense, Category: "leisure", Timestamp: at(time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC))})

	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC)
	b, err := env.budgets.Create(ctx, alice, models.CreateBudgetRequest{
		Label: "April outings", Kind: models.PeriodCustom, TargetAmount: dec("200"), StartDate: &from, EndDate: &to, FamilyID: fid,
	})
	require.NoError(t, err)

	bs, err := env.budgets.Summary(ctx, bob, b.ID)
	require.NoError(t, err)
	assertDecimal(t, "150", bs.Summary.TotalExpense)
	assertDecimal(t, "75", bs.Summary.Progress)
	assert.False(t, bs.Summary.IsOverBudget)
	require.Len(t, bs.Summary.CategoryBreakdown, 1)
	assert.Equal(t, 2, bs.Summary.CategoryBreakdown[0].Count)
}

func TestBudgetSummaryDateOnlyEndIncludesLastDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")

	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("40"), Type: models.TransactionExpense, Category: "food", Timestamp: at(time.Date(2024, 5, 31, 15, 0, 0, 0, time.UTC))})
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("10"), Type: models.TransactionExpense, Category: "food", Timestamp: at(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))})
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("500"), Type: models.TransactionExpense, Category: "food", Timestamp: at(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))})

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	b, err := env.budgets.Create(ctx, alice, models.CreateBudgetRequest{
		Label: "May", Kind: models.PeriodCustom, TargetAmount: dec("100"), StartDate: &from, EndDate: &to,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 31, 23, 59, 59, 999999999, time.UTC), *b.EndDate)

	bs, err := env.budgets.Summary(ctx, alice, b.ID)
	require.NoError(t, err)
	assertDecimal(t, "50", bs.Summary.TotalExpense)

	// Threads saved before the rule still cover their last day.
	stored, err := env.store.GetBudget(ctx, b.ID)
	require.NoError(t, err)
	stored.EndDate = &to
	require.NoError(t, env.store.UpdateBudget(ctx, stored))
	bs, err = env.budgets.Summary(ctx, alice, b.ID)
	require.NoError(t, err)
	assertDecimal(t, "50", bs.Summary.TotalExpense)
}

func TestBudgetSummaryZeroTarget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signup(t, "Alice", "alice@example.com")
	env.txn(t, alice, models.CreateTransactionRequest{Amount: dec("10"), Type: models.TransactionExpense, Category: "food"})

	b, err := env.budgets.Create(ctx, alice, models.CreateBudgetRequest{Label: "Tracking only", Kind: models.PeriodMonth})
	require.NoError(t, err)

	bs, err := env.budgets.Summary(ctx, alice, b.ID)
	require.NoError(t, err)
	assertDecimal(t, "10", bs.Summary.TotalExpense)
	assertDecimal(t, "0", bs.Summary.Progress)
	assert.False(t, bs.Summary.IsOverBudget)
}
