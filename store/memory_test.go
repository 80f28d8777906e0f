package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LovationAdmin/family-budget-api/models"
)

var t0 = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	budgetCap := decimal.NewFromInt(500)
	f := &models.Family{ID: "f1", Name: "Martin", Members: []string{"u1"}, BudgetCap: &budgetCap,
		Roles: map[string]models.Role{"u1": models.RoleAdmin}}
	require.NoError(t, s.CreateFamily(ctx, f))

	f.Members[0] = "mutated"
	*f.BudgetCap = decimal.NewFromInt(1)
	f.Roles["u1"] = models.RoleViewOnly

	got, err := s.GetFamily(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, got.Members)
	assert.True(t, got.BudgetCap.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, models.RoleAdmin, got.RoleOf("u1"))

	got.Members = append(got.Members, "u2")
	got.SetRole("u2", models.RoleMember)
	again, err := s.GetFamily(ctx, "f1")
	require.NoError(t, err)
	assert.Len(t, again.Members, 1)
	assert.Len(t, again.Roles, 1)
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u1", Email: "ana@example.com"}))
	assert.ErrorIs(t, s.CreateUser(ctx, &models.User{ID: "u2", Email: "ana@example.com"}), ErrDuplicate)
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u2", Email: "bob@example.com"}))

	u, err := s.GetUserByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u.Email = "bob@example.com"
	assert.ErrorIs(t, s.UpdateUser(ctx, u), ErrDuplicate)
	assert.ErrorIs(t, s.UpdateUser(ctx, &models.User{ID: "missing"}), ErrNotFound)

	users, err := s.ListUsers(ctx, []string{"u2", "missing", "u1"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[0].ID)

	require.NoError(t, s.DeleteUser(ctx, "u1"))
	_, err = s.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSessions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: "s1", UserID: "u1", RefreshToken: "a", ExpiresAt: t0.Add(-time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: "s2", UserID: "u1", RefreshToken: "b", ExpiresAt: t0.Add(time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: "s3", UserID: "u2", RefreshToken: "c", ExpiresAt: t0.Add(time.Hour)}))
	assert.ErrorIs(t, s.CreateSession(ctx, &models.Session{ID: "s4", RefreshToken: "a"}), ErrDuplicate)

	n, err := s.DeleteExpiredSessions(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetSessionByToken(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteUserSessions(ctx, "u1"))
	_, err = s.GetSessionByToken(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)

	sess, err := s.GetSessionByToken(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "s3", sess.ID)
}

func TestMemoryStoreTransactionFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	add := func(id, user, family string, typ models.TransactionType, category string, at time.Time) {
		require.NoError(t, s.CreateTransaction(ctx, &models.Transaction{
			ID: id, UserID: user, FamilyID: family, Type: typ, Category: category,
			Amount: decimal.NewFromInt(1), Timestamp: at, CreatedAt: at,
		}))
	}
	add("t1", "u1", "", models.TransactionExpense, "Food", t0.Add(-48*time.Hour))
	add("t2", "u1", "f1", models.TransactionExpense, "food", t0.Add(-24*time.Hour))
	add("t3", "u2", "f1", models.TransactionIncome, "salary", t0)
	add("t4", "u2", "", models.TransactionExpense, "leisure", t0)

	ids := func(f TransactionFilter) []string {
		txns, err := s.ListTransactions(ctx, f)
		require.NoError(t, err)
		out := []string{}
		for _, txn := range txns {
			out = append(out, txn.ID)
		}
		return out
	}

	from := t0.Add(-24 * time.Hour)
	tests := []struct {
		name   string
		filter TransactionFilter
		want   []string
	}{
		{name: "all of a user", filter: TransactionFilter{UserID: "u1"}, want: []string{"t2", "t1"}},
		{name: "personal only", filter: TransactionFilter{UserID: "u1", PersonalOnly: true}, want: []string{"t1"}},
		{name: "family", filter: TransactionFilter{FamilyID: "f1"}, want: []string{"t3", "t2"}},
		{name: "category ignores case", filter: TransactionFilter{Category: "FOOD"}, want: []string{"t2", "t1"}},
		{name: "type", filter: TransactionFilter{Type: models.TransactionIncome}, want: []string{"t3"}},
		{name: "from inclusive", filter: TransactionFilter{UserID: "u1", From: &from}, want: []string{"t2"}},
		{name: "to inclusive", filter: TransactionFilter{FamilyID: "f1", To: &from}, want: []string{"t2"}},
		{name: "limit", filter: TransactionFilter{FamilyID: "f1", Limit: 1}, want: []string{"t3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter))
		})
	}

	require.NoError(t, s.DeleteUserTransactions(ctx, "u1"))
	assert.Equal(t, []string{"t3"}, ids(TransactionFilter{FamilyID: "f1"}))
}

func TestMemoryStoreDeleteFamilyCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u1", Email: "a@example.com", Families: []string{"f1"}, ActiveFamilyID: "f1"}))
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u2", Email: "b@example.com", Families: []string{"f1", "f2"}, ActiveFamilyID: "f2"}))
	require.NoError(t, s.CreateFamily(ctx, &models.Family{ID: "f1", Members: []string{"u1", "u2"}}))
	require.NoError(t, s.CreateTransaction(ctx, &models.Transaction{ID: "t1", UserID: "u1", FamilyID: "f1"}))
	require.NoError(t, s.CreateTransaction(ctx, &models.Transaction{ID: "t2", UserID: "u1"}))
	require.NoError(t, s.CreateBudget(ctx, &models.Budget{ID: "b1", OwnerUserID: "u1", FamilyID: "f1"}))
	require.NoError(t, s.CreateCategory(ctx, &models.Category{ID: "c1", Name: "Kids", FamilyID: "f1"}))

	require.NoError(t, s.DeleteFamily(ctx, "f1"))
	assert.ErrorIs(t, s.DeleteFamily(ctx, "f1"), ErrNotFound)

	u1, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, u1.Families)
	assert.Empty(t, u1.ActiveFamilyID)

	u2, err := s.GetUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"f2"}, u2.Families)
	assert.Equal(t, "f2", u2.ActiveFamilyID)

	_, err = s.GetTransaction(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetTransaction(ctx, "t2")
	assert.NoError(t, err)
	_, err = s.GetBudget(ctx, "b1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetCategory(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCategories(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, c := range []models.Category{
		{ID: "d2", Name: "leisure", IsDefault: true},
		{ID: "d1", Name: "food", IsDefault: true},
		{ID: "u1", Name: "Pets", UserID: "ana"},
		{ID: "u2", Name: "Bikes", UserID: "bob"},
		{ID: "f1", Name: "Holidays", FamilyID: "fam"},
	} {
		require.NoError(t, s.CreateCategory(ctx, &c))
	}

	n, err := s.CountDefaultCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	names := func(userID, familyID string) []string {
		cats, err := s.ListCategories(ctx, userID, familyID)
		require.NoError(t, err)
		out := []string{}
		for _, c := range cats {
			out = append(out, c.Name)
		}
		return out
	}
	assert.Equal(t, []string{"food", "leisure"}, names("", ""))
	assert.Equal(t, []string{"food", "leisure", "Holidays", "Pets"}, names("ana", "fam"))
	assert.Equal(t, []string{"food", "leisure", "Bikes"}, names("bob", ""))

	require.NoError(t, s.DeleteUserCategories(ctx, "ana"))
	assert.Equal(t, []string{"food", "leisure", "Holidays"}, names("ana", "fam"))
}

func TestMemoryStoreBudgets(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	start := t0
	require.NoError(t, s.CreateBudget(ctx, &models.Budget{ID: "b1", OwnerUserID: "u1", CreatedAt: t0, StartDate: &start}))
	require.NoError(t, s.CreateBudget(ctx, &models.Budget{ID: "b2", OwnerUserID: "u1", FamilyID: "f1", CreatedAt: t0.Add(time.Minute)}))
	require.NoError(t, s.CreateBudget(ctx, &models.Budget{ID: "b3", OwnerUserID: "u2", FamilyID: "f1", CreatedAt: t0.Add(2 * time.Minute)}))

	start = start.Add(time.Hour)
	b, err := s.GetBudget(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, b.StartDate.Equal(t0))

	list, err := s.ListBudgets(ctx, BudgetFilter{FamilyID: "f1"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b3", list[0].ID, "newest first")

	require.NoError(t, s.DeleteUserBudgets(ctx, "u1"))
	list, err = s.ListBudgets(ctx, BudgetFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b3", list[0].ID)
}
