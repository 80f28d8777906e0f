package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LovationAdmin/family-budget-api/events"
	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/store"
	"github.com/LovationAdmin/family-budget-api/utils"
)

// testNow is a Wednesday.
var testNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type notification struct {
	to, inviter, family string
}

type fakeNotifier struct {
	sent []notification
	err  error
}

func (n *fakeNotifier) NotifyMemberAdded(_ context.Context, to, inviterName, familyName string) error {
	n.sent = append(n.sent, notification{to, inviterName, familyName})
	return n.err
}

type testEnv struct {
	store        *store.MemoryStore
	events       *recorder
	notifier     *fakeNotifier
	auth         *AuthService
	users        *UserService
	families     *FamilyService
	transactions *TransactionService
	budgets      *BudgetService
	categories   *CategoryService
	summaries    *SummaryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemoryStore()
	rec := &recorder{}
	notifier := &fakeNotifier{}
	logger := utils.NewLogger(io.Discard, utils.LoggerOptions{Level: "error"})
	cipher, err := utils.NewCipher("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	tokens := utils.NewTokenService("test-secret", "Budget Famille", 15*time.Minute)

	clock := func() time.Time { return testNow }

	env := &testEnv{
		store:        st,
		events:       rec,
		notifier:     notifier,
		auth:         NewAuthService(st, st, tokens, cipher, 7*24*time.Hour, logger),
		users:        NewUserService(st, cipher, "Budget Famille", rec, logger),
		families:     NewFamilyService(st, st, notifier, rec, logger),
		transactions: NewTransactionService(st, st, st, rec, logger),
		budgets:      NewBudgetService(st, st, st, st, rec, logger),
		categories:   NewCategoryService(st, st, st, logger),
		summaries:    NewSummaryService(st, st, st, st),
	}
	env.auth.now = clock
	env.users.now = clock
	env.families.now = clock
	env.transactions.now = clock
	env.budgets.now = clock
	env.categories.now = clock
	env.summaries.now = clock

	require.NoError(t, env.categories.EnsureDefaults(context.Background()))
	return env
}

// signup registers a user with password "secret123" and returns its id.
func (e *testEnv) signup(t *testing.T, name, email string) string {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), models.SignupRequest{Email: email, Password: "secret123", Name: name})
	require.NoError(t, err)
	return resp.User.ID
}

func (e *testEnv) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := e.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) roleIn(t *testing.T, familyID, userID string) models.Role {
	t.Helper()
	f, err := e.store.GetFamily(context.Background(), familyID)
	require.NoError(t, err)
	return f.RoleOf(userID)
}

// family creates a family owned by ownerID and adds each email as a member.
func (e *testEnv) family(t *testing.T, ownerID, name string, memberEmails ...string) string {
	t.Helper()
	ctx := context.Background()
	f, err := e.families.Create(ctx, ownerID, models.CreateFamilyRequest{Name: name})
	require.NoError(t, err)
	for _, email := range memberEmails {
		_, err := e.families.AddMember(ctx, ownerID, f.ID, models.AddMemberRequest{Email: email})
		require.NoError(t, err)
	}
	return f.ID
}

func (e *testEnv) txn(t *testing.T, userID string, req models.CreateTransactionRequest) *models.Transaction {
	t.Helper()
	created, err := e.transactions.Create(context.Background(), userID, req)
	require.NoError(t, err)
	return created
}

func at(t time.Time) *time.Time { return &t }
