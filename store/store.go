// Package store persists users, families, transactions, budget threads and
// categories. Each backend implements Store; callers depend on the narrow
// per-entity interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/LovationAdmin/family-budget-api/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	// GetUserByEmail matches the lower-cased address.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, ids []string) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) error
	// DeleteExpiredSessions removes sessions that expired before t.
	DeleteExpiredSessions(ctx context.Context, t time.Time) (int64, error)
}

type FamilyStore interface {
	CreateFamily(ctx context.Context, f *models.Family) error
	GetFamily(ctx context.Context, id string) (*models.Family, error)
	ListFamilies(ctx context.Context, ids []string) ([]models.Family, error)
	UpdateFamily(ctx context.Context, f *models.Family) error
	// DeleteFamily removes the family together with its budgets, transactions
	// and scoped categories, and strips it from every member user.
	DeleteFamily(ctx context.Context, id string) error
}

// TransactionFilter selects transactions. Empty fields do not filter.
// PersonalOnly restricts to transactions with no family.
type TransactionFilter struct {
	UserID       string
	FamilyID     string
	PersonalOnly bool
	Type         models.TransactionType
	Category     string
	From         *time.Time
	To           *time.Time
	Limit        int
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	// ListTransactions returns matches newest first.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error)
	DeleteUserTransactions(ctx context.Context, userID string) error
}

type BudgetFilter struct {
	OwnerUserID string
	FamilyID    string
}

type BudgetStore interface {
	CreateBudget(ctx context.Context, b *models.Budget) error
	GetBudget(ctx context.Context, id string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, b *models.Budget) error
	DeleteBudget(ctx context.Context, id string) error
	// ListBudgets returns matches newest first.
	ListBudgets(ctx context.Context, f BudgetFilter) ([]models.Budget, error)
	DeleteUserBudgets(ctx context.Context, userID string) error
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	// ListCategories returns default categories plus those scoped to userID
	// or familyID. Empty ids match nothing.
	ListCategories(ctx context.Context, userID, familyID string) ([]models.Category, error)
	CountDefaultCategories(ctx context.Context) (int, error)
	DeleteUserCategories(ctx context.Context, userID string) error
}

type Store interface {
	UserStore
	SessionStore
	FamilyStore
	TransactionStore
	BudgetStore
	CategoryStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
