package store

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LovationAdmin/family-budget-api/models"
)

// MemoryStore keeps everything in process memory. Values are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]models.User
	sessions     map[string]models.Session
	families     map[string]models.Family
	transactions map[string]models.Transaction
	budgets      map[string]models.Budget
	categories   map[string]models.Category
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]models.User),
		sessions:     make(map[string]models.Session),
		families:     make(map[string]models.Family),
		transactions: make(map[string]models.Transaction),
		budgets:      make(map[string]models.Budget),
		categories:   make(map[string]models.Category),
	}
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

func copyUser(u models.User) models.User {
	u.Families = append([]string{}, u.Families...)
	return u
}

func copyFamily(f models.Family) models.Family {
	f.Members = append([]string{}, f.Members...)
	if f.Roles != nil {
		f.Roles = maps.Clone(f.Roles)
	}
	if f.BudgetCap != nil {
		v := *f.BudgetCap
		f.BudgetCap = &v
	}
	return f
}

func copyBudget(b models.Budget) models.Budget {
	if b.StartDate != nil {
		v := *b.StartDate
		b.StartDate = &v
	}
	if b.EndDate != nil {
		v := *b.EndDate
		b.EndDate = &v
	}
	return b
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Users

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return ErrDuplicate
	}
	s.users[u.ID] = copyUser(*u)
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyUser(u)
	return &out, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			out := copyUser(u)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	s.users[u.ID] = copyUser(*u)
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// Sessions

func (s *MemoryStore) CreateSession(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sessions {
		if existing.RefreshToken == sess.RefreshToken {
			return ErrDuplicate
		}
	}
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemoryStore) GetSessionByToken(_ context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.RefreshToken == token {
			out := sess
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) DeleteUserSessions(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteExpiredSessions(_ context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(t) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Families

func (s *MemoryStore) CreateFamily(_ context.Context, f *models.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.families[f.ID]; ok {
		return ErrDuplicate
	}
	s.families[f.ID] = copyFamily(*f)
	return nil
}

func (s *MemoryStore) GetFamily(_ context.Context, id string) (*models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.families[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyFamily(f)
	return &out, nil
}

func (s *MemoryStore) ListFamilies(_ context.Context, ids []string) ([]models.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Family, 0, len(ids))
	for _, id := range ids {
		if f, ok := s.families[id]; ok {
			out = append(out, copyFamily(f))
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateFamily(_ context.Context, f *models.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.families[f.ID]; !ok {
		return ErrNotFound
	}
	s.families[f.ID] = copyFamily(*f)
	return nil
}

func (s *MemoryStore) DeleteFamily(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.families[id]; !ok {
		return ErrNotFound
	}

	for uid, u := range s.users {
		if !u.IsMemberOf(id) {
			continue
		}
		u.Families = removeID(u.Families, id)
		if u.ActiveFamilyID == id {
			u.ActiveFamilyID = ""
		}
		s.users[uid] = u
	}
	for tid, t := range s.transactions {
		if t.FamilyID == id {
			delete(s.transactions, tid)
		}
	}
	for bid, b := range s.budgets {
		if b.FamilyID == id {
			delete(s.budgets, bid)
		}
	}
	for cid, c := range s.categories {
		if c.FamilyID == id {
			delete(s.categories, cid)
		}
	}
	delete(s.families, id)
	return nil
}

// Transactions

func (s *MemoryStore) CreateTransaction(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[t.ID]; ok {
		return ErrDuplicate
	}
	s.transactions[t.ID] = *t
	return nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) UpdateTransaction(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[t.ID]; !ok {
		return ErrNotFound
	}
	s.transactions[t.ID] = *t
	return nil
}

func (s *MemoryStore) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (f TransactionFilter) matches(t models.Transaction) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.FamilyID != "" && t.FamilyID != f.FamilyID {
		return false
	}
	if f.PersonalOnly && t.FamilyID != "" {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
		return false
	}
	if f.From != nil && t.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && t.Timestamp.After(*f.To) {
		return false
	}
	return true
}

func (s *MemoryStore) ListTransactions(_ context.Context, f TransactionFilter) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Transaction{}
	for _, t := range s.transactions {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteUserTransactions(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.transactions {
		if t.UserID == userID {
			delete(s.transactions, id)
		}
	}
	return nil
}

// Budgets

func (s *MemoryStore) CreateBudget(_ context.Context, b *models.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[b.ID]; ok {
		return ErrDuplicate
	}
	s.budgets[b.ID] = copyBudget(*b)
	return nil
}

func (s *MemoryStore) GetBudget(_ context.Context, id string) (*models.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.budgets[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyBudget(b)
	return &out, nil
}

func (s *MemoryStore) UpdateBudget(_ context.Context, b *models.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[b.ID]; !ok {
		return ErrNotFound
	}
	s.budgets[b.ID] = copyBudget(*b)
	return nil
}

func (s *MemoryStore) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[id]; !ok {
		return ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *MemoryStore) ListBudgets(_ context.Context, f BudgetFilter) ([]models.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Budget{}
	for _, b := range s.budgets {
		if f.OwnerUserID != "" && b.OwnerUserID != f.OwnerUserID {
			continue
		}
		if f.FamilyID != "" && b.FamilyID != f.FamilyID {
			continue
		}
		out = append(out, copyBudget(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteUserBudgets(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.budgets {
		if b.OwnerUserID == userID {
			delete(s.budgets, id)
		}
	}
	return nil
}

// Categories

func (s *MemoryStore) CreateCategory(_ context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[c.ID]; ok {
		return ErrDuplicate
	}
	s.categories[c.ID] = *c
	return nil
}

func (s *MemoryStore) GetCategory(_ context.Context, id string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *MemoryStore) ListCategories(_ context.Context, userID, familyID string) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Category{}
	for _, c := range s.categories {
		switch {
		case c.IsDefault,
			userID != "" && c.UserID == userID,
			familyID != "" && c.FamilyID == familyID:
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemoryStore) CountDefaultCategories(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.categories {
		if c.IsDefault {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteUserCategories(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.categories {
		if c.UserID == userID && c.FamilyID == "" {
			delete(s.categories, id)
		}
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
