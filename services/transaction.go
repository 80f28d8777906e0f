package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LovationAdmin/family-budget-api/events"
	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/store"
	"github.com/LovationAdmin/family-budget-api/utils"
)

const maxListLimit = 1000

// ListTransactionsParams narrows a listing. Scope is personal or family.
type ListTransactionsParams struct {
	Scope    string
	FamilyID string
	Type     models.TransactionType
	Category string
	From     *time.Time
	To       *time.Time
	Limit    int
}

type TransactionService struct {
	users        store.UserStore
	families     store.FamilyStore
	transactions store.TransactionStore
	events       events.Publisher
	logger       *slog.Logger
	now          func() time.Time
}

func NewTransactionService(users store.UserStore, families store.FamilyStore, transactions store.TransactionStore,
	pub events.Publisher, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		users:        users,
		families:     families,
		transactions: transactions,
		events:       pub,
		logger:       utils.Component(logger, "transaction"),
		now:          time.Now,
	}
}

func (s *TransactionService) Create(ctx context.Context, userID string, req models.CreateTransactionRequest) (*models.Transaction, error) {
	if req.Amount.IsNegative() {
		return nil, invalid("amount", "must not be negative")
	}
	if !req.Type.Valid() {
		return nil, invalid("type", "must be income or expense")
	}

	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if req.FamilyID != "" {
		if err := checkFamilyWrite(ctx, s.families, user, req.FamilyID); err != nil {
			return nil, err
		}
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = Categorize(req.Note)
	}

	now := s.now().UTC()
	t := &models.Transaction{
		ID:        uuid.NewString(),
		Amount:    req.Amount,
		Type:      req.Type,
		Category:  category,
		UserID:    user.ID,
		FamilyID:  req.FamilyID,
		Note:      strings.TrimSpace(req.Note),
		Timestamp: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Timestamp != nil {
		t.Timestamp = req.Timestamp.UTC()
	}

	if err := s.transactions.CreateTransaction(ctx, t); err != nil {
		return nil, storeErr("create transaction", err)
	}

	s.emit(ctx, events.TransactionCreated, t)
	return t, nil
}

// Get returns a transaction its owner or a member of its family may see.
func (s *TransactionService) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	t, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return nil, storeErr("load transaction", err)
	}
	if t.UserID != user.ID && !canReadFamily(user, t.FamilyID) {
		return nil, ErrForbidden
	}
	return t, nil
}

// owned loads a transaction the caller owns.
func (s *TransactionService) owned(ctx context.Context, userID, id string) (*models.Transaction, error) {
	t, err := s.transactions.GetTransaction(ctx, id)
	if err != nil {
		return nil, storeErr("load transaction", err)
	}
	if t.UserID != userID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, userID, id string, req models.UpdateTransactionRequest) (*models.Transaction, error) {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, invalid("amount", "must not be negative")
		}
		t.Amount = *req.Amount
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, invalid("type", "must be income or expense")
		}
		t.Type = *req.Type
	}
	if req.Category != nil {
		t.Category = strings.TrimSpace(*req.Category)
	}
	if req.Note != nil {
		t.Note = strings.TrimSpace(*req.Note)
	}
	if req.Timestamp != nil {
		t.Timestamp = req.Timestamp.UTC()
	}
	if t.Category == "" {
		t.Category = Categorize(t.Note)
	}

	t.UpdatedAt = s.now().UTC()
	if err := s.transactions.UpdateTransaction(ctx, t); err != nil {
		return nil, storeErr("update transaction", err)
	}

	s.emit(ctx, events.TransactionUpdated, t)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.transactions.DeleteTransaction(ctx, id); err != nil {
		return storeErr("delete transaction", err)
	}

	s.emit(ctx, events.TransactionDeleted, t)
	return nil
}

func (s *TransactionService) List(ctx context.Context, userID string, p ListTransactionsParams) ([]models.Transaction, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	filter, _, err := resolveScope(user, p.Scope, p.FamilyID)
	if err != nil {
		return nil, err
	}
	if p.Type != "" {
		if !p.Type.Valid() {
			return nil, invalid("type", "must be income or expense")
		}
		filter.Type = p.Type
	}
	if p.From != nil && p.To != nil && p.To.Before(*p.From) {
		return nil, invalid("to", "must not be before from")
	}
	if p.Limit < 0 {
		return nil, invalid("limit", "must not be negative")
	}

	filter.Category = strings.TrimSpace(p.Category)
	filter.From = p.From
	filter.To = p.To
	filter.Limit = min(p.Limit, maxListLimit)

	txns, err := s.transactions.ListTransactions(ctx, filter)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	return txns, nil
}

func (s *TransactionService) emit(ctx context.Context, typ events.Type, t *models.Transaction) {
	publish(ctx, s.events, s.logger, events.Event{
		Type:     typ,
		FamilyID: t.FamilyID,
		UserID:   t.UserID,
		EntityID: t.ID,
		At:       t.UpdatedAt,
		Payload:  t,
	})
}
