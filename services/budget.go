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

// BudgetService manages budget threads.
type BudgetService struct {
	users        store.UserStore
	families     store.FamilyStore
	budgets      store.BudgetStore
	transactions store.TransactionStore
	events       events.Publisher
	logger       *slog.Logger
	now          func() time.Time
}

func NewBudgetService(users store.UserStore, families store.FamilyStore, budgets store.BudgetStore,
	transactions store.TransactionStore, pub events.Publisher, logger *slog.Logger) *BudgetService {
	return &BudgetService{
		users:        users,
		families:     families,
		budgets:      budgets,
		transactions: transactions,
		events:       pub,
		logger:       utils.Component(logger, "budget"),
		now:          time.Now,
	}
}

// normalizeWindow enforces the date rules: custom threads carry an ordered
// start and end, every other kind stores neither. A date-only end date
// covers that whole day.
func normalizeWindow(b *models.Budget) error {
	if !b.Kind.Valid() {
		return invalid("kind", "must be week, month, year or custom")
	}
	b.IsCustom = b.Kind == models.PeriodCustom
	if !b.IsCustom {
		b.StartDate, b.EndDate = nil, nil
		return nil
	}

	if b.StartDate == nil || b.EndDate == nil {
		return invalid("start_date", "custom threads need a start and an end date")
	}
	start, end := b.StartDate.UTC(), inclusiveEnd(*b.EndDate).UTC()
	if end.Before(start) {
		return invalid("end_date", "must not be before start_date")
	}
	b.StartDate, b.EndDate = &start, &end
	return nil
}

func (s *BudgetService) Create(ctx context.Context, userID string, req models.CreateBudgetRequest) (*models.Budget, error) {
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, invalid("label", "is required")
	}
	if req.TargetAmount.IsNegative() {
		return nil, invalid("target_amount", "must not be negative")
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

	now := s.now().UTC()
	b := &models.Budget{
		ID:           uuid.NewString(),
		Label:        label,
		Kind:         models.PeriodKind(strings.ToLower(string(req.Kind))),
		Description:  strings.TrimSpace(req.Description),
		TargetAmount: req.TargetAmount,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		OwnerUserID:  user.ID,
		FamilyID:     req.FamilyID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := normalizeWindow(b); err != nil {
		return nil, err
	}

	if err := s.budgets.CreateBudget(ctx, b); err != nil {
		return nil, storeErr("create budget", err)
	}

	s.emit(ctx, events.BudgetCreated, b)
	return s.withWindow(*b), nil
}

// withWindow fills the computed dates of a non-custom thread for display.
func (s *BudgetService) withWindow(b models.Budget) *models.Budget {
	if !b.IsCustom {
		now := s.now()
		start := PeriodStart(b.Kind, now)
		b.StartDate, b.EndDate = &start, &now
	}
	return &b
}

// visible loads a thread its owner or a member of its family may see.
func (s *BudgetService) visible(ctx context.Context, userID, id string) (*models.Budget, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return nil, storeErr("load budget", err)
	}
	if b.OwnerUserID != user.ID && !canReadFamily(user, b.FamilyID) {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *BudgetService) Get(ctx context.Context, userID, id string) (*models.Budget, error) {
	b, err := s.visible(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.withWindow(*b), nil
}

func (s *BudgetService) List(ctx context.Context, userID, scope, familyID string) ([]models.Budget, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	scopeFilter, familyID, err := resolveScope(user, scope, familyID)
	if err != nil {
		return nil, err
	}

	filter := store.BudgetFilter{FamilyID: familyID}
	if scopeFilter.PersonalOnly {
		filter.OwnerUserID = user.ID
	}

	budgets, err := s.budgets.ListBudgets(ctx, filter)
	if err != nil {
		return nil, storeErr("list budgets", err)
	}

	out := make([]models.Budget, 0, len(budgets))
	for _, b := range budgets {
		if scopeFilter.PersonalOnly && b.FamilyID != "" {
			continue
		}
		out = append(out, *s.withWindow(b))
	}
	return out, nil
}

func (s *BudgetService) Update(ctx context.Context, userID, id string, req models.UpdateBudgetRequest) (*models.Budget, error) {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return nil, storeErr("load budget", err)
	}
	if b.OwnerUserID != userID {
		return nil, ErrForbidden
	}

	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label == "" {
			return nil, invalid("label", "must not be empty")
		}
		b.Label = label
	}
	if req.Kind != nil {
		b.Kind = models.PeriodKind(strings.ToLower(string(*req.Kind)))
	}
	if req.Description != nil {
		b.Description = strings.TrimSpace(*req.Description)
	}
	if req.TargetAmount != nil {
		if req.TargetAmount.IsNegative() {
			return nil, invalid("target_amount", "must not be negative")
		}
		b.TargetAmount = *req.TargetAmount
	}
	if req.StartDate != nil {
		b.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		b.EndDate = req.EndDate
	}
	if err := normalizeWindow(b); err != nil {
		return nil, err
	}

	b.UpdatedAt = s.now().UTC()
	if err := s.budgets.UpdateBudget(ctx, b); err != nil {
		return nil, storeErr("update budget", err)
	}

	s.emit(ctx, events.BudgetUpdated, b)
	return s.withWindow(*b), nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id string) error {
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return storeErr("load budget", err)
	}
	if b.OwnerUserID != userID {
		return ErrForbidden
	}
	if err := s.budgets.DeleteBudget(ctx, id); err != nil {
		return storeErr("delete budget", err)
	}

	s.emit(ctx, events.BudgetDeleted, b)
	return nil
}

// Summary aggregates the transactions in the thread's scope over its window,
// scored against the thread target. Family threads cover every member's
// family transactions; personal threads cover the owner's personal ones.
func (s *BudgetService) Summary(ctx context.Context, userID, id string) (*models.BudgetSummary, error) {
	b, err := s.visible(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	start, end := ThreadWindow(*b, s.now())
	filter := store.TransactionFilter{FamilyID: b.FamilyID, From: start, To: end}
	if b.FamilyID == "" {
		filter.UserID = b.OwnerUserID
		filter.PersonalOnly = true
	}

	txns, err := s.transactions.ListTransactions(ctx, filter)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}

	summary := Aggregate(txns, AggregateOptions{
		PeriodStart:  start,
		PeriodEnd:    end,
		TargetAmount: b.TargetAmount,
	})
	return &models.BudgetSummary{Budget: *s.withWindow(*b), Summary: summary}, nil
}

func (s *BudgetService) emit(ctx context.Context, typ events.Type, b *models.Budget) {
	publish(ctx, s.events, s.logger, events.Event{
		Type:     typ,
		FamilyID: b.FamilyID,
		UserID:   b.OwnerUserID,
		EntityID: b.ID,
		At:       b.UpdatedAt,
		Payload:  b,
	})
}
