package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/store"
)

// SummaryService builds the dashboard for the current period.
type SummaryService struct {
	users        store.UserStore
	families     store.FamilyStore
	transactions store.TransactionStore
	categories   store.CategoryStore
	now          func() time.Time
}

func NewSummaryService(users store.UserStore, families store.FamilyStore,
	transactions store.TransactionStore, categories store.CategoryStore) *SummaryService {
	return &SummaryService{
		users:        users,
		families:     families,
		transactions: transactions,
		categories:   categories,
		now:          time.Now,
	}
}

// Dashboard aggregates the caller's personal or family transactions since
// the start of period. The rule recommendation is left out when there is no
// income to take percentages of. In family scope with a budget cap, BudgetCap
// carries the same totals scored against the cap.
func (s *SummaryService) Dashboard(ctx context.Context, userID, period, scope, familyID string) (*models.Dashboard, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	filter, familyID, err := resolveScope(user, scope, familyID)
	if err != nil {
		return nil, err
	}

	kind := NormalizePeriod(period)
	start := PeriodStart(kind, s.now())
	filter.From = &start

	var (
		txns   []models.Transaction
		cats   []models.Category
		family *models.Family
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txns, err = s.transactions.ListTransactions(gctx, filter)
		return storeErr("list transactions", err)
	})
	g.Go(func() error {
		var err error
		categoryOwner := user.ID
		if familyID != "" {
			categoryOwner = ""
		}
		cats, err = s.categories.ListCategories(gctx, categoryOwner, familyID)
		return storeErr("list categories", err)
	})
	if familyID != "" {
		g.Go(func() error {
			var err error
			family, err = s.families.GetFamily(gctx, familyID)
			return storeErr("load family", err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts := AggregateOptions{PeriodStart: &start}
	dash := &models.Dashboard{
		Period:   kind,
		Scope:    normalizeScope(scope),
		FamilyID: familyID,
		Summary:  Aggregate(txns, opts),
	}

	if dash.Summary.TotalIncome.IsPositive() {
		alloc := AllocationFromBreakdown(dash.Summary.CategoryBreakdown, cats, dash.Summary.TotalIncome)
		rec := RecommendRule(alloc)
		dash.Allocation = &alloc
		dash.Recommendation = &rec
	}

	if family != nil && family.BudgetCap != nil {
		opts.TargetAmount = *family.BudgetCap
		capped := Aggregate(txns, opts)
		dash.BudgetCap = &capped
	}

	return dash, nil
}
