package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/store"
	"github.com/LovationAdmin/family-budget-api/utils"
)

type defaultCategory struct {
	name string
	main models.MainCategory
}

// DefaultCategories seeds a fresh database. Names match what Categorize
// returns.
var DefaultCategories = []defaultCategory{
	{"salary", models.MainIncome},
	{"bonus", models.MainIncome},
	{"other income", models.MainIncome},

	{"housing", models.MainEssentials},
	{"food", models.MainEssentials},
	{"transport", models.MainEssentials},
	{"energy", models.MainEssentials},
	{"health", models.MainEssentials},
	{"education", models.MainEssentials},

	{"internet", models.MainCommitments},
	{"mobile", models.MainCommitments},
	{"insurance", models.MainCommitments},
	{"bank", models.MainCommitments},
	{"leisure", models.MainCommitments},
	{"subscriptions", models.MainCommitments},

	{"savings", models.MainSavings},
	{"investments", models.MainSavings},
	{"emergency fund", models.MainSavings},
}

// Suggestion is the categorizer's answer for a label. MainCategory is empty
// when the category is not a default one.
type Suggestion struct {
	Category     string              `json:"category"`
	MainCategory models.MainCategory `json:"main_category,omitempty"`
}

type CategoryService struct {
	users      store.UserStore
	families   store.FamilyStore
	categories store.CategoryStore
	logger     *slog.Logger
	now        func() time.Time
}

func NewCategoryService(users store.UserStore, families store.FamilyStore, categories store.CategoryStore,
	logger *slog.Logger) *CategoryService {
	return &CategoryService{
		users:      users,
		families:   families,
		categories: categories,
		logger:     utils.Component(logger, "category"),
		now:        time.Now,
	}
}

// EnsureDefaults seeds the default categories once.
func (s *CategoryService) EnsureDefaults(ctx context.Context) error {
	n, err := s.categories.CountDefaultCategories(ctx)
	if err != nil {
		return storeErr("count default categories", err)
	}
	if n > 0 {
		return nil
	}

	now := s.now().UTC()
	for _, d := range DefaultCategories {
		c := &models.Category{
			ID:           uuid.NewString(),
			Name:         d.name,
			MainCategory: d.main,
			IsDefault:    true,
			CreatedAt:    now,
		}
		if err := s.categories.CreateCategory(ctx, c); err != nil {
			return storeErr("seed category", err)
		}
	}
	s.logger.InfoContext(ctx, "seeded default categories", "count", len(DefaultCategories))
	return nil
}

// List returns defaults, the caller's own categories and those of familyID,
// or of the active family when familyID is empty.
func (s *CategoryService) List(ctx context.Context, userID, familyID string) ([]models.Category, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if familyID == "" {
		familyID = user.ActiveFamilyID
	} else if !canReadFamily(user, familyID) {
		return nil, ErrForbidden
	}

	cats, err := s.categories.ListCategories(ctx, user.ID, familyID)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return cats, nil
}

// Create adds a category scoped to the family when FamilyID is set, to the
// caller otherwise.
func (s *CategoryService) Create(ctx context.Context, userID string, req models.CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if !req.MainCategory.Valid() {
		return nil, invalid("main_category", "must be income, essentials, commitments or savings")
	}

	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	c := &models.Category{
		ID:           uuid.NewString(),
		Name:         name,
		MainCategory: req.MainCategory,
		CreatedAt:    s.now().UTC(),
	}
	if req.FamilyID != "" {
		if err := checkFamilyWrite(ctx, s.families, user, req.FamilyID); err != nil {
			return nil, err
		}
		c.FamilyID = req.FamilyID
	} else {
		c.UserID = user.ID
	}

	existing, err := s.categories.ListCategories(ctx, c.UserID, c.FamilyID)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	for _, e := range existing {
		if !e.IsDefault && strings.EqualFold(e.Name, name) {
			return nil, ErrConflict
		}
	}

	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return nil, storeErr("create category", err)
	}
	return c, nil
}

// Delete removes a scoped category. Defaults cannot be deleted.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return err
	}
	c, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return storeErr("load category", err)
	}

	switch {
	case c.IsDefault:
		return ErrForbidden
	case c.FamilyID != "":
		if err := checkFamilyWrite(ctx, s.families, user, c.FamilyID); err != nil {
			return err
		}
	case c.UserID != user.ID:
		return ErrForbidden
	}

	return storeErr("delete category", s.categories.DeleteCategory(ctx, id))
}

func (s *CategoryService) Suggest(label string) Suggestion {
	name := Categorize(label)
	out := Suggestion{Category: name}
	for _, d := range DefaultCategories {
		if d.name == name {
			out.MainCategory = d.main
			break
		}
	}
	return out
}
