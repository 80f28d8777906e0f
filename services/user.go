package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LovationAdmin/family-budget-api/events"
	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/store"
	"github.com/LovationAdmin/family-budget-api/utils"
)

type UserService struct {
	store      store.Store
	cipher     *utils.Cipher
	totpIssuer string
	events     events.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewUserService(st store.Store, cipher *utils.Cipher, totpIssuer string, pub events.Publisher, logger *slog.Logger) *UserService {
	return &UserService{
		store:      st,
		cipher:     cipher,
		totpIssuer: totpIssuer,
		events:     pub,
		logger:     utils.Component(logger, "user"),
		now:        time.Now,
	}
}

func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return loadUser(ctx, s.store, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}

	user, err := loadUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	user.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, storeErr("update user", err)
	}
	return user, nil
}

// ChangePassword also ends every session of the user.
func (s *UserService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if len(req.NewPassword) < minPasswordLength {
		return invalid("new_password", "must be at least 6 characters")
	}

	user, err := loadUser(ctx, s.store, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return storeErr("update user", err)
	}
	return storeErr("delete sessions", s.store.DeleteUserSessions(ctx, user.ID))
}

// SetupTOTP stores a fresh secret. Two-factor stays off until EnableTOTP
// confirms a code generated from it.
func (s *UserService) SetupTOTP(ctx context.Context, userID string) (*models.TOTPSetupResponse, error) {
	user, err := loadUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		return nil, ErrConflict
	}

	secret, url, err := utils.GenerateTOTPSecret(s.totpIssuer, user.Email)
	if err != nil {
		return nil, err
	}
	sealed, err := s.cipher.Encrypt(secret)
	if err != nil {
		return nil, err
	}

	user.TOTPSecret = sealed
	user.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, storeErr("update user", err)
	}
	return &models.TOTPSetupResponse{Secret: secret, QRCode: url}, nil
}

func (s *UserService) checkTOTP(user *models.User, code string) error {
	if user.TOTPSecret == "" {
		return invalid("code", "two-factor setup has not been started")
	}
	secret, err := s.cipher.Decrypt(user.TOTPSecret)
	if err != nil {
		return err
	}
	if !utils.VerifyTOTP(secret, code) {
		return invalid("code", "invalid verification code")
	}
	return nil
}

func (s *UserService) EnableTOTP(ctx context.Context, userID, code string) error {
	user, err := loadUser(ctx, s.store, userID)
	if err != nil {
		return err
	}
	if err := s.checkTOTP(user, code); err != nil {
		return err
	}

	user.TOTPEnabled = true
	user.UpdatedAt = s.now().UTC()
	s.logger.InfoContext(ctx, "two-factor enabled", utils.FieldUserID, user.ID)
	return storeErr("update user", s.store.UpdateUser(ctx, user))
}

func (s *UserService) DisableTOTP(ctx context.Context, userID string, req models.DisableTOTPRequest) error {
	user, err := loadUser(ctx, s.store, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return invalid("code", "two-factor is not enabled")
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return ErrInvalidCredentials
	}
	if err := s.checkTOTP(user, req.Code); err != nil {
		return err
	}

	user.TOTPEnabled = false
	user.TOTPSecret = ""
	user.UpdatedAt = s.now().UTC()
	s.logger.InfoContext(ctx, "two-factor disabled", utils.FieldUserID, user.ID)
	return storeErr("update user", s.store.UpdateUser(ctx, user))
}

// SetActiveFamily switches the default family. An empty id clears it.
func (s *UserService) SetActiveFamily(ctx context.Context, userID, familyID string) (*models.User, error) {
	user, err := loadUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	if familyID != "" && !user.IsMemberOf(familyID) {
		return nil, ErrForbidden
	}

	user.ActiveFamilyID = familyID
	user.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, storeErr("update user", err)
	}
	return user, nil
}

// DeleteAccount leaves every family, deleting those the user was the last
// member of, then removes the user's transactions, threads, categories and
// sessions before the user itself.
func (s *UserService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := loadUser(ctx, s.store, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return ErrInvalidCredentials
	}

	now := s.now().UTC()
	for _, familyID := range user.Families {
		family, err := s.store.GetFamily(ctx, familyID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return storeErr("load family", err)
		}

		if len(family.Members) <= 1 {
			if err := s.store.DeleteFamily(ctx, family.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return storeErr("delete family", err)
			}
			publish(ctx, s.events, s.logger, events.Event{
				Type: events.FamilyDeleted, FamilyID: family.ID, UserID: user.ID, EntityID: family.ID, At: now,
			})
			continue
		}

		family.RemoveMember(user.ID)
		family.UpdatedAt = now
		if err := s.store.UpdateFamily(ctx, family); err != nil {
			return storeErr("update family", err)
		}
		publish(ctx, s.events, s.logger, events.Event{
			Type: events.FamilyMemberRemoved, FamilyID: family.ID, UserID: user.ID, EntityID: user.ID, At: now,
		})
	}

	cleanups := []struct {
		op string
		fn func(context.Context, string) error
	}{
		{"delete transactions", s.store.DeleteUserTransactions},
		{"delete budgets", s.store.DeleteUserBudgets},
		{"delete categories", s.store.DeleteUserCategories},
		{"delete sessions", s.store.DeleteUserSessions},
		{"delete user", s.store.DeleteUser},
	}
	for _, c := range cleanups {
		if err := c.fn(ctx, user.ID); err != nil {
			return storeErr(c.op, err)
		}
	}

	s.logger.InfoContext(ctx, "account deleted", utils.FieldUserID, user.ID)
	return nil
}

// Export gathers everything stored about the user.
func (s *UserService) Export(ctx context.Context, userID string) (*models.UserExport, error) {
	user, err := loadUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}

	out := &models.UserExport{
		User:         *user,
		Families:     []models.Family{},
		Transactions: []models.Transaction{},
		Budgets:      []models.Budget{},
		Categories:   []models.Category{},
		ExportedAt:   s.now().UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(user.Families) > 0 {
		g.Go(func() error {
			families, err := s.store.ListFamilies(gctx, user.Families)
			if err == nil {
				out.Families = families
			}
			return storeErr("list families", err)
		})
	}
	g.Go(func() error {
		txns, err := s.store.ListTransactions(gctx, store.TransactionFilter{UserID: user.ID})
		if err == nil {
			out.Transactions = txns
		}
		return storeErr("list transactions", err)
	})
	g.Go(func() error {
		budgets, err := s.store.ListBudgets(gctx, store.BudgetFilter{OwnerUserID: user.ID})
		if err == nil {
			out.Budgets = budgets
		}
		return storeErr("list budgets", err)
	})
	g.Go(func() error {
		cats, err := s.store.ListCategories(gctx, user.ID, "")
		if err != nil {
			return storeErr("list categories", err)
		}
		for _, c := range cats {
			if !c.IsDefault {
				out.Categories = append(out.Categories, c)
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
