package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/LovationAdmin/family-budget-api/events"
	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/store"
	"github.com/LovationAdmin/family-budget-api/utils"
)

type FamilyService struct {
	users    store.UserStore
	families store.FamilyStore
	notifier MemberNotifier
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewFamilyService(users store.UserStore, families store.FamilyStore, notifier MemberNotifier,
	pub events.Publisher, logger *slog.Logger) *FamilyService {
	return &FamilyService{
		users:    users,
		families: families,
		notifier: notifier,
		events:   pub,
		logger:   utils.Component(logger, "family"),
		now:      time.Now,
	}
}

func validateCap(c *decimal.Decimal) error {
	if c != nil && c.IsNegative() {
		return invalid("budget_cap", "must not be negative")
	}
	return nil
}

// Create makes the caller admin of the new family and switches them to it.
// Their roles in other families are untouched.
func (s *FamilyService) Create(ctx context.Context, userID string, req models.CreateFamilyRequest) (*models.Family, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if err := validateCap(req.BudgetCap); err != nil {
		return nil, err
	}

	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	family := &models.Family{
		ID:        uuid.NewString(),
		Name:      name,
		Members:   []string{user.ID},
		Roles:     map[string]models.Role{user.ID: models.RoleAdmin},
		BudgetCap: req.BudgetCap,
		CreatedBy: user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.families.CreateFamily(ctx, family); err != nil {
		return nil, storeErr("create family", err)
	}

	user.Families = append(user.Families, family.ID)
	user.ActiveFamilyID = family.ID
	user.UpdatedAt = now
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, storeErr("update user", err)
	}

	s.logger.InfoContext(ctx, "family created", utils.FieldFamilyID, family.ID, utils.FieldUserID, user.ID)
	return family, nil
}

// load returns the family and the caller, who must be a member.
func (s *FamilyService) load(ctx context.Context, userID, familyID string) (*models.Family, *models.User, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, nil, err
	}
	family, err := s.families.GetFamily(ctx, familyID)
	if err != nil {
		return nil, nil, storeErr("load family", err)
	}
	if !family.HasMember(user.ID) {
		return nil, nil, ErrForbidden
	}
	return family, user, nil
}

func (s *FamilyService) loadAsAdmin(ctx context.Context, userID, familyID string) (*models.Family, *models.User, error) {
	family, user, err := s.load(ctx, userID, familyID)
	if err != nil {
		return nil, nil, err
	}
	if !isFamilyAdmin(user, family) {
		return nil, nil, ErrForbidden
	}
	return family, user, nil
}

func (s *FamilyService) Get(ctx context.Context, userID, familyID string) (*models.FamilyDetail, error) {
	family, user, err := s.load(ctx, userID, familyID)
	if err != nil {
		return nil, err
	}

	users, err := s.users.ListUsers(ctx, family.Members)
	if err != nil {
		return nil, storeErr("list members", err)
	}
	members := make([]models.FamilyMember, 0, len(users))
	for _, u := range users {
		members = append(members, models.FamilyMember{UserID: u.ID, Name: u.Name, Email: u.Email, Role: family.RoleOf(u.ID)})
	}

	return &models.FamilyDetail{
		Family:  *family,
		Members: members,
		IsAdmin: isFamilyAdmin(user, family),
	}, nil
}

func (s *FamilyService) List(ctx context.Context, userID string) ([]models.Family, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if len(user.Families) == 0 {
		return []models.Family{}, nil
	}
	families, err := s.families.ListFamilies(ctx, user.Families)
	if err != nil {
		return nil, storeErr("list families", err)
	}
	return families, nil
}

func (s *FamilyService) Update(ctx context.Context, userID, familyID string, req models.UpdateFamilyRequest) (*models.Family, error) {
	family, _, err := s.loadAsAdmin(ctx, userID, familyID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		family.Name = name
	}
	switch {
	case req.ClearCap:
		family.BudgetCap = nil
	case req.BudgetCap != nil:
		if err := validateCap(req.BudgetCap); err != nil {
			return nil, err
		}
		family.BudgetCap = req.BudgetCap
	}

	family.UpdatedAt = s.now().UTC()
	if err := s.families.UpdateFamily(ctx, family); err != nil {
		return nil, storeErr("update family", err)
	}
	return family, nil
}

// AddMember links an existing user by email with the requested role in this
// family, RoleMember by default.
func (s *FamilyService) AddMember(ctx context.Context, userID, familyID string, req models.AddMemberRequest) (*models.FamilyDetail, error) {
	family, admin, err := s.loadAsAdmin(ctx, userID, familyID)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, invalid("role", "must be admin, member or view-only")
	}

	invitee, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, storeErr("lookup member", err)
	}
	if family.HasMember(invitee.ID) {
		return nil, ErrConflict
	}

	now := s.now().UTC()
	family.Members = append(family.Members, invitee.ID)
	family.SetRole(invitee.ID, role)
	family.UpdatedAt = now
	if err := s.families.UpdateFamily(ctx, family); err != nil {
		return nil, storeErr("update family", err)
	}

	invitee.Families = append(invitee.Families, family.ID)
	if invitee.ActiveFamilyID == "" {
		invitee.ActiveFamilyID = family.ID
	}
	invitee.UpdatedAt = now
	if err := s.users.UpdateUser(ctx, invitee); err != nil {
		return nil, storeErr("update member", err)
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyMemberAdded(ctx, invitee.Email, admin.Name, family.Name); err != nil {
			s.logger.WarnContext(ctx, "member notification failed", utils.FieldEmail, invitee.Email, utils.FieldError, err)
		}
	}
	publish(ctx, s.events, s.logger, events.Event{
		Type:     events.FamilyMemberAdded,
		FamilyID: family.ID,
		UserID:   admin.ID,
		EntityID: invitee.ID,
		At:       now,
	})

	return s.Get(ctx, userID, familyID)
}

// RemoveMember is allowed for admins and for members leaving on their own.
// A family left without members is deleted; one left without an admin hands
// the role to its longest-standing member.
func (s *FamilyService) RemoveMember(ctx context.Context, userID, familyID, memberID string) error {
	family, caller, err := s.load(ctx, userID, familyID)
	if err != nil {
		return err
	}
	if memberID != caller.ID && !isFamilyAdmin(caller, family) {
		return ErrForbidden
	}
	if !family.HasMember(memberID) {
		return ErrNotFound
	}

	member := caller
	if memberID != caller.ID {
		if member, err = loadUser(ctx, s.users, memberID); err != nil {
			return err
		}
	}

	if len(family.Members) == 1 {
		return s.delete(ctx, caller, family)
	}

	now := s.now().UTC()
	family.RemoveMember(memberID)
	family.UpdatedAt = now
	if err := s.families.UpdateFamily(ctx, family); err != nil {
		return storeErr("update family", err)
	}

	detachFamily(member, family.ID, now)
	if err := s.users.UpdateUser(ctx, member); err != nil {
		return storeErr("update member", err)
	}

	publish(ctx, s.events, s.logger, events.Event{
		Type:     events.FamilyMemberRemoved,
		FamilyID: family.ID,
		UserID:   caller.ID,
		EntityID: memberID,
		At:       now,
	})
	return nil
}

// detachFamily drops familyID from u the same way the stores do on family
// deletion.
func detachFamily(u *models.User, familyID string, now time.Time) {
	u.Families = removeString(u.Families, familyID)
	if u.ActiveFamilyID == familyID {
		u.ActiveFamilyID = ""
	}
	u.UpdatedAt = now
}

// SetMemberRole changes memberID's role in this family only.
func (s *FamilyService) SetMemberRole(ctx context.Context, userID, familyID, memberID string, role models.Role) error {
	family, _, err := s.loadAsAdmin(ctx, userID, familyID)
	if err != nil {
		return err
	}
	if !role.Valid() {
		return invalid("role", "must be admin, member or view-only")
	}
	if !family.HasMember(memberID) {
		return ErrNotFound
	}
	if role != models.RoleAdmin && family.RoleOf(memberID) == models.RoleAdmin && len(family.Admins()) == 1 {
		return invalid("role", "a family needs at least one admin")
	}

	family.SetRole(memberID, role)
	family.UpdatedAt = s.now().UTC()
	return storeErr("update family", s.families.UpdateFamily(ctx, family))
}

func (s *FamilyService) Delete(ctx context.Context, userID, familyID string) error {
	family, admin, err := s.loadAsAdmin(ctx, userID, familyID)
	if err != nil {
		return err
	}
	return s.delete(ctx, admin, family)
}

func (s *FamilyService) delete(ctx context.Context, by *models.User, family *models.Family) error {
	if err := s.families.DeleteFamily(ctx, family.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return storeErr("delete family", err)
	}

	s.logger.InfoContext(ctx, "family deleted", utils.FieldFamilyID, family.ID, utils.FieldUserID, by.ID)
	publish(ctx, s.events, s.logger, events.Event{
		Type:     events.FamilyDeleted,
		FamilyID: family.ID,
		UserID:   by.ID,
		EntityID: family.ID,
		At:       s.now().UTC(),
	})
	return nil
}
