package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/LovationAdmin/family-budget-api/events"
	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/store"
	"github.com/LovationAdmin/family-budget-api/utils"
)

// Scopes select whose data a listing or dashboard covers.
const (
	ScopePersonal = "personal"
	ScopeFamily   = "family"
)

func normalizeScope(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), ScopeFamily) {
		return ScopeFamily
	}
	return ScopePersonal
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func loadUser(ctx context.Context, users store.UserStore, id string) (*models.User, error) {
	u, err := users.GetUser(ctx, id)
	if err != nil {
		return nil, storeErr("load user", err)
	}
	return u, nil
}

// canReadFamily reports whether u may see data scoped to familyID.
func canReadFamily(u *models.User, familyID string) bool {
	return familyID != "" && u.IsMemberOf(familyID)
}

// canWriteFamily additionally requires a role in f that is not view-only.
func canWriteFamily(u *models.User, f *models.Family) bool {
	return canReadFamily(u, f.ID) && f.RoleOf(u.ID).CanWrite()
}

func isFamilyAdmin(u *models.User, f *models.Family) bool {
	return canReadFamily(u, f.ID) && f.RoleOf(u.ID) == models.RoleAdmin
}

// checkFamilyWrite returns ErrForbidden unless u may change data scoped to
// familyID.
func checkFamilyWrite(ctx context.Context, families store.FamilyStore, u *models.User, familyID string) error {
	if !canReadFamily(u, familyID) {
		return ErrForbidden
	}
	f, err := families.GetFamily(ctx, familyID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return storeErr("load family", err)
	}
	if !canWriteFamily(u, f) {
		return ErrForbidden
	}
	return nil
}

// resolveScope builds the transaction filter for a personal or family view.
// An empty familyID in family scope falls back to the active family.
func resolveScope(u *models.User, scope, familyID string) (store.TransactionFilter, string, error) {
	if normalizeScope(scope) == ScopePersonal {
		return store.TransactionFilter{UserID: u.ID, PersonalOnly: true}, "", nil
	}

	if familyID == "" {
		familyID = u.ActiveFamilyID
	}
	if familyID == "" {
		return store.TransactionFilter{}, "", invalid("family_id", "no family selected")
	}
	if !canReadFamily(u, familyID) {
		return store.TransactionFilter{}, "", ErrForbidden
	}
	return store.TransactionFilter{FamilyID: familyID}, familyID, nil
}

func removeString(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// publish never fails the caller; broker and websocket outages are logged.
func publish(ctx context.Context, pub events.Publisher, logger *slog.Logger, e events.Event) {
	if pub == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if err := pub.Publish(ctx, e); err != nil {
		logger.WarnContext(ctx, "event publish failed",
			"type", e.Type,
			utils.FieldFamilyID, e.FamilyID,
			utils.FieldError, err)
	}
}
