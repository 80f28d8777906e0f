package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Family struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Members   []string         `json:"members"`
	Roles     map[string]Role  `json:"roles"`
	BudgetCap *decimal.Decimal `json:"budget_cap,omitempty"`
	CreatedBy string           `json:"created_by"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (f *Family) HasMember(userID string) bool {
	for _, id := range f.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// RoleOf returns the member's role in this family, RoleMember when none was
// recorded, and "" for non-members.
func (f *Family) RoleOf(userID string) Role {
	if !f.HasMember(userID) {
		return ""
	}
	if r, ok := f.Roles[userID]; ok && r.Valid() {
		return r
	}
	return RoleMember
}

// SetRole records userID's role in this family.
func (f *Family) SetRole(userID string, role Role) {
	if f.Roles == nil {
		f.Roles = make(map[string]Role)
	}
	f.Roles[userID] = role
}

// RemoveMember drops userID and its role. When the last admin leaves, the
// longest-standing remaining member becomes admin.
func (f *Family) RemoveMember(userID string) {
	members := f.Members[:0:0]
	for _, id := range f.Members {
		if id != userID {
			members = append(members, id)
		}
	}
	f.Members = members
	delete(f.Roles, userID)
	if len(f.Members) > 0 && len(f.Admins()) == 0 {
		f.SetRole(f.Members[0], RoleAdmin)
	}
}

// Admins lists the members holding the admin role, in membership order.
func (f *Family) Admins() []string {
	var out []string
	for _, id := range f.Members {
		if f.RoleOf(id) == RoleAdmin {
			out = append(out, id)
		}
	}
	return out
}

// FamilyMember is a projection of a member user for family listings.
type FamilyMember struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

type FamilyDetail struct {
	Family  Family         `json:"family"`
	Members []FamilyMember `json:"members"`
	IsAdmin bool           `json:"is_admin"`
}

type CreateFamilyRequest struct {
	Name      string           `json:"name" binding:"required"`
	BudgetCap *decimal.Decimal `json:"budget_cap"`
}

type UpdateFamilyRequest struct {
	Name      *string          `json:"name"`
	BudgetCap *decimal.Decimal `json:"budget_cap"`
	ClearCap  bool             `json:"clear_budget_cap"`
}

type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  Role   `json:"role"`
}

type SetRoleRequest struct {
	Role Role `json:"role" binding:"required"`
}
