package models

import "time"

// Role is a member's permission level inside one family.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMember   Role = "member"
	RoleViewOnly Role = "view-only"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember || r == RoleViewOnly
}

// CanWrite reports whether the role may create or change family data.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleMember
}

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	ActiveFamilyID string    `json:"active_family_id,omitempty"`
	Families       []string  `json:"families"`
	TOTPSecret     string    `json:"-"`
	TOTPEnabled    bool      `json:"totp_enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsMemberOf reports whether familyID is in the user's family set.
func (u *User) IsMemberOf(familyID string) bool {
	for _, id := range u.Families {
		if id == familyID {
			return true
		}
	}
	return false
}

type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

type VerifyTOTPRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

type DisableTOTPRequest struct {
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

type SetActiveFamilyRequest struct {
	FamilyID string `json:"family_id"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// UserExport is the full data bundle returned by the account export.
type UserExport struct {
	User         User          `json:"user"`
	Families     []Family      `json:"families"`
	Transactions []Transaction `json:"transactions"`
	Budgets      []Budget      `json:"budgets"`
	Categories   []Category    `json:"categories"`
	ExportedAt   time.Time     `json:"exported_at"`
}
