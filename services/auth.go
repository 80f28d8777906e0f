package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LovationAdmin/family-budget-api/models"
	"github.com/LovationAdmin/family-budget-api/store"
	"github.com/LovationAdmin/family-budget-api/utils"
)

const minPasswordLength = 6

type AuthService struct {
	users      store.UserStore
	sessions   store.SessionStore
	tokens     *utils.TokenService
	cipher     *utils.Cipher
	refreshTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewAuthService(users store.UserStore, sessions store.SessionStore, tokens *utils.TokenService,
	cipher *utils.Cipher, refreshTTL time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		cipher:     cipher,
		refreshTTL: refreshTTL,
		logger:     utils.Component(logger, "auth"),
		now:        time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	switch {
	case email == "":
		return nil, invalid("email", "is required")
	case name == "":
		return nil, invalid("name", "is required")
	case len(req.Password) < minPasswordLength:
		return nil, invalid("password", "must be at least 6 characters")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr("lookup email", err)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Families:     []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, storeErr("create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", utils.FieldUserID, user.ID, utils.FieldEmail, email)
	return s.issue(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.WarnContext(ctx, "login failed", utils.FieldEmail, email)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeErr("lookup email", err)
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		s.logger.WarnContext(ctx, "login failed", utils.FieldEmail, email)
		return nil, ErrInvalidCredentials
	}

	if user.TOTPEnabled {
		if req.TOTPCode == "" {
			return nil, ErrTOTPRequired
		}
		secret, err := s.cipher.Decrypt(user.TOTPSecret)
		if err != nil {
			return nil, err
		}
		if !utils.VerifyTOTP(secret, req.TOTPCode) {
			s.logger.WarnContext(ctx, "login failed: bad totp code", utils.FieldUserID, user.ID)
			return nil, ErrInvalidCredentials
		}
	}

	s.logger.InfoContext(ctx, "user logged in", utils.FieldUserID, user.ID)
	return s.issue(ctx, user)
}

// Refresh rotates the refresh token: the presented session is consumed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	sess, err := s.sessions.GetSessionByToken(ctx, refreshToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, storeErr("load session", err)
	}

	if err := s.sessions.DeleteSession(ctx, sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr("delete session", err)
	}
	if s.now().After(sess.ExpiresAt) {
		return nil, ErrInvalidSession
	}

	user, err := s.users.GetUser(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, storeErr("load user", err)
	}
	return s.issue(ctx, user)
}

// Logout is idempotent: unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	sess, err := s.sessions.GetSessionByToken(ctx, refreshToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeErr("load session", err)
	}
	if err := s.sessions.DeleteSession(ctx, sess.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeErr("delete session", err)
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess := &models.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		RefreshToken: utils.GenerateRefreshToken(),
		ExpiresAt:    now.Add(s.refreshTTL),
		CreatedAt:    now,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return nil, storeErr("create session", err)
	}

	return &models.AuthResponse{
		User:         *user,
		AccessToken:  accessToken,
		RefreshToken: sess.RefreshToken,
	}, nil
}
