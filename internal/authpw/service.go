// Package authpw provides username/password authentication for admin accounts.
package authpw

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smlee7179/vitamin-clinic-sub002/internal/auth"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/rbac"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/store"
	"github.com/smlee7179/vitamin-clinic-sub002/internal/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	ResetTokenTTL     = time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrMissingFields      = errors.New("required fields are missing")
	ErrInvalidRole        = errors.New("role must be admin or editor")
)

// Service provides admin password authentication
type Service struct {
	store  UserStore
	logger *zap.Logger
	cost   int
}

// UserStore defines the storage interface for auth
type UserStore interface {
	GetAdminUserByUsername(ctx context.Context, username string) (store.AdminUser, error)
	GetAdminUserByEmail(ctx context.Context, email string) (store.AdminUser, error)
	GetAdminUserByID(ctx context.Context, id string) (store.AdminUser, error)
	CreateAdminUser(ctx context.Context, user store.AdminUser) error
	UpdateAdminPassword(ctx context.Context, userID, passwordHash string) error
	TouchAdminLogin(ctx context.Context, userID string) error
	CreatePasswordReset(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string) (string, error)
}

func NewService(store UserStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, cost: bcrypt.DefaultCost}
}

// HashPassword returns a bcrypt hash after checking the minimum length.
func (s *Service) HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// SignIn authenticates by username, or by email when identifier contains "@".
func (s *Service) SignIn(ctx context.Context, identifier, password string) (store.AdminUser, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return store.AdminUser{}, ErrMissingFields
	}

	user, err := s.lookup(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.AdminUser{}, ErrInvalidCredentials
		}
		return store.AdminUser{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.AdminUser{}, ErrInvalidCredentials
	}

	if err := s.store.TouchAdminLogin(ctx, user.ID); err != nil {
		s.logger.Warn("touch admin login", zap.String("user_id", user.ID), zap.Error(err))
	}
	return user, nil
}

func (s *Service) lookup(ctx context.Context, identifier string) (store.AdminUser, error) {
	if strings.Contains(identifier, "@") {
		user, err := s.store.GetAdminUserByEmail(ctx, identifier)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return user, err
		}
	}
	return s.store.GetAdminUserByUsername(ctx, identifier)
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" || next == "" {
		return ErrMissingFields
	}
	user, err := s.store.GetAdminUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := s.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.store.UpdateAdminPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// RequestPasswordReset issues a one-hour reset token for the account with
// email. An unknown email yields an empty token and no error.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, store.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", store.AdminUser{}, nil
	}
	user, err := s.store.GetAdminUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", store.AdminUser{}, nil
	}
	if err != nil {
		return "", store.AdminUser{}, err
	}

	token, err := generateToken()
	if err != nil {
		return "", store.AdminUser{}, err
	}
	if err := s.store.CreatePasswordReset(ctx, user.ID, auth.HashToken(token), time.Now().Add(ResetTokenTTL)); err != nil {
		return "", store.AdminUser{}, fmt.Errorf("create password reset: %w", err)
	}
	return token, user, nil
}

// ResetPassword consumes token and returns the id of the affected account.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if token == "" || newPassword == "" {
		return "", ErrMissingFields
	}
	if len(newPassword) < MinPasswordLength {
		return "", ErrWeakPassword
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return "", err
	}
	userID, err := s.store.ConsumePasswordReset(ctx, auth.HashToken(token), hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidResetToken
		}
		return "", fmt.Errorf("consume password reset: %w", err)
	}
	return userID, nil
}

type CreateAdminRequest struct {
	Username    string
	Email       string
	DisplayName string
	Password    string
	Role        string
}

func (s *Service) CreateAdmin(ctx context.Context, req CreateAdminRequest) (store.AdminUser, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || req.Password == "" {
		return store.AdminUser{}, ErrMissingFields
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = string(rbac.RoleEditor)
	}
	if !rbac.Valid(role) {
		return store.AdminUser{}, ErrInvalidRole
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return store.AdminUser{}, err
	}

	user := store.AdminUser{
		ID:           util.NewID("adm"),
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.CreateAdminUser(ctx, user); err != nil {
		return store.AdminUser{}, err
	}
	return user, nil
}

// generateToken creates a secure random token
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
