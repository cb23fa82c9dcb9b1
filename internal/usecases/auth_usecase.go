package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"viloai/internal/entities"
	"viloai/internal/interfaces"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	tokenTTL = 24 * time.Hour
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthUsecase struct {
	users        interfaces.UserStore
	jwtSecret    []byte
	defaultLimit int
}

func NewAuthUsecase(users interfaces.UserStore, secret string, defaultMonthlyLimit int) *AuthUsecase {
	return &AuthUsecase{
		users:        users,
		jwtSecret:    []byte(secret),
		defaultLimit: defaultMonthlyLimit,
	}
}

func (uc *AuthUsecase) Register(ctx context.Context, username, password string) (*entities.User, error) {
	_, err := uc.users.GetByUsername(ctx, username)
	if err == nil {
		return nil, fmt.Errorf("%w: username", entities.ErrDuplicate)
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         RoleUser,
		IsActive:     true,
		MonthlyLimit: uc.defaultLimit,
	}
	if err := uc.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *AuthUsecase) Login(ctx context.Context, username, password string) (string, error) {
	user, err := uc.users.GetByUsername(ctx, username)
	if errors.Is(err, entities.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !user.IsActive {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// EnsureAdmin creates the admin account on first start.
func (uc *AuthUsecase) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := uc.users.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return uc.users.CreateUser(ctx, &entities.User{
		Username:     username,
		PasswordHash: string(hashed),
		Role:         RoleAdmin,
		IsActive:     true,
	})
}

// Admin operations

func (uc *AuthUsecase) ListUsers(ctx context.Context) ([]entities.User, error) {
	return uc.users.ListUsers(ctx)
}

// SetMonthlyLimit changes a business's plan limit. 0 means unlimited.
func (uc *AuthUsecase) SetMonthlyLimit(ctx context.Context, userID int, limit int) error {
	if limit < 0 {
		return fmt.Errorf("%w: monthly limit must not be negative", entities.ErrInvalidInput)
	}
	return uc.users.UpdateLimit(ctx, userID, limit)
}

func (uc *AuthUsecase) SetActive(ctx context.Context, userID int, active bool) error {
	return uc.users.SetActive(ctx, userID, active)
}
