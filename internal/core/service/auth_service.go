package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/dcastano/stockpos/internal/core/domain"
	"github.com/dcastano/stockpos/internal/port"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
)

// AuthService issues and verifies the bearer tokens that guard the mutating
// API surface.
type AuthService struct {
	users    port.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthService(users port.UserRepository, secret []byte, tokenTTL time.Duration) *AuthService {
	return &AuthService{users: users, secret: secret, tokenTTL: tokenTTL}
}

func (s *AuthService) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password required", domain.ErrInvalidRequest)
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.users.Create(ctx, domain.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	})
}

// Login verifies the credentials and returns a signed HS256 token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": u.Username,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses a bearer token and returns the username it was issued
// to.
func (s *AuthService) VerifyToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidCredentials
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidCredentials
	}
	return sub, nil
}

func (s *AuthService) UpdatePassword(ctx context.Context, username, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password required", domain.ErrInvalidRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, username, string(hash))
}
