package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/personahub/persona-backend/internal/types"
)

// TokenTypeAccess is the expected token type for access tokens.
const TokenTypeAccess = "access"

// tokenTTL is how long issued access tokens stay valid.
const tokenTTL = 7 * 24 * time.Hour

// minPasswordLength is the minimum accepted password length at registration.
const minPasswordLength = 8

// Claims represents the JWT claims structure for session tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
}

// AuthUserStore is the user persistence the auth service needs.
type AuthUserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
}

// AuthService handles registration, login and JWT token handling.
type AuthService struct {
	jwtSecret []byte
	users     AuthUserStore
}

// NewAuthService creates a new AuthService with the given JWT secret.
func NewAuthService(secret string, users AuthUserStore) *AuthService {
	return &AuthService{jwtSecret: []byte(secret), users: users}
}

// Register creates a new free-tier user account.
func (a *AuthService) Register(ctx context.Context, name, email, password string) (*types.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", types.ErrValidation)
	case email == "" || !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: a valid email is required", types.ErrValidation)
	case len(password) < minPasswordLength:
		return nil, fmt.Errorf("%w: password must be at least %d characters", types.ErrValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return a.users.Create(ctx, name, email, string(hash))
}

// Login verifies credentials and returns a signed access token plus the user.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, *types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", nil, fmt.Errorf("%w: invalid credentials", types.ErrUnauthorized)
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", types.ErrUnauthorized)
	}

	token, err := a.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// IssueToken signs an access token for the user.
func (a *AuthService) IssueToken(user *types.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
		UserID:    user.ID.String(),
		Role:      string(user.Role),
		TokenType: TokenTypeAccess,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", types.ErrUnauthorized)
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("%w: access token required", types.ErrUnauthorized)
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: token missing user id", types.ErrUnauthorized)
	}
	return claims, nil
}
