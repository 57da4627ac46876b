package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
)

// AuthService authenticates users and issues JWT session tokens. Access
// resolution is not cached here: the middleware resolves a fresh
// AccessContext from the token's subject on every request.
type AuthService struct {
	store     *store.Store
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates an AuthService.
func NewAuthService(st *store.Store, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		store:     st,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// Login verifies the email/password pair and returns the user with a signed
// session token. Lookup misses and bad passwords are indistinguishable to
// the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", ErrAccountDisabled
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(ctx, user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}

	// Update last login timestamp (fire and forget)
	go s.store.UpdateUserLastLogin(context.Background(), user.ID) //nolint:errcheck

	return user, token, nil
}

// IssueToken creates a new signed JWT for the given user.
func (s *AuthService) IssueToken(ctx context.Context, userID, email string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			Issuer:    "orgdesk",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken verifies a bearer token and returns the subject user id.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (string, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidCredentials
	}
	return claims.Subject, nil
}

// TokenTTL returns the configured session lifetime.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// HashPassword returns the bcrypt hash of a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
