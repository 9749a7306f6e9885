package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"ehrledger/internal/domain"
)

// AuthService registers users and verifies credentials. The ledger core never
// sees passwords: a successful login yields a Caller (and a bearer token) and
// everything downstream consumes that.
type AuthService struct {
	users     domain.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService creates an AuthService issuing HS256 tokens with the given
// secret and lifetime.
func NewAuthService(users domain.UserRepository, jwtSecret []byte, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// Register creates a user with a bcrypt-hashed password. Duplicate user ids
// and unknown roles are rejected.
func (s *AuthService) Register(ctx context.Context, userID, password, role string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrValidation("missing required field", "user_id")
	}
	if password == "" {
		return nil, domain.ErrValidation("missing required field", "password")
	}
	r, ok := domain.ParseRole(role)
	if !ok {
		return nil, domain.ErrValidation(fmt.Sprintf("invalid role %q", role), "role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		ID:           userID,
		PasswordHash: string(hash),
		Role:         r,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and returns the caller identity plus a signed
// bearer token. Wrong user and wrong password are indistinguishable to the
// client.
func (s *AuthService) Login(ctx context.Context, userID, password string) (domain.Caller, string, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return domain.Caller{}, "", domain.ErrAccessDenied("invalid credentials")
		}
		return domain.Caller{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.Caller{}, "", domain.ErrAccessDenied("invalid credentials")
	}

	caller := domain.Caller{ID: u.ID, Role: u.Role}
	token, err := s.issueToken(caller)
	if err != nil {
		return domain.Caller{}, "", err
	}
	return caller, token, nil
}

func (s *AuthService) issueToken(c domain.Caller) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  c.ID,
		"role": string(c.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
