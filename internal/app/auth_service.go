// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"travelstory/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and token verification.
type AuthService struct {
	users  domain.UserRepository
	tokens *TokenManager
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, tokens *TokenManager) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
	}
}

// Session is the result of a successful registration or login.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a new account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, fullName, email, password string) (*Session, error) {
	fullName = strings.TrimSpace(fullName)
	email = normalizeEmail(email)
	if fullName == "" || email == "" || password == "" {
		return nil, invalid("all fields are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("invalid email address")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("%w: create user: %w", ErrUpstream, err)
	}
	return s.newSession(user)
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("all fields are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %w", ErrUpstream, err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidLogin
	}
	return s.newSession(user)
}

// SSOIdentity is what an identity provider asserts about the signed-in user.
type SSOIdentity struct {
	Email         string
	FullName      string
	EmailVerified bool
}

// LoginWithSSO issues a token for a user already authenticated by an identity
// provider, provisioning the account on first sight. Provisioned accounts have
// no password and cannot use Login. The provider must have verified the email,
// since it is the only link to an existing account.
func (s *AuthService) LoginWithSSO(ctx context.Context, id SSOIdentity) (*Session, error) {
	email := normalizeEmail(id.Email)
	if email == "" {
		return nil, invalid("identity provider returned no email")
	}
	if !id.EmailVerified {
		return nil, ErrUnverifiedEmail
	}
	fullName := id.FullName

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %w", ErrUpstream, err)
	}
	if user == nil {
		if strings.TrimSpace(fullName) == "" {
			fullName = email
		}
		user = &domain.User{
			ID:        uuid.NewString(),
			FullName:  strings.TrimSpace(fullName),
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			if !errors.Is(err, domain.ErrEmailTaken) {
				return nil, fmt.Errorf("%w: create user: %w", ErrUpstream, err)
			}
			// Lost a race with a concurrent first login.
			user, err = s.users.GetUserByEmail(ctx, email)
			if err != nil || user == nil {
				return nil, fmt.Errorf("%w: reload user: %v", ErrUpstream, err)
			}
		}
	}
	return s.newSession(user)
}

// GetUser returns the account for userID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %w", ErrUpstream, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Authenticate verifies a bearer token and returns the user id it carries.
func (s *AuthService) Authenticate(token string) (string, error) {
	return s.tokens.Verify(token)
}

func (s *AuthService) newSession(user *domain.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
