// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"

	"fintrack/internal/domain"
	"fintrack/internal/logging"
)

var (
	// ErrInvalidCredentials indicates that the provided email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates that no user matches an externally verified identity.
	ErrUserNotFound = errors.New("user not found")
)

// AuthService ties credential checks to session issuance for the login,
// single sign-on and logout flows.
type AuthService struct {
	verifier *CredentialVerifier
	sessions *SessionManager
	users    domain.UserDirectory
	accounts domain.AccountDirectory
	log      logging.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserDirectory, accounts domain.AccountDirectory, sessions *SessionManager, log logging.Logger) *AuthService {
	return &AuthService{
		verifier: NewCredentialVerifier(users, log),
		sessions: sessions,
		users:    users,
		accounts: accounts,
		log:      log,
	}
}

// Sessions exposes the session manager for request guards.
func (s *AuthService) Sessions() *SessionManager {
	return s.sessions
}

// Login verifies email and password and establishes a session. The session
// acts as accountID when the user belongs to it, otherwise as the user's
// default account.
func (s *AuthService) Login(ctx context.Context, cookies domain.CookieStore, email, password, accountID string) (*domain.SessionClaim, error) {
	user, ok := s.verifier.authenticate(ctx, email, password)
	if !ok {
		s.log.Info(ctx, "login rejected")
		return nil, ErrInvalidCredentials
	}
	return s.start(ctx, cookies, user, accountID)
}

// LoginWithEmail establishes a session for an identity already verified by
// an external provider. The user must exist in the directory.
func (s *AuthService) LoginWithEmail(ctx context.Context, cookies domain.CookieStore, email string) (*domain.SessionClaim, error) {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" {
		return nil, ErrUserNotFound
	}
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.start(ctx, cookies, user, "")
}

// Logout clears the session.
func (s *AuthService) Logout(cookies domain.CookieStore) {
	s.sessions.ClearSession(cookies)
}

// Accounts lists the accounts the claim's user may act as.
func (s *AuthService) Accounts(ctx context.Context, claim *domain.SessionClaim) ([]domain.Account, error) {
	user, err := s.users.FindByEmail(ctx, claim.UserEmail)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return s.accounts.ListByIDs(ctx, user.AccountIDs)
}

func (s *AuthService) start(ctx context.Context, cookies domain.CookieStore, user *domain.User, accountID string) (*domain.SessionClaim, error) {
	if !user.HasAccount(accountID) {
		accountID = user.DefaultAccountID()
	}
	_, issuedAt, err := s.sessions.establish(ctx, cookies, user.Email, accountID)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "login succeeded", "user_id", user.ID, "account", accountID)
	return &domain.SessionClaim{
		UserEmail: domain.NormalizeEmail(user.Email),
		AccountID: accountID,
		IssuedAt:  issuedAt,
	}, nil
}
