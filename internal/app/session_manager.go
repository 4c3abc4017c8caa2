package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/domain"
	"fintrack/internal/logging"
	"fintrack/internal/session"
)

// ErrUnauthenticated is returned by RequireSession when the request carries
// no valid session. The message is part of the API surface.
var ErrUnauthenticated = errors.New("Unauthenticated") //nolint:staticcheck // fixed client-facing message

// SessionConfig configures a SessionManager.
type SessionConfig struct {
	Secret string
	// MaxAge defaults to session.MaxAge.
	MaxAge time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// SessionManager issues, validates and clears stateless cookie sessions and
// switches the acting account. It keeps no per-session state.
type SessionManager struct {
	key      session.Key
	maxAge   time.Duration
	now      func() time.Time
	users    domain.UserDirectory
	accounts domain.AccountDirectory
	log      logging.Logger
}

// NewSessionManager validates cfg and builds a manager. A missing secret
// returns session.ErrMissingSecret; callers must treat that as fatal.
func NewSessionManager(cfg SessionConfig, users domain.UserDirectory, accounts domain.AccountDirectory, log logging.Logger) (*SessionManager, error) {
	key, err := session.NewKey(cfg.Secret)
	if err != nil {
		return nil, err
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = session.MaxAge
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SessionManager{
		key:      key,
		maxAge:   cfg.MaxAge,
		now:      cfg.Now,
		users:    users,
		accounts: accounts,
		log:      log,
	}, nil
}

// MaxAge returns the configured session lifetime.
func (m *SessionManager) MaxAge() time.Duration {
	return m.maxAge
}

// remaining is how long a session issued at issuedAt stays valid.
func (m *SessionManager) remaining(issuedAt time.Time) time.Duration {
	return m.maxAge - m.now().Sub(issuedAt)
}

// EstablishSession writes a fresh session for email acting as accountID.
// Callers must have verified credentials (and membership) beforehand. The
// four cookies are written as one batch; on error none of them is set.
func (m *SessionManager) EstablishSession(ctx context.Context, cookies domain.CookieStore, email, accountID string) (string, error) {
	token, _, err := m.establish(ctx, cookies, email, accountID)
	return token, err
}

func (m *SessionManager) establish(ctx context.Context, cookies domain.CookieStore, email, accountID string) (string, time.Time, error) {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" {
		return "", time.Time{}, errors.New("establish session: email is required")
	}

	issuedAt := m.now()
	token := m.key.Token(normalized, issuedAt)

	values := []domain.CookieValue{
		{Name: session.CookieEmail, Value: normalized, MaxAge: m.maxAge},
		{Name: session.CookieToken, Value: token, MaxAge: m.maxAge},
		{Name: session.CookieIssuedAt, Value: session.FormatIssuedAt(issuedAt), MaxAge: m.maxAge},
	}
	if accountID != "" {
		values = append(values, domain.CookieValue{Name: session.CookieAccount, Value: accountID, MaxAge: m.maxAge})
	}
	if err := cookies.SetAll(values...); err != nil {
		return "", time.Time{}, fmt.Errorf("establish session: %w", err)
	}
	if accountID == "" {
		cookies.Delete(session.CookieAccount)
	}

	m.log.Debug(ctx, "session established", "email", normalized, "account", accountID)
	return token, time.UnixMilli(issuedAt.UnixMilli()), nil
}

// GetSession returns the claim carried by cookies, or nil when the session is
// missing, tampered with, expired or names an unknown user. It never fails.
func (m *SessionManager) GetSession(ctx context.Context, cookies domain.CookieStore) *domain.SessionClaim {
	email, okEmail := cookies.Get(session.CookieEmail)
	token, okToken := cookies.Get(session.CookieToken)
	issuedRaw, okIssued := cookies.Get(session.CookieIssuedAt)
	if !okEmail || !okToken || !okIssued || email == "" || token == "" {
		return nil
	}

	issuedAt, ok := session.ParseIssuedAt(issuedRaw)
	if !ok {
		return nil
	}

	normalized := domain.NormalizeEmail(email)
	if !m.tokenValid(normalized, issuedAt, token) {
		return nil
	}
	if session.Expired(m.now(), issuedAt, m.maxAge) {
		return nil
	}

	user, err := m.users.FindByEmail(ctx, normalized)
	if err != nil {
		m.log.Warn(ctx, "user lookup failed during session validation", "error", err)
		return nil
	}
	if user == nil {
		return nil
	}

	accountID, _ := cookies.Get(session.CookieAccount)
	if accountID != "" && !user.HasAccount(accountID) {
		m.log.Info(ctx, "dropping account no longer available to user", "user_id", user.ID, "account", accountID)
		accountID = ""
	}

	return &domain.SessionClaim{
		UserEmail: normalized,
		AccountID: accountID,
		IssuedAt:  issuedAt,
	}
}

// RequireSession is GetSession for privileged operations: it returns
// ErrUnauthenticated instead of nil.
func (m *SessionManager) RequireSession(ctx context.Context, cookies domain.CookieStore) (*domain.SessionClaim, error) {
	claim := m.GetSession(ctx, cookies)
	if claim == nil {
		return nil, ErrUnauthenticated
	}
	return claim, nil
}

// ClearSession removes every session cookie. Safe to call at any time.
func (m *SessionManager) ClearSession(cookies domain.CookieStore) {
	cookies.Delete(session.CookieNames...)
}

func (m *SessionManager) tokenValid(email string, issuedAt time.Time, supplied string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return session.TokensMatch(m.key.Token(email, issuedAt), supplied)
}
