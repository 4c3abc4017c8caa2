package app

import (
	"context"
	"errors"

	"fintrack/internal/domain"
	"fintrack/internal/logging"
	"fintrack/internal/password"
)

// CredentialResult is the outcome of a credential check. It deliberately
// carries no reason for a failure.
type CredentialResult struct {
	Valid bool
}

// CredentialVerifier checks email/password pairs against the user directory.
type CredentialVerifier struct {
	users domain.UserDirectory
	log   logging.Logger
}

// NewCredentialVerifier creates a verifier backed by users.
func NewCredentialVerifier(users domain.UserDirectory, log logging.Logger) *CredentialVerifier {
	return &CredentialVerifier{users: users, log: log}
}

// VerifyCredentials reports whether password is correct for email. Unknown
// users, empty input, directory failures and unusable hashes all yield
// Valid=false.
func (v *CredentialVerifier) VerifyCredentials(ctx context.Context, email, pass string) CredentialResult {
	_, ok := v.authenticate(ctx, email, pass)
	return CredentialResult{Valid: ok}
}

func (v *CredentialVerifier) authenticate(ctx context.Context, email, pass string) (*domain.User, bool) {
	normalized := domain.NormalizeEmail(email)
	if normalized == "" || pass == "" {
		return nil, false
	}

	user, err := v.users.FindByEmail(ctx, normalized)
	if err != nil {
		v.log.Warn(ctx, "user lookup failed during login", "error", err)
	}
	if err != nil || user == nil {
		// Spend a hash comparison anyway so unknown emails are not
		// trivially distinguishable by response time.
		password.CompareDummy(pass)
		return nil, false
	}

	if err := password.Compare(user.PasswordHash, pass); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			v.log.Warn(ctx, "stored password hash unusable", "user_id", user.ID, "error", err)
		}
		return nil, false
	}
	return user, true
}
