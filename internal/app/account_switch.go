package app

import (
	"context"

	"fintrack/internal/domain"
	"fintrack/internal/session"
)

// Account switch failure messages.
const (
	MsgNoActiveSession     = "No active session"
	MsgAccountNotFound     = "Account not found"
	MsgUserRecordNotFound  = "User record not found"
	MsgAccountNotAvailable = "Account is not available for this user"
	MsgSwitchFailed        = "Could not update session"
)

// FormError carries messages for display next to a form.
type FormError struct {
	General []string `json:"general"`
}

// SwitchResult is the outcome of UpdateSessionAccount. Exactly one of
// Success and Error is set.
type SwitchResult struct {
	Success bool       `json:"success,omitempty"`
	Error   *FormError `json:"error,omitempty"`
}

// Message returns the first failure message, or "" on success.
func (r SwitchResult) Message() string {
	if r.Error == nil || len(r.Error.General) == 0 {
		return ""
	}
	return r.Error.General[0]
}

func switchFailed(msg string) SwitchResult {
	return SwitchResult{Error: &FormError{General: []string{msg}}}
}

// UpdateSessionAccount moves the current session to targetAccountID after
// re-checking membership against a fresh user record. Only the account
// cookie changes; identity and issue time, and so the expiry, stay as they
// were. Failures leave the session untouched.
func (m *SessionManager) UpdateSessionAccount(ctx context.Context, cookies domain.CookieStore, targetAccountID string) SwitchResult {
	claim := m.GetSession(ctx, cookies)
	if claim == nil {
		return switchFailed(MsgNoActiveSession)
	}

	account, err := m.accounts.FindByID(ctx, targetAccountID)
	if err != nil {
		m.log.Warn(ctx, "account lookup failed during switch", "account", targetAccountID, "error", err)
	}
	if err != nil || account == nil {
		return switchFailed(MsgAccountNotFound)
	}

	user, err := m.users.FindByEmail(ctx, claim.UserEmail)
	if err != nil {
		m.log.Warn(ctx, "user lookup failed during switch", "error", err)
	}
	if err != nil || user == nil {
		m.log.Error(ctx, "session refers to missing user", "email", claim.UserEmail)
		return switchFailed(MsgUserRecordNotFound)
	}

	if !user.HasAccount(account.ID) {
		return switchFailed(MsgAccountNotAvailable)
	}

	cookie := domain.CookieValue{Name: session.CookieAccount, Value: account.ID, MaxAge: m.remaining(claim.IssuedAt)}
	if err := cookies.SetAll(cookie); err != nil {
		m.log.Error(ctx, "writing account cookie failed", "error", err)
		return switchFailed(MsgSwitchFailed)
	}

	m.log.Info(ctx, "session account switched", "user_id", user.ID, "from", claim.AccountID, "to", account.ID)
	return SwitchResult{Success: true}
}
