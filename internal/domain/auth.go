// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"slices"
	"time"
)

// User is an identity that can log in and act as one or more accounts.
// Records are owned by the storage layer; the session core only reads them.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	AccountIDs   []string
	CreatedAt    time.Time
}

// HasAccount reports whether the user may act as accountID.
func (u *User) HasAccount(accountID string) bool {
	return accountID != "" && slices.Contains(u.AccountIDs, accountID)
}

// DefaultAccountID returns the account a fresh login acts as, or "" when the
// user belongs to no account.
func (u *User) DefaultAccountID() string {
	if len(u.AccountIDs) == 0 {
		return ""
	}
	return u.AccountIDs[0]
}

// Account is a ledger a user can act as. Personal and shared accounts look
// the same to the session core.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionClaim is the identity and acting account reconstructed from the
// session cookies. AccountID is empty when no account is selected.
type SessionClaim struct {
	UserEmail string    `json:"userEmail"`
	AccountID string    `json:"accountId,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// UserDirectory looks up identities by normalized email. FindByEmail returns
// nil, nil when no user matches.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// AccountDirectory looks up accounts. FindByID returns nil, nil when the
// account does not exist.
type AccountDirectory interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	ListByIDs(ctx context.Context, ids []string) ([]Account, error)
}
