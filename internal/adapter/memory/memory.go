// Package memory implements in-memory adapters for development and testing:
// a fixture-backed user/account directory, a transaction store and a cookie
// jar.
package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"fintrack/internal/domain"

	"github.com/shopspring/decimal"
)

// DB implements an in-memory database storage.
type DB struct {
	mu           sync.RWMutex
	users        []*domain.User
	accounts     map[string]domain.Account
	transactions []domain.Transaction

	userIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		accounts: make(map[string]domain.Account),
	}
}

// Ensure interfaces are met.
var _ domain.UserDirectory = (*DB)(nil)
var _ domain.AccountDirectory = (*DB)(nil)
var _ domain.TransactionRepository = (*DB)(nil)

// --- UserDirectory ---

// FindByEmail retrieves a user by normalized email.
func (db *DB) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, u := range db.users {
		if u.Email == email {
			cp := *u
			cp.AccountIDs = slices.Clone(u.AccountIDs)
			return &cp, nil
		}
	}
	return nil, nil
}

// CreateUser adds a user. Emails are normalized and must be unique.
func (db *DB) CreateUser(ctx context.Context, email, passwordHash string, accountIDs ...string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	for _, u := range db.users {
		if u.Email == email {
			return nil, errors.New("user already exists")
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Email:        email,
		PasswordHash: passwordHash,
		AccountIDs:   slices.Clone(accountIDs),
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	return u, nil
}

// DeleteUser removes a user by email. Missing users are ignored.
func (db *DB) DeleteUser(ctx context.Context, email string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	email = domain.NormalizeEmail(email)
	db.users = slices.DeleteFunc(db.users, func(u *domain.User) bool { return u.Email == email })
	return nil
}

// SetMembership replaces the accounts a user may act as.
func (db *DB) SetMembership(ctx context.Context, email string, accountIDs ...string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	email = domain.NormalizeEmail(email)
	for _, u := range db.users {
		if u.Email == email {
			u.AccountIDs = slices.Clone(accountIDs)
			return nil
		}
	}
	return errors.New("user not found")
}

// --- AccountDirectory ---

// FindByID retrieves an account by id.
func (db *DB) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if a, ok := db.accounts[id]; ok {
		return &a, nil
	}
	return nil, nil
}

// ListByIDs returns the existing accounts among ids, in the order given.
func (db *DB) ListByIDs(ctx context.Context, ids []string) ([]domain.Account, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := db.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// PutAccount inserts or replaces an account.
func (db *DB) PutAccount(ctx context.Context, a domain.Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if a.ID == "" {
		return errors.New("account id is required")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	db.accounts[a.ID] = a
	return nil
}

// --- TransactionRepository ---

// AddTransaction stores a transaction.
func (db *DB) AddTransaction(ctx context.Context, tx domain.Transaction) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx.CreatedAt = tx.CreatedAt.UTC()
	db.transactions = append(db.transactions, tx)
	return nil
}

// DeleteTransaction removes a transaction by id within an account.
func (db *DB) DeleteTransaction(ctx context.Context, accountID, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.transactions = slices.DeleteFunc(db.transactions, func(t domain.Transaction) bool {
		return t.AccountID == accountID && t.ID == id
	})
	return nil
}

// ListRecentTransactions lists the newest transactions of an account.
func (db *DB) ListRecentTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]domain.Transaction, 0)
	for _, t := range db.transactions {
		if t.AccountID == accountID {
			result = append(result, t)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// NetForLocalDay sums an account's transactions on a local calendar day.
func (db *DB) NetForLocalDay(ctx context.Context, accountID, localDay string) (decimal.Decimal, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	dayStart, err := time.ParseInLocation("2006-01-02", localDay, time.Local)
	if err != nil {
		return decimal.Zero, err
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	total := decimal.Zero
	for _, t := range db.transactions {
		if t.AccountID != accountID {
			continue
		}
		if !t.CreatedAt.Before(dayStart.UTC()) && t.CreatedAt.Before(dayEnd.UTC()) {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}
