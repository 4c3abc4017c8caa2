package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/adapter/memory"
	"fintrack/internal/app"
	"fintrack/internal/domain"
	"fintrack/internal/logging"
	"fintrack/internal/password"

	"golang.org/x/crypto/bcrypt"
)

const testSecret = "S"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

// newDirectory returns a directory with a@example.com (password "secret",
// member of acc-1) and accounts acc-1 and acc-2.
func newDirectory(t *testing.T) *memory.DB {
	t.Helper()
	ctx := context.Background()
	db := memory.New()
	for _, a := range []domain.Account{{ID: "acc-1", Name: "Household"}, {ID: "acc-2", Name: "Holiday"}} {
		if err := db.PutAccount(ctx, a); err != nil {
			t.Fatalf("PutAccount: %v", err)
		}
	}
	if _, err := db.CreateUser(ctx, "a@example.com", hashPassword(t, "secret"), "acc-1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return db
}

func newManager(t *testing.T, db *memory.DB, clock *fakeClock) *app.SessionManager {
	t.Helper()
	m, err := app.NewSessionManager(app.SessionConfig{Secret: testSecret, Now: clock.Now}, db, db, logging.Nop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return m
}

// mockUsers is a UserDirectory with a replaceable lookup.
type mockUsers struct {
	findFn func(ctx context.Context, email string) (*domain.User, error)
}

func (m *mockUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.findFn != nil {
		return m.findFn(ctx, email)
	}
	return nil, errors.New("not found")
}

// mockAccounts is an AccountDirectory with replaceable lookups.
type mockAccounts struct {
	findFn func(ctx context.Context, id string) (*domain.Account, error)
	listFn func(ctx context.Context, ids []string) ([]domain.Account, error)
}

func (m *mockAccounts) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.findFn != nil {
		return m.findFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAccounts) ListByIDs(ctx context.Context, ids []string) ([]domain.Account, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ids)
	}
	return nil, nil
}

// failingJar rejects every write.
type failingJar struct {
	*memory.CookieJar
}

func (failingJar) SetAll(...domain.CookieValue) error {
	return errors.New("header too large")
}

func argonHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := password.Argon2{Params: password.Argon2Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}}.Hash(pw)
	if err != nil {
		t.Fatalf("argon2: %v", err)
	}
	return h
}
