package memory

import (
	"context"
	"fmt"
	"os"

	"fintrack/internal/domain"

	"gopkg.in/yaml.v3"
)

// Fixtures is the on-disk shape of a development directory:
//
//	accounts:
//	  - id: acc-1
//	    name: Household
//	    currency: EUR
//	users:
//	  - email: a@example.com
//	    password_hash: $2a$10$...
//	    accounts: [acc-1]
type Fixtures struct {
	Accounts []FixtureAccount `yaml:"accounts"`
	Users    []FixtureUser    `yaml:"users"`
}

// FixtureAccount is one account entry.
type FixtureAccount struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

// FixtureUser is one user entry.
type FixtureUser struct {
	Email        string   `yaml:"email"`
	PasswordHash string   `yaml:"password_hash"`
	Accounts     []string `yaml:"accounts"`
}

// Seeder receives fixture data. DB and postgres.DB implement it.
type Seeder interface {
	PutAccount(ctx context.Context, a domain.Account) error
	CreateUser(ctx context.Context, email, passwordHash string, accountIDs ...string) (*domain.User, error)
}

// ReadFixtures reads and validates a fixtures file.
func ReadFixtures(path string) (*Fixtures, error) {
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}
	return DecodeFixtures(data)
}

// DecodeFixtures parses YAML fixture data. Users may only reference accounts
// declared in the same document.
func DecodeFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures: %w", err)
	}

	known := make(map[string]bool, len(f.Accounts))
	for _, a := range f.Accounts {
		if a.ID == "" {
			return nil, fmt.Errorf("fixture account %q: id is required", a.Name)
		}
		known[a.ID] = true
	}
	for _, u := range f.Users {
		for _, id := range u.Accounts {
			if !known[id] {
				return nil, fmt.Errorf("fixture user %q: unknown account %q", u.Email, id)
			}
		}
	}
	return &f, nil
}

// Apply writes accounts first, then users, into dst.
func (f *Fixtures) Apply(ctx context.Context, dst Seeder) error {
	for _, a := range f.Accounts {
		err := dst.PutAccount(ctx, domain.Account{ID: a.ID, Name: a.Name, Currency: a.Currency})
		if err != nil {
			return fmt.Errorf("fixture account %q: %w", a.ID, err)
		}
	}
	for _, u := range f.Users {
		if _, err := dst.CreateUser(ctx, u.Email, u.PasswordHash, u.Accounts...); err != nil {
			return fmt.Errorf("fixture user %q: %w", u.Email, err)
		}
	}
	return nil
}

// LoadFixtures reads a fixtures file and returns a populated DB.
func LoadFixtures(path string) (*DB, error) {
	f, err := ReadFixtures(path)
	if err != nil {
		return nil, err
	}
	return f.build()
}

// ParseFixtures builds a DB from YAML fixture data.
func ParseFixtures(data []byte) (*DB, error) {
	f, err := DecodeFixtures(data)
	if err != nil {
		return nil, err
	}
	return f.build()
}

func (f *Fixtures) build() (*DB, error) {
	db := New()
	if err := f.Apply(context.Background(), db); err != nil {
		return nil, err
	}
	return db, nil
}
