package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"fintrack/internal/domain"
)

const defaultCurrency = "USD"

var userColumns = []string{"id", "email", "password_hash", "created_at"}

var accountColumns = []string{"id", "name", "currency", "created_at"}

// FindByEmail retrieves a user and their account memberships. The email is
// expected in normalized form.
func (d *DB) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query, args, err := psq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building user query: %w", err)
	}

	var u domain.User
	err = d.sql.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u.AccountIDs, err = d.memberships(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *DB) memberships(ctx context.Context, userID int64) ([]string, error) {
	query, args, err := psq.Select("account_id").
		From("account_members").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("position", "account_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building membership query: %w", err)
	}

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateUser inserts a user together with their memberships, in order.
func (d *DB) CreateUser(ctx context.Context, email, passwordHash string, accountIDs ...string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	query, args, err := psq.Insert("users").
		Columns("email", "password_hash", "created_at").
		Values(email, passwordHash, time.Now().UTC()).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building user insert: %w", err)
	}

	u := domain.User{Email: email, PasswordHash: passwordHash}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.CreatedAt); err != nil {
		return nil, err
	}

	if len(accountIDs) > 0 {
		ins := psq.Insert("account_members").Columns("account_id", "user_id", "position")
		for i, id := range accountIDs {
			ins = ins.Values(id, u.ID, i)
		}
		query, args, err = ins.ToSql()
		if err != nil {
			return nil, fmt.Errorf("building membership insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	u.AccountIDs = append([]string(nil), accountIDs...)
	return &u, nil
}

// FindByID retrieves an account by id.
func (d *DB) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	query, args, err := psq.Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building account query: %w", err)
	}

	var a domain.Account
	err = d.sql.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Name, &a.Currency, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByIDs returns the existing accounts among ids, in the order given.
func (d *DB) ListByIDs(ctx context.Context, ids []string) ([]domain.Account, error) {
	out := make([]domain.Account, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := psq.Select(accountColumns...).
		From("accounts").
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building account list query: %w", err)
	}

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	byID := make(map[string]domain.Account, len(ids))
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Currency, &a.CreatedAt); err != nil {
			return nil, err
		}
		byID[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// PutAccount inserts an account or updates its name and currency.
func (d *DB) PutAccount(ctx context.Context, a domain.Account) error {
	if a.ID == "" {
		return errors.New("account id is required")
	}
	if a.Currency == "" {
		a.Currency = defaultCurrency
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query, args, err := psq.Insert("accounts").
		Columns(accountColumns...).
		Values(a.ID, a.Name, a.Currency, a.CreatedAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, currency = EXCLUDED.currency").
		ToSql()
	if err != nil {
		return fmt.Errorf("building account upsert: %w", err)
	}
	_, err = d.sql.ExecContext(ctx, query, args...)
	return err
}
