package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"fintrack/internal/domain"
)

var transactionColumns = []string{"id", "account_id", "amount", "description", "created_by", "created_at"}

// AddTransaction inserts a transaction.
func (d *DB) AddTransaction(ctx context.Context, t domain.Transaction) error {
	query, args, err := psq.Insert("transactions").
		Columns(transactionColumns...).
		Values(t.ID, t.AccountID, t.Amount, t.Description, t.CreatedBy, t.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("building transaction insert: %w", err)
	}
	_, err = d.sql.ExecContext(ctx, query, args...)
	return err
}

// DeleteTransaction removes a transaction by ID, scoped to an account.
func (d *DB) DeleteTransaction(ctx context.Context, accountID, id string) error {
	query, args, err := psq.Delete("transactions").
		Where(sq.Eq{"id": id, "account_id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building transaction delete: %w", err)
	}
	_, err = d.sql.ExecContext(ctx, query, args...)
	return err
}

// ListRecentTransactions returns the newest transactions of an account, up to limit.
func (d *DB) ListRecentTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		return []domain.Transaction{}, nil
	}
	query, args, err := psq.Select(transactionColumns...).
		From("transactions").
		Where(sq.Eq{"account_id": accountID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building transaction query: %w", err)
	}

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Description, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// NetForLocalDay returns the sum of an account's transactions on a local calendar day.
func (d *DB) NetForLocalDay(ctx context.Context, accountID, localDay string) (decimal.Decimal, error) {
	dayStart, err := time.ParseInLocation("2006-01-02", localDay, time.Local)
	if err != nil {
		return decimal.Zero, err
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	query, args, err := psq.Select("COALESCE(SUM(amount), 0)").
		From("transactions").
		Where(sq.Eq{"account_id": accountID}).
		Where(sq.GtOrEq{"created_at": dayStart.UTC()}).
		Where(sq.Lt{"created_at": dayEnd.UTC()}).
		ToSql()
	if err != nil {
		return decimal.Zero, fmt.Errorf("building daily total query: %w", err)
	}

	var total decimal.Decimal
	if err := d.sql.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
