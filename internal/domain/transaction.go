package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single income (positive) or expense (negative) entry in
// an account.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedBy   string          `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TransactionRepository is the port for transaction persistence. All
// operations are scoped to one account.
type TransactionRepository interface {
	AddTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, accountID, id string) error
	ListRecentTransactions(ctx context.Context, accountID string, limit int) ([]Transaction, error)
	NetForLocalDay(ctx context.Context, accountID, localDay string) (decimal.Decimal, error)
}
