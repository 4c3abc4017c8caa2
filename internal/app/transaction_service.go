package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"fintrack/internal/domain"

	"github.com/google/uuid"
)

// ErrNoAccount indicates the session has no current account selected.
var ErrNoAccount = errors.New("no account selected")

// ErrInvalidDescription is returned when a description exceeds maxDescriptionLen.
var ErrInvalidDescription = errors.New("description must be at most 200 characters")

const maxDescriptionLen = 200

// TransactionService encapsulates ledger use cases for the acting account.
type TransactionService struct {
	repo domain.TransactionRepository
	now  func() time.Time
}

// NewTransactionService creates a TransactionService backed by the given repository.
func NewTransactionService(repo domain.TransactionRepository) *TransactionService {
	return &TransactionService{repo: repo, now: time.Now}
}

// Record validates and stores a transaction in the claim's current account.
func (s *TransactionService) Record(ctx context.Context, claim *domain.SessionClaim, amount, description string) (*domain.Transaction, error) {
	if claim.AccountID == "" {
		return nil, ErrNoAccount
	}
	value, err := domain.ParseAmount(amount)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if len(description) > maxDescriptionLen {
		return nil, ErrInvalidDescription
	}

	tx := domain.Transaction{
		ID:          uuid.NewString(),
		AccountID:   claim.AccountID,
		Amount:      value,
		Description: description,
		CreatedBy:   claim.UserEmail,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.AddTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListRecent returns the most recent transactions of the claim's account.
func (s *TransactionService) ListRecent(ctx context.Context, claim *domain.SessionClaim, limit int) ([]domain.Transaction, error) {
	if claim.AccountID == "" {
		return nil, ErrNoAccount
	}
	return s.repo.ListRecentTransactions(ctx, claim.AccountID, limit)
}

// UndoLast deletes the most recent transaction of the claim's account.
func (s *TransactionService) UndoLast(ctx context.Context, claim *domain.SessionClaim) (bool, string, error) {
	if claim.AccountID == "" {
		return false, "", ErrNoAccount
	}
	items, err := s.repo.ListRecentTransactions(ctx, claim.AccountID, 1)
	if err != nil {
		return false, "", err
	}
	if len(items) == 0 {
		return false, "", nil
	}
	if err := s.repo.DeleteTransaction(ctx, claim.AccountID, items[0].ID); err != nil {
		return false, "", err
	}
	return true, items[0].ID, nil
}
