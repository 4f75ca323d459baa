// Package ledger implements the wallet write path. Every balance movement
// goes through the same three primitives: a row lock on the user, an
// idempotency probe on the reference, and an atomic post that pairs the
// balance update with an append-only ledger entry and an outbox event.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/matchpoint/arena/internal/domain"
	"github.com/matchpoint/arena/internal/repository"
)

// Engine provides the foundational ledger operations:
//  1. LockUserForUpdate — row-level pessimistic lock
//  2. FindExistingTransaction — idempotency check
//  3. PostEntry — atomic balance update + append-only insert + outbox event
type Engine struct {
	users        repository.UserRepository
	transactions repository.TransactionRepository
	outbox       repository.OutboxRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	users repository.UserRepository,
	transactions repository.TransactionRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{
		users:        users,
		transactions: transactions,
		outbox:       outbox,
	}
}

// LockUserForUpdate acquires a row-level lock and returns the user.
// Must be called within a transaction.
func (e *Engine) LockUserForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.User, error) {
	user, err := e.users.LockForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}
	return user, nil
}

// FindExistingTransaction checks whether an entry with the same (user,
// reference) pair was already posted. Returns nil if no duplicate found.
func (e *Engine) FindExistingTransaction(ctx context.Context, tx pgx.Tx, key domain.IdempotencyKey) (*domain.Transaction, error) {
	existing, err := e.transactions.FindExisting(ctx, tx, key)
	if err != nil {
		return nil, fmt.Errorf("find existing transaction: %w", err)
	}
	return existing, nil
}

// PostEntry atomically applies the balance delta and inserts a ledger entry.
// Both debit and credit delegate to this.
//
// Steps:
//  1. Update the balance with server-side arithmetic
//  2. Insert the entry with the post-update balance snapshot
//  3. Insert the outbox event
//
// All 3 steps run within the caller's transaction.
func (e *Engine) PostEntry(ctx context.Context, tx pgx.Tx, params domain.PostEntryParams) (*domain.Transaction, *domain.User, error) {
	updatedUser, err := e.users.ApplyBalanceDelta(ctx, tx, params.UserID, params.Delta)
	if err != nil {
		return nil, nil, fmt.Errorf("apply balance delta: %w", err)
	}

	entry, err := e.transactions.Insert(ctx, tx, params, updatedUser.Balance)
	if err != nil {
		return nil, nil, fmt.Errorf("insert transaction: %w", err)
	}

	event := domain.NewTransactionPostedEvent(entry)
	if err := e.outbox.Insert(ctx, tx, event); err != nil {
		return nil, nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return entry, updatedUser, nil
}
