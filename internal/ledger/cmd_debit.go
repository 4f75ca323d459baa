package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/matchpoint/arena/internal/domain"
)

// ExecuteDebit removes a settlement amount from a user's balance. The
// balance is allowed to go negative: a declared result is never blocked by
// insufficient funds, it is recorded as a debt.
//
// The reference makes the debit replayable — posting the same reference for
// the same user returns the original entry unchanged.
func (e *Engine) ExecuteDebit(ctx context.Context, tx pgx.Tx, params domain.PostEntryParams) (*domain.EntryResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}

	user, err := e.LockUserForUpdate(ctx, tx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("debit: %w", err)
	}

	if params.Reference != "" {
		existing, err := e.FindExistingTransaction(ctx, tx, domain.IdempotencyKey{
			UserID:    params.UserID,
			Reference: params.Reference,
		})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &domain.EntryResult{Transaction: existing, User: user, Idempotent: true}, nil
		}
	}

	params.Delta = -params.Amount
	entry, updatedUser, err := e.PostEntry(ctx, tx, params)
	if err != nil {
		return nil, fmt.Errorf("debit post: %w", err)
	}

	return &domain.EntryResult{Transaction: entry, User: updatedUser}, nil
}
