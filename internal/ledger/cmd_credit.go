package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/matchpoint/arena/internal/domain"
)

// ExecuteCredit adds a settlement amount to a user's balance, with the same
// reference-based idempotency as ExecuteDebit.
func (e *Engine) ExecuteCredit(ctx context.Context, tx pgx.Tx, params domain.PostEntryParams) (*domain.EntryResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}

	user, err := e.LockUserForUpdate(ctx, tx, params.UserID)
	if err != nil {
		return nil, fmt.Errorf("credit: %w", err)
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

	params.Delta = params.Amount
	entry, updatedUser, err := e.PostEntry(ctx, tx, params)
	if err != nil {
		return nil, fmt.Errorf("credit post: %w", err)
	}

	return &domain.EntryResult{Transaction: entry, User: updatedUser}, nil
}
