package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/matchpoint/arena/internal/domain"
	"github.com/matchpoint/arena/internal/infra"
)

type transactionRepo struct{}

// NewTransactionRepository returns a pgx-backed TransactionRepository.
func NewTransactionRepository() TransactionRepository {
	return &transactionRepo{}
}

const txColumns = `id, user_id, type, amount, balance_after, reference, lobby_id, metadata, created_at`

func (r *transactionRepo) FindExisting(ctx context.Context, db DBTX, key domain.IdempotencyKey) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE user_id = $1 AND reference = $2`,
		key.UserID, key.Reference)
	return scanTransaction(row)
}

func (r *transactionRepo) Insert(ctx context.Context, db DBTX, params domain.PostEntryParams, balanceAfter int64) (*domain.Transaction, error) {
	meta := params.Metadata
	if len(meta) == 0 {
		meta = json.RawMessage(`{}`)
	}
	var ref *string
	if params.Reference != "" {
		ref = &params.Reference
	}

	row := db.QueryRow(ctx, `
		INSERT INTO transactions
		  (user_id, type, amount, balance_after, reference, lobby_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+txColumns,
		params.UserID,
		string(params.Type),
		infra.Int64ToNumeric(params.Amount),
		infra.Int64ToNumeric(balanceAfter),
		ref,
		params.LobbyID,
		meta,
	)
	return scanTransaction(row)
}

func (r *transactionRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT `+txColumns+`
		FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *transactionRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = db.Query(ctx, `
			SELECT `+txColumns+`
			FROM transactions
			WHERE user_id = $1
			  AND (created_at, id) <= ((SELECT created_at, id FROM transactions WHERE id = $2))
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, userID, *cursor, limit)
	} else {
		rows, err = db.Query(ctx, `
			SELECT `+txColumns+`
			FROM transactions
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, userID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *transactionRepo) ListByLobby(ctx context.Context, db DBTX, lobbyID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := db.Query(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE lobby_id = $1
		ORDER BY created_at ASC`, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("query lobby transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amountNum, balNum pgtype.Numeric
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Type,
		&amountNum, &balNum,
		&tx.Reference, &tx.LobbyID, &tx.Metadata, &tx.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if tx.Amount, err = infra.NumericToInt64(amountNum); err != nil {
		return nil, fmt.Errorf("convert amount: %w", err)
	}
	if tx.BalanceAfter, err = infra.NumericToInt64(balNum); err != nil {
		return nil, fmt.Errorf("convert balance_after: %w", err)
	}
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}
