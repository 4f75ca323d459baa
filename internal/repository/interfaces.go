package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matchpoint/arena/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UserRepository provides access to the users table.
type UserRepository interface {
	// FindByID returns a user by ID, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the user.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error)

	// Create inserts a new user.
	Create(ctx context.Context, db DBTX, user *domain.User) error

	// ApplyBalanceDelta updates the balance with server-side arithmetic and
	// returns the post-update row. Negative results are allowed; the ledger
	// never hides a settlement behind a floor check.
	ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int64) (*domain.User, error)

	// SetCurrentLobby points the user's session at a lobby (nil clears it).
	SetCurrentLobby(ctx context.Context, db DBTX, userID uuid.UUID, lobbyID *uuid.UUID) error

	// ClearCurrentLobby resets current_lobby_id for every user pointing at the
	// given lobby, used on lobby deletion.
	ClearCurrentLobby(ctx context.Context, db DBTX, lobbyID uuid.UUID) error
}

// LobbyRepository provides access to the lobbies table. Slots, spectators,
// chat and the ban list persist as JSONB documents on the row.
type LobbyRepository interface {
	// Insert creates a new lobby row.
	Insert(ctx context.Context, db DBTX, lobby *domain.Lobby) error

	// FindByID returns a lobby by ID, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Lobby, error)

	// LockForUpdate acquires the per-lobby row lock that serializes all
	// command processing for a lobby.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Lobby, error)

	// Update persists the mutated snapshot, bumping version and updated_at.
	Update(ctx context.Context, db DBTX, lobby *domain.Lobby) error

	// Delete removes a lobby row.
	Delete(ctx context.Context, db DBTX, id uuid.UUID) error

	// ListActive returns lobbies that are not finished, newest first.
	ListActive(ctx context.Context, db DBTX) ([]domain.Lobby, error)

	// DeleteFinishedBefore removes finished lobbies older than the cutoff and
	// returns how many were purged.
	DeleteFinishedBefore(ctx context.Context, db DBTX, cutoff time.Time) (int64, error)
}

// TransactionRepository provides access to the transactions ledger.
type TransactionRepository interface {
	// FindExisting checks the idempotency index for a duplicate entry.
	FindExisting(ctx context.Context, db DBTX, key domain.IdempotencyKey) (*domain.Transaction, error)

	// Insert creates a ledger entry with the post-update balance snapshot.
	Insert(ctx context.Context, db DBTX, params domain.PostEntryParams, balanceAfter int64) (*domain.Transaction, error)

	// FindByID returns a transaction by ID.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error)

	// ListByUser returns a user's entries, newest first, with cursor paging.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, error)

	// ListByLobby returns every entry posted for a lobby's settlement.
	ListByLobby(ctx context.Context, db DBTX, lobbyID uuid.UUID) ([]domain.Transaction, error)
}

// OutboxRepository writes to the event_outbox table. The drain side lives
// with the poller, which reads the table directly.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the state change).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error
}
