package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/matchpoint/arena/internal/domain"
	"github.com/matchpoint/arena/internal/infra"
)

type userRepo struct{}

// NewUserRepository returns a pgx-backed UserRepository.
func NewUserRepository() UserRepository {
	return &userRepo{}
}

func (r *userRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error) {
	row := db.QueryRow(ctx, `
		SELECT id, username, avatar_url, balance, current_lobby_id, created_at, updated_at
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, username, avatar_url, balance, current_lobby_id, created_at, updated_at
		FROM users WHERE id = $1 FOR UPDATE`, id)
	return scanUser(row)
}

func (r *userRepo) Create(ctx context.Context, db DBTX, user *domain.User) error {
	_, err := db.Exec(ctx, `
		INSERT INTO users (id, username, avatar_url, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID,
		user.Username,
		user.AvatarURL,
		infra.Int64ToNumeric(user.Balance),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// ApplyBalanceDelta uses server-side arithmetic so concurrent settlements on
// different lobbies never lose an update.
func (r *userRepo) ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int64) (*domain.User, error) {
	row := tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING id, username, avatar_url, balance, current_lobby_id, created_at, updated_at`,
		infra.Int64ToNumeric(delta), userID)
	return scanUser(row)
}

func (r *userRepo) SetCurrentLobby(ctx context.Context, db DBTX, userID uuid.UUID, lobbyID *uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE users SET current_lobby_id = $1, updated_at = now() WHERE id = $2`,
		lobbyID, userID)
	if err != nil {
		return fmt.Errorf("set current lobby: %w", err)
	}
	return nil
}

func (r *userRepo) ClearCurrentLobby(ctx context.Context, db DBTX, lobbyID uuid.UUID) error {
	_, err := db.Exec(ctx, `
		UPDATE users SET current_lobby_id = NULL, updated_at = now()
		WHERE current_lobby_id = $1`, lobbyID)
	if err != nil {
		return fmt.Errorf("clear current lobby: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var balNum pgtype.Numeric
	err := row.Scan(&u.ID, &u.Username, &u.AvatarURL, &balNum, &u.CurrentLobbyID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Balance, err = infra.NumericToInt64(balNum)
	if err != nil {
		return nil, fmt.Errorf("convert balance: %w", err)
	}
	return &u, nil
}
