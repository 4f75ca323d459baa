package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/matchpoint/arena/internal/domain"
	"github.com/matchpoint/arena/internal/infra"
)

type lobbyRepo struct{}

// NewLobbyRepository returns a pgx-backed LobbyRepository.
func NewLobbyRepository() LobbyRepository {
	return &lobbyRepo{}
}

const lobbyColumns = `id, title, game, mode, region, visibility, password, entry_fee,
	       max_players, status, winning_team, countdown_starts_at, host_id,
	       slots, spectators, chat, banned_user_ids, version, created_at, updated_at`

func (r *lobbyRepo) Insert(ctx context.Context, db DBTX, l *domain.Lobby) error {
	slots, spectators, chat, banned, err := marshalLobbyDocs(l)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		INSERT INTO lobbies
		  (id, title, game, mode, region, visibility, password, entry_fee,
		   max_players, status, winning_team, countdown_starts_at, host_id,
		   slots, spectators, chat, banned_user_ids, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		l.ID, l.Title, l.Game, l.Mode, l.Region, string(l.Visibility), l.Password,
		infra.Int64ToNumeric(l.EntryFee),
		l.MaxPlayers, string(l.Status), l.WinningTeam, l.CountdownStartsAt, l.HostID,
		slots, spectators, chat, banned, l.Version, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lobby: %w", err)
	}
	return nil
}

func (r *lobbyRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Lobby, error) {
	row := db.QueryRow(ctx, `
		SELECT `+lobbyColumns+`
		FROM lobbies WHERE id = $1`, id)
	return scanLobby(row)
}

// LockForUpdate is the serialization point for all lobby commands: every
// mutation locks the row first, so read-modify-write cycles never interleave.
func (r *lobbyRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Lobby, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+lobbyColumns+`
		FROM lobbies WHERE id = $1 FOR UPDATE`, id)
	return scanLobby(row)
}

func (r *lobbyRepo) Update(ctx context.Context, db DBTX, l *domain.Lobby) error {
	slots, spectators, chat, banned, err := marshalLobbyDocs(l)
	if err != nil {
		return err
	}
	row := db.QueryRow(ctx, `
		UPDATE lobbies SET
		  title = $2, status = $3, winning_team = $4, countdown_starts_at = $5,
		  host_id = $6, slots = $7, spectators = $8, chat = $9,
		  banned_user_ids = $10, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING version, updated_at`,
		l.ID, l.Title, string(l.Status), l.WinningTeam, l.CountdownStartsAt,
		l.HostID, slots, spectators, chat, banned,
	)
	if err := row.Scan(&l.Version, &l.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrNotFound("lobby", l.ID.String())
		}
		return fmt.Errorf("update lobby: %w", err)
	}
	return nil
}

func (r *lobbyRepo) Delete(ctx context.Context, db DBTX, id uuid.UUID) error {
	_, err := db.Exec(ctx, `DELETE FROM lobbies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lobby: %w", err)
	}
	return nil
}

func (r *lobbyRepo) ListActive(ctx context.Context, db DBTX) ([]domain.Lobby, error) {
	rows, err := db.Query(ctx, `
		SELECT `+lobbyColumns+`
		FROM lobbies
		WHERE status != 'finished'
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query lobbies: %w", err)
	}
	defer rows.Close()

	var lobbies []domain.Lobby
	for rows.Next() {
		l, err := scanLobby(rows)
		if err != nil {
			return nil, err
		}
		lobbies = append(lobbies, *l)
	}
	return lobbies, rows.Err()
}

func (r *lobbyRepo) DeleteFinishedBefore(ctx context.Context, db DBTX, cutoff time.Time) (int64, error) {
	tag, err := db.Exec(ctx, `
		DELETE FROM lobbies WHERE status = 'finished' AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge lobbies: %w", err)
	}
	return tag.RowsAffected(), nil
}

func marshalLobbyDocs(l *domain.Lobby) (slots, spectators, chat, banned []byte, err error) {
	if slots, err = json.Marshal(l.Slots); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal slots: %w", err)
	}
	if spectators, err = json.Marshal(l.Spectators); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal spectators: %w", err)
	}
	if chat, err = json.Marshal(l.Chat); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal chat: %w", err)
	}
	if banned, err = json.Marshal(l.BannedUserIDs); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal banned: %w", err)
	}
	return slots, spectators, chat, banned, nil
}

func scanLobby(row pgx.Row) (*domain.Lobby, error) {
	var l domain.Lobby
	var feeNum pgtype.Numeric
	var slots, spectators, chat, banned []byte
	err := row.Scan(
		&l.ID, &l.Title, &l.Game, &l.Mode, &l.Region, &l.Visibility, &l.Password, &feeNum,
		&l.MaxPlayers, &l.Status, &l.WinningTeam, &l.CountdownStartsAt, &l.HostID,
		&slots, &spectators, &chat, &banned, &l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan lobby: %w", err)
	}
	if l.EntryFee, err = infra.NumericToInt64(feeNum); err != nil {
		return nil, fmt.Errorf("convert entry_fee: %w", err)
	}
	if err := json.Unmarshal(slots, &l.Slots); err != nil {
		return nil, fmt.Errorf("unmarshal slots: %w", err)
	}
	if err := json.Unmarshal(spectators, &l.Spectators); err != nil {
		return nil, fmt.Errorf("unmarshal spectators: %w", err)
	}
	if err := json.Unmarshal(chat, &l.Chat); err != nil {
		return nil, fmt.Errorf("unmarshal chat: %w", err)
	}
	if err := json.Unmarshal(banned, &l.BannedUserIDs); err != nil {
		return nil, fmt.Errorf("unmarshal banned: %w", err)
	}
	l.Players = l.OccupiedCount()
	return &l, nil
}
