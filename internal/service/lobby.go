// Package service orchestrates lobby commands: every mutation runs in one
// pgx transaction that locks the lobby row, applies the core logic, persists
// the snapshot with an outbox event, and broadcasts after commit.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchpoint/arena/internal/domain"
	"github.com/matchpoint/arena/internal/guard"
	"github.com/matchpoint/arena/internal/infra"
	"github.com/matchpoint/arena/internal/lobby"
	"github.com/matchpoint/arena/internal/repository"
	"github.com/matchpoint/arena/internal/settlement"
)

// LobbyService handles the lobby command surface.
type LobbyService struct {
	pool        *pgxpool.Pool
	lobbies     repository.LobbyRepository
	users       repository.UserRepository
	outbox      repository.OutboxRepository
	settler     *settlement.Settler
	broadcaster *infra.Broadcaster
	chatLimit   *guard.RateLimiter
	settling    *guard.InFlight
	logger      *slog.Logger
}

// NewLobbyService creates a LobbyService.
func NewLobbyService(
	pool *pgxpool.Pool,
	lobbies repository.LobbyRepository,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	settler *settlement.Settler,
	broadcaster *infra.Broadcaster,
	logger *slog.Logger,
) *LobbyService {
	return &LobbyService{
		pool:        pool,
		lobbies:     lobbies,
		users:       users,
		outbox:      outbox,
		settler:     settler,
		broadcaster: broadcaster,
		chatLimit:   guard.NewRateLimiter(10, 10*time.Second),
		settling:    guard.NewInFlight(),
		logger:      logger,
	}
}

// lobbiesRoom is the browser-facing room carrying create/delete updates.
const lobbiesRoom = "lobbies"

// Create builds a new lobby with the caller as host. The host must be able
// to afford the entry fee up front; losing later may still take the balance
// negative, but entry is gated.
func (s *LobbyService) Create(ctx context.Context, hostID uuid.UUID, cfg domain.LobbyConfig) (*domain.Lobby, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrStorage("begin tx", err)
	}
	defer tx.Rollback(ctx)

	host, err := s.loadUser(ctx, tx, hostID)
	if err != nil {
		return nil, err
	}
	if cfg.EntryFee > 0 && host.Balance < cfg.EntryFee {
		return nil, domain.ErrInsufficientFunds()
	}

	l, err := lobby.New(host, cfg)
	if err != nil {
		return nil, err
	}

	if err := s.lobbies.Insert(ctx, tx, l); err != nil {
		return nil, domain.ErrStorage("insert lobby", err)
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewLobbyCreatedEvent(l)); err != nil {
		return nil, domain.ErrStorage("insert outbox event", err)
	}
	if err := s.users.SetCurrentLobby(ctx, tx, hostID, &l.ID); err != nil {
		return nil, domain.ErrStorage("set session", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrStorage("commit tx", err)
	}

	s.logger.Info("lobby created", "lobby_id", l.ID, "host_id", hostID, "mode", l.Mode, "entry_fee", l.EntryFee)
	s.broadcaster.Publish(ctx, lobbiesRoom, "lobby.created", l)
	return l, nil
}

// Get returns a lobby by ID.
func (s *LobbyService) Get(ctx context.Context, lobbyID uuid.UUID) (*domain.Lobby, error) {
	l, err := s.lobbies.FindByID(ctx, s.pool, lobbyID)
	if err != nil {
		return nil, domain.ErrStorage("find lobby", err)
	}
	if l == nil {
		return nil, domain.ErrNotFound("lobby", lobbyID.String())
	}
	return l, nil
}

// ListActive returns every lobby that has not finished.
func (s *LobbyService) ListActive(ctx context.Context) ([]domain.Lobby, error) {
	lobbies, err := s.lobbies.ListActive(ctx, s.pool)
	if err != nil {
		return nil, domain.ErrStorage("list lobbies", err)
	}
	return lobbies, nil
}

// CurrentLobby resolves the caller's session to a lobby, or nil when the
// user is not in one.
func (s *LobbyService) CurrentLobby(ctx context.Context, userID uuid.UUID) (*domain.Lobby, error) {
	user, err := s.users.FindByID(ctx, s.pool, userID)
	if err != nil {
		return nil, domain.ErrStorage("find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", userID.String())
	}
	if user.CurrentLobbyID == nil {
		return nil, nil
	}
	l, err := s.lobbies.FindByID(ctx, s.pool, *user.CurrentLobbyID)
	if err != nil {
		return nil, domain.ErrStorage("find lobby", err)
	}
	return l, nil
}

// Join puts the caller into a free slot (or the spectator list). Paid slots
// require the balance to cover the entry fee; spectating is always free.
func (s *LobbyService) Join(ctx context.Context, lobbyID, userID uuid.UUID, asSpectator bool, password string) (*domain.Lobby, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrStorage("begin tx", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.lockLobby(ctx, tx, lobbyID)
	if err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := lobby.CheckPassword(l, password); err != nil {
		return nil, err
	}
	if !asSpectator && l.EntryFee > 0 && user.Balance < l.EntryFee {
		return nil, domain.ErrInsufficientFunds()
	}
	if err := lobby.Join(l, user, asSpectator); err != nil {
		return nil, err
	}

	if err := s.persistChange(ctx, tx, l); err != nil {
		return nil, err
	}
	if err := s.users.SetCurrentLobby(ctx, tx, userID, &l.ID); err != nil {
		return nil, domain.ErrStorage("set session", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrStorage("commit tx", err)
	}

	s.broadcastChanged(ctx, l)
	return l, nil
}

// Occupy moves the caller into a specific team slot.
func (s *LobbyService) Occupy(ctx context.Context, lobbyID, userID uuid.UUID, team string, position int) (*domain.Lobby, error) {
	return s.mutate(ctx, lobbyID, func(tx pgx.Tx, l *domain.Lobby) error {
		user, err := s.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if l.EntryFee > 0 && l.SlotIndexOf(userID) < 0 && user.Balance < l.EntryFee {
			return domain.ErrInsufficientFunds()
		}
		return lobby.Occupy(l, userID, team, position)
	})
}

// Vacate frees the caller's slot, keeping them in the lobby as spectator.
func (s *LobbyService) Vacate(ctx context.Context, lobbyID, userID uuid.UUID) (*domain.Lobby, error) {
	return s.mutate(ctx, lobbyID, func(tx pgx.Tx, l *domain.Lobby) error {
		return lobby.Vacate(l, userID)
	})
}

// Ready toggles the caller's ready flag.
func (s *LobbyService) Ready(ctx context.Context, lobbyID, userID uuid.UUID) (*domain.Lobby, error) {
	return s.mutate(ctx, lobbyID, func(tx pgx.Tx, l *domain.Lobby) error {
		return lobby.Ready(l, userID)
	})
}

// Start is the host's transition into in_progress.
func (s *LobbyService) Start(ctx context.Context, lobbyID, callerID uuid.UUID) (*domain.Lobby, error) {
	return s.mutate(ctx, lobbyID, func(tx pgx.Tx, l *domain.Lobby) error {
		return lobby.Start(l, callerID)
	})
}

// Chat appends a message to the lobby chat log.
func (s *LobbyService) Chat(ctx context.Context, lobbyID, userID uuid.UUID, text string) (*domain.Lobby, error) {
	if res := s.chatLimit.Check(ctx, "chat:"+userID.String()); !res.Allowed {
		return nil, domain.ErrRateLimited("slow down")
	}
	return s.mutate(ctx, lobbyID, func(tx pgx.Tx, l *domain.Lobby) error {
		user, err := s.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if l.SlotIndexOf(userID) < 0 && l.SpectatorIndexOf(userID) < 0 {
			return domain.ErrNotInLobby()
		}
		return lobby.AppendChat(l, user, text)
	})
}

// Leave removes the caller from the lobby. The host leaving, or the last
// member leaving, deletes the lobby and clears every member's session.
func (s *LobbyService) Leave(ctx context.Context, lobbyID, userID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ErrStorage("begin tx", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.lockLobby(ctx, tx, lobbyID)
	if err != nil {
		return err
	}

	deleteLobby, err := lobby.Leave(l, userID)
	if err != nil {
		return err
	}

	if deleteLobby {
		if err := s.deleteLobby(ctx, tx, l); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return domain.ErrStorage("commit tx", err)
		}
		s.broadcastDeleted(ctx, l.ID)
		return nil
	}

	if err := s.persistChange(ctx, tx, l); err != nil {
		return err
	}
	if err := s.users.SetCurrentLobby(ctx, tx, userID, nil); err != nil {
		return domain.ErrStorage("clear session", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ErrStorage("commit tx", err)
	}

	s.broadcastChanged(ctx, l)
	return nil
}

// Kick is the host removing and banning a seated player.
func (s *LobbyService) Kick(ctx context.Context, lobbyID, requesterID, targetID uuid.UUID) (*domain.Lobby, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrStorage("begin tx", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.lockLobby(ctx, tx, lobbyID)
	if err != nil {
		return nil, err
	}
	if err := lobby.Kick(l, requesterID, targetID); err != nil {
		return nil, err
	}

	if err := s.persistChange(ctx, tx, l); err != nil {
		return nil, err
	}
	if err := s.users.SetCurrentLobby(ctx, tx, targetID, nil); err != nil {
		return nil, domain.ErrStorage("clear session", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrStorage("commit tx", err)
	}

	s.broadcastChanged(ctx, l)
	s.broadcaster.Publish(ctx, infra.UserRoom(targetID.String()), "lobby.kicked", map[string]string{"lobby_id": l.ID.String()})
	return l, nil
}

// DeclareWinner settles the match and marks the lobby finished.
//
// The declared team is pinned in its own transaction before any money
// moves; each transfer then commits independently (see settlement.Settler).
// On partial failure the lobby stays in_progress with the winner pinned —
// the host re-declares the same team and the settled transfers replay as
// no-ops, while a different team is rejected outright.
func (s *LobbyService) DeclareWinner(ctx context.Context, lobbyID, callerID uuid.UUID, team string) (*domain.SettlementReport, *domain.Lobby, error) {
	settleKey := "settle:" + lobbyID.String()
	if !s.settling.Begin(settleKey) {
		return nil, nil, domain.ErrInvalidState("settlement already in progress")
	}
	defer s.settling.End(settleKey)

	l, err := s.pinWinner(ctx, lobbyID, callerID, team)
	if err != nil {
		return nil, nil, err
	}

	report, err := s.settler.Settle(ctx, l, team)
	if err != nil {
		return report, nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return report, nil, domain.ErrStorage("begin tx", err)
	}
	defer tx.Rollback(ctx)

	l, err = s.lockLobby(ctx, tx, lobbyID)
	if err != nil {
		return report, nil, err
	}
	lobby.Finish(l)
	if err := s.persistChange(ctx, tx, l); err != nil {
		return report, nil, err
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewMatchSettledEvent(report)); err != nil {
		return report, nil, domain.ErrStorage("insert outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return report, nil, domain.ErrStorage("commit tx", err)
	}

	s.broadcastChanged(ctx, l)
	s.broadcaster.Publish(ctx, infra.LobbyRoom(l.ID.String()), "match.settled", report)
	return report, l, nil
}

// pinWinner validates the declaration and commits the winning team before
// settlement starts. Settlement references carry no direction, so a retry
// after partial failure must name the same team; pinning it durably lets
// ValidateDeclareWinner reject a switch even across process restarts.
func (s *LobbyService) pinWinner(ctx context.Context, lobbyID, callerID uuid.UUID, team string) (*domain.Lobby, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrStorage("begin tx", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.lockLobby(ctx, tx, lobbyID)
	if err != nil {
		return nil, err
	}
	if err := lobby.ValidateDeclareWinner(l, callerID, team); err != nil {
		return nil, err
	}
	if l.WinningTeam == "" {
		l.WinningTeam = team
		if err := s.persistChange(ctx, tx, l); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrStorage("commit tx", err)
	}
	return l, nil
}

// Delete removes a finished lobby. Active lobbies go away through Leave.
func (s *LobbyService) Delete(ctx context.Context, lobbyID, callerID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ErrStorage("begin tx", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.lockLobby(ctx, tx, lobbyID)
	if err != nil {
		return err
	}
	if callerID != l.HostID {
		return domain.ErrForbidden("only the host can delete the lobby")
	}
	if l.Status != domain.StatusFinished {
		return domain.ErrInvalidState("only finished lobbies can be deleted")
	}

	if err := s.deleteLobby(ctx, tx, l); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ErrStorage("commit tx", err)
	}

	s.broadcastDeleted(ctx, l.ID)
	return nil
}

// PurgeFinished removes finished lobbies older than the cutoff. Run
// periodically from the API process.
func (s *LobbyService) PurgeFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.lobbies.DeleteFinishedBefore(ctx, s.pool, cutoff)
	if err != nil {
		return 0, domain.ErrStorage("purge lobbies", err)
	}
	if n > 0 {
		s.logger.Info("purged finished lobbies", "count", n)
	}
	return n, nil
}

// mutate is the shared lock → apply → persist → commit → broadcast cycle
// for commands that mutate a single lobby.
func (s *LobbyService) mutate(ctx context.Context, lobbyID uuid.UUID, apply func(tx pgx.Tx, l *domain.Lobby) error) (*domain.Lobby, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrStorage("begin tx", err)
	}
	defer tx.Rollback(ctx)

	l, err := s.lockLobby(ctx, tx, lobbyID)
	if err != nil {
		return nil, err
	}
	if err := apply(tx, l); err != nil {
		return nil, err
	}
	if err := s.persistChange(ctx, tx, l); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrStorage("commit tx", err)
	}

	s.broadcastChanged(ctx, l)
	return l, nil
}

func (s *LobbyService) lockLobby(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Lobby, error) {
	l, err := s.lobbies.LockForUpdate(ctx, tx, id)
	if err != nil {
		return nil, domain.ErrStorage("lock lobby", err)
	}
	if l == nil {
		return nil, domain.ErrNotFound("lobby", id.String())
	}
	return l, nil
}

func (s *LobbyService) loadUser(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, tx, id)
	if err != nil {
		return nil, domain.ErrStorage("find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user", id.String())
	}
	return user, nil
}

func (s *LobbyService) persistChange(ctx context.Context, tx pgx.Tx, l *domain.Lobby) error {
	if err := s.lobbies.Update(ctx, tx, l); err != nil {
		if appErr, ok := err.(*domain.AppError); ok {
			return appErr
		}
		return domain.ErrStorage("update lobby", err)
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewLobbyChangedEvent(l)); err != nil {
		return domain.ErrStorage("insert outbox event", err)
	}
	return nil
}

// deleteLobby removes the row, clears every member's session, and queues
// the deletion event, all within the caller's transaction.
func (s *LobbyService) deleteLobby(ctx context.Context, tx pgx.Tx, l *domain.Lobby) error {
	if err := s.lobbies.Delete(ctx, tx, l.ID); err != nil {
		return domain.ErrStorage("delete lobby", err)
	}
	if err := s.users.ClearCurrentLobby(ctx, tx, l.ID); err != nil {
		return domain.ErrStorage("clear sessions", err)
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewLobbyDeletedEvent(l.ID)); err != nil {
		return domain.ErrStorage("insert outbox event", err)
	}
	s.logger.Info("lobby deleted", "lobby_id", l.ID)
	return nil
}

func (s *LobbyService) broadcastChanged(ctx context.Context, l *domain.Lobby) {
	s.broadcaster.Publish(ctx, infra.LobbyRoom(l.ID.String()), "lobby.changed", l)
	s.broadcaster.Publish(ctx, lobbiesRoom, "lobby.changed", l)
}

func (s *LobbyService) broadcastDeleted(ctx context.Context, lobbyID uuid.UUID) {
	payload := map[string]string{"lobby_id": lobbyID.String()}
	s.broadcaster.Publish(ctx, infra.LobbyRoom(lobbyID.String()), "lobby.deleted", payload)
	s.broadcaster.Publish(ctx, lobbiesRoom, "lobby.deleted", payload)
}
