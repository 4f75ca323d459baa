package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchpoint/arena/internal/domain"
	"github.com/matchpoint/arena/internal/projection"
	"github.com/matchpoint/arena/internal/repository"
)

// WalletService is the read surface over balances and the ledger. All
// writes go through settlement; there is no top-up or withdrawal path.
type WalletService struct {
	pool         *pgxpool.Pool
	users        repository.UserRepository
	transactions repository.TransactionRepository
	cache        projection.Store
}

// NewWalletService creates a WalletService. cache may be nil to disable
// balance caching.
func NewWalletService(pool *pgxpool.Pool, users repository.UserRepository, transactions repository.TransactionRepository, cache projection.Store) *WalletService {
	return &WalletService{pool: pool, users: users, transactions: transactions, cache: cache}
}

// Balance returns the user's current balance in cents. Reads hit the
// projection cache first; settlement invalidates it on every transfer.
func (s *WalletService) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.cache != nil {
		if p, err := projection.GetBalance(ctx, s.cache, userID.String()); err == nil {
			return p.Balance, nil
		}
	}

	user, err := s.users.FindByID(ctx, s.pool, userID)
	if err != nil {
		return 0, domain.ErrStorage("find user", err)
	}
	if user == nil {
		return 0, domain.ErrNotFound("user", userID.String())
	}

	if s.cache != nil {
		_ = projection.UpdateBalance(ctx, s.cache, projection.BalanceProjection{
			UserID:  userID.String(),
			Balance: user.Balance,
		})
	}
	return user.Balance, nil
}

// Transactions returns the user's ledger history, newest first.
func (s *WalletService) Transactions(ctx context.Context, userID uuid.UUID, cursor *string, limit int) ([]domain.Transaction, error) {
	txs, err := s.transactions.ListByUser(ctx, s.pool, userID, cursor, limit)
	if err != nil {
		return nil, domain.ErrStorage("list transactions", err)
	}
	return txs, nil
}

// LobbySettlement returns every ledger entry posted for a lobby.
func (s *WalletService) LobbySettlement(ctx context.Context, lobbyID uuid.UUID) ([]domain.Transaction, error) {
	txs, err := s.transactions.ListByLobby(ctx, s.pool, lobbyID)
	if err != nil {
		return nil, domain.ErrStorage("list lobby transactions", err)
	}
	return txs, nil
}
