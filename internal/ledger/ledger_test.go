package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint/arena/internal/domain"
	"github.com/matchpoint/arena/internal/repository"
)

// In-memory repository fakes. The engine only touches the repositories, so a
// nil pgx.Tx is fine here; transactional behavior is the database's job.

type fakeUsers struct {
	users map[uuid.UUID]*domain.User
}

func (f *fakeUsers) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.User, error) {
	return f.users[id], nil
}

func (f *fakeUsers) LockForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*domain.User, error) {
	return f.users[id], nil
}

func (f *fakeUsers) Create(_ context.Context, _ repository.DBTX, user *domain.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) ApplyBalanceDelta(_ context.Context, _ pgx.Tx, userID uuid.UUID, delta int64) (*domain.User, error) {
	u := f.users[userID]
	u.Balance += delta
	u.UpdatedAt = time.Now()
	return u, nil
}

func (f *fakeUsers) SetCurrentLobby(_ context.Context, _ repository.DBTX, userID uuid.UUID, lobbyID *uuid.UUID) error {
	f.users[userID].CurrentLobbyID = lobbyID
	return nil
}

func (f *fakeUsers) ClearCurrentLobby(_ context.Context, _ repository.DBTX, lobbyID uuid.UUID) error {
	for _, u := range f.users {
		if u.CurrentLobbyID != nil && *u.CurrentLobbyID == lobbyID {
			u.CurrentLobbyID = nil
		}
	}
	return nil
}

type fakeTransactions struct {
	entries []domain.Transaction
}

func (f *fakeTransactions) FindExisting(_ context.Context, _ repository.DBTX, key domain.IdempotencyKey) (*domain.Transaction, error) {
	for i := range f.entries {
		e := &f.entries[i]
		if e.UserID == key.UserID && e.Reference != nil && *e.Reference == key.Reference {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeTransactions) Insert(_ context.Context, _ repository.DBTX, params domain.PostEntryParams, balanceAfter int64) (*domain.Transaction, error) {
	entry := domain.Transaction{
		ID:           uuid.New(),
		UserID:       params.UserID,
		Type:         params.Type,
		Amount:       params.Amount,
		BalanceAfter: balanceAfter,
		LobbyID:      params.LobbyID,
		Metadata:     params.Metadata,
		CreatedAt:    time.Now(),
	}
	if params.Reference != "" {
		ref := params.Reference
		entry.Reference = &ref
	}
	f.entries = append(f.entries, entry)
	return &f.entries[len(f.entries)-1], nil
}

func (f *fakeTransactions) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Transaction, error) {
	for i := range f.entries {
		if f.entries[i].ID == id {
			return &f.entries[i], nil
		}
	}
	return nil, nil
}

func (f *fakeTransactions) ListByUser(_ context.Context, _ repository.DBTX, userID uuid.UUID, _ *string, limit int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeTransactions) ListByLobby(_ context.Context, _ repository.DBTX, lobbyID uuid.UUID) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, e := range f.entries {
		if e.LobbyID != nil && *e.LobbyID == lobbyID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeOutbox struct {
	drafts []domain.OutboxDraft
}

func (f *fakeOutbox) Insert(_ context.Context, _ repository.DBTX, draft domain.OutboxDraft) error {
	f.drafts = append(f.drafts, draft)
	return nil
}

func newTestEngine(balance int64) (*Engine, uuid.UUID, *fakeUsers, *fakeTransactions, *fakeOutbox) {
	userID := uuid.New()
	users := &fakeUsers{users: map[uuid.UUID]*domain.User{
		userID: {ID: userID, Username: "ada", Balance: balance},
	}}
	txs := &fakeTransactions{}
	outbox := &fakeOutbox{}
	return NewEngine(users, txs, outbox), userID, users, txs, outbox
}

func TestExecuteDebit(t *testing.T) {
	ctx := context.Background()

	t.Run("debits balance and records entry", func(t *testing.T) {
		engine, userID, users, txs, outbox := newTestEngine(10000)

		result, err := engine.ExecuteDebit(ctx, nil, domain.PostEntryParams{
			UserID:    userID,
			Type:      domain.TxSettlementDebit,
			Amount:    2500,
			Reference: "settle-l1-u1",
		})
		require.NoError(t, err)

		assert.False(t, result.Idempotent)
		assert.Equal(t, int64(7500), result.User.Balance)
		assert.Equal(t, int64(7500), users.users[userID].Balance)
		assert.Equal(t, int64(2500), result.Transaction.Amount)
		assert.Equal(t, int64(7500), result.Transaction.BalanceAfter)
		assert.Equal(t, domain.TxSettlementDebit, result.Transaction.Type)

		require.Len(t, txs.entries, 1)
		require.Len(t, outbox.drafts, 1)
		assert.Equal(t, domain.EventTransactionPosted, outbox.drafts[0].EventType)
	})

	t.Run("balance may go negative", func(t *testing.T) {
		engine, userID, _, _, _ := newTestEngine(1000)

		result, err := engine.ExecuteDebit(ctx, nil, domain.PostEntryParams{
			UserID:    userID,
			Type:      domain.TxSettlementDebit,
			Amount:    5000,
			Reference: "settle-l1-u1",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(-4000), result.User.Balance)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		engine, userID, _, _, _ := newTestEngine(1000)

		for _, amount := range []int64{0, -100} {
			_, err := engine.ExecuteDebit(ctx, nil, domain.PostEntryParams{
				UserID: userID,
				Type:   domain.TxSettlementDebit,
				Amount: amount,
			})
			require.Error(t, err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		engine, _, _, _, _ := newTestEngine(1000)

		_, err := engine.ExecuteDebit(ctx, nil, domain.PostEntryParams{
			UserID: uuid.New(),
			Type:   domain.TxSettlementDebit,
			Amount: 100,
		})
		require.Error(t, err)
	})

	t.Run("replay with same reference is a no-op", func(t *testing.T) {
		engine, userID, users, txs, outbox := newTestEngine(10000)

		params := domain.PostEntryParams{
			UserID:    userID,
			Type:      domain.TxSettlementDebit,
			Amount:    2500,
			Reference: "settle-l1-u1",
		}
		first, err := engine.ExecuteDebit(ctx, nil, params)
		require.NoError(t, err)

		second, err := engine.ExecuteDebit(ctx, nil, params)
		require.NoError(t, err)

		assert.True(t, second.Idempotent)
		assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
		assert.Equal(t, int64(7500), users.users[userID].Balance, "balance applied once")
		assert.Len(t, txs.entries, 1)
		assert.Len(t, outbox.drafts, 1)
	})
}

func TestExecuteCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("credits balance and records entry", func(t *testing.T) {
		engine, userID, _, _, outbox := newTestEngine(500)

		result, err := engine.ExecuteCredit(ctx, nil, domain.PostEntryParams{
			UserID:    userID,
			Type:      domain.TxSettlementCredit,
			Amount:    2500,
			Reference: "settle-l1-u1",
		})
		require.NoError(t, err)

		assert.Equal(t, int64(3000), result.User.Balance)
		assert.Equal(t, int64(3000), result.Transaction.BalanceAfter)
		assert.Equal(t, domain.TxSettlementCredit, result.Transaction.Type)
		assert.Len(t, outbox.drafts, 1)
	})

	t.Run("replay with same reference is a no-op", func(t *testing.T) {
		engine, userID, users, _, _ := newTestEngine(0)

		params := domain.PostEntryParams{
			UserID:    userID,
			Type:      domain.TxSettlementCredit,
			Amount:    1000,
			Reference: "settle-l1-u1",
		}
		_, err := engine.ExecuteCredit(ctx, nil, params)
		require.NoError(t, err)

		second, err := engine.ExecuteCredit(ctx, nil, params)
		require.NoError(t, err)
		assert.True(t, second.Idempotent)
		assert.Equal(t, int64(1000), users.users[userID].Balance)
	})

	t.Run("reused reference returns the prior entry even across kinds", func(t *testing.T) {
		engine, userID, users, txs, _ := newTestEngine(500)

		_, err := engine.ExecuteDebit(ctx, nil, domain.PostEntryParams{
			UserID: userID, Type: domain.TxSettlementDebit, Amount: 500, Reference: "settle-l1-u1",
		})
		require.NoError(t, err)

		// The reference wins over the kind: a credit under a reference that
		// already posted a debit is a replay, not a new entry. Callers own
		// never pointing one reference at both directions.
		second, err := engine.ExecuteCredit(ctx, nil, domain.PostEntryParams{
			UserID: userID, Type: domain.TxSettlementCredit, Amount: 1000, Reference: "settle-l1-u1",
		})
		require.NoError(t, err)
		assert.True(t, second.Idempotent)
		assert.Equal(t, domain.TxSettlementDebit, second.Transaction.Type)
		assert.Equal(t, int64(0), users.users[userID].Balance)
		assert.Len(t, txs.entries, 1)
	})

	t.Run("debit then credit with distinct references", func(t *testing.T) {
		engine, userID, users, txs, _ := newTestEngine(5000)

		_, err := engine.ExecuteDebit(ctx, nil, domain.PostEntryParams{
			UserID: userID, Type: domain.TxSettlementDebit, Amount: 5000, Reference: "settle-l1-loss",
		})
		require.NoError(t, err)

		_, err = engine.ExecuteCredit(ctx, nil, domain.PostEntryParams{
			UserID: userID, Type: domain.TxSettlementCredit, Amount: 7500, Reference: "settle-l2-win",
		})
		require.NoError(t, err)

		assert.Equal(t, int64(7500), users.users[userID].Balance)
		assert.Len(t, txs.entries, 2)
	})
}
