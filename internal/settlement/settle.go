package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchpoint/arena/internal/domain"
	"github.com/matchpoint/arena/internal/ledger"
	"github.com/matchpoint/arena/internal/projection"
)

// Settler applies a computed payout through the ledger engine. Each transfer
// runs in its own transaction: one user's failure never rolls back another
// user's settled funds, and the reference keys make any retry a no-op for
// the transfers that already landed.
type Settler struct {
	pool   *pgxpool.Pool
	engine *ledger.Engine
	cache  projection.Store
	logger *slog.Logger
}

// NewSettler creates a Settler. cache may be nil; when set, each settled
// transfer evicts the user's cached balance.
func NewSettler(pool *pgxpool.Pool, engine *ledger.Engine, cache projection.Store, logger *slog.Logger) *Settler {
	return &Settler{pool: pool, engine: engine, cache: cache, logger: logger}
}

// Settle debits the losers and credits the winners of a finished match.
//
// On partial failure it returns ErrSettlementPartial carrying the unresolved
// transfers; the caller is expected to leave the lobby in_progress so the
// host can re-declare and retry. Replayed reports that every transfer was a
// duplicate of an earlier run.
func (s *Settler) Settle(ctx context.Context, l *domain.Lobby, winningTeam string) (*domain.SettlementReport, error) {
	transfers := ComputePayouts(l, winningTeam)

	report := &domain.SettlementReport{
		LobbyID:     l.ID,
		WinningTeam: winningTeam,
		EntryFee:    l.EntryFee,
		Transfers:   transfers,
	}

	var replays int
	var unresolved []domain.Transfer
	var firstErr error
	for _, tr := range transfers {
		result, err := s.applyTransfer(ctx, l, winningTeam, tr)
		if err != nil {
			s.logger.Error("settlement transfer failed",
				"lobby_id", l.ID, "user_id", tr.UserID, "kind", tr.Kind,
				"amount", tr.Amount, "error", err)
			unresolved = append(unresolved, tr)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if result.Idempotent {
			replays++
		}
		switch tr.Kind {
		case domain.TransferDebit:
			report.TotalDebited += tr.Amount
		case domain.TransferCredit:
			report.TotalCredited += tr.Amount
		}
	}

	// A replayed settlement is one where every transfer had already landed.
	report.Replayed = len(transfers) > 0 && replays == len(transfers)

	if len(unresolved) > 0 {
		return report, domain.ErrSettlementPartial(unresolved, firstErr)
	}

	s.logger.Info("match settled",
		"lobby_id", l.ID, "winning_team", winningTeam,
		"debited", report.TotalDebited, "credited", report.TotalCredited,
		"replayed", report.Replayed)
	return report, nil
}

func (s *Settler) applyTransfer(ctx context.Context, l *domain.Lobby, winningTeam string, tr domain.Transfer) (*domain.EntryResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrStorage("begin settlement tx", err)
	}
	defer tx.Rollback(ctx)

	meta, _ := json.Marshal(map[string]string{
		"team":         tr.Team,
		"winning_team": winningTeam,
		"mode":         l.Mode,
	})
	params := domain.PostEntryParams{
		UserID:    tr.UserID,
		Amount:    tr.Amount,
		Reference: tr.Reference,
		LobbyID:   &l.ID,
		Metadata:  meta,
	}

	var result *domain.EntryResult
	switch tr.Kind {
	case domain.TransferDebit:
		params.Type = domain.TxSettlementDebit
		result, err = s.engine.ExecuteDebit(ctx, tx, params)
	case domain.TransferCredit:
		params.Type = domain.TxSettlementCredit
		result, err = s.engine.ExecuteCredit(ctx, tx, params)
	default:
		return nil, fmt.Errorf("unknown transfer kind %q", tr.Kind)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrStorage("commit settlement tx", err)
	}

	if s.cache != nil {
		if err := projection.InvalidateBalance(ctx, s.cache, tr.UserID.String()); err != nil {
			s.logger.Warn("balance cache eviction failed", "user_id", tr.UserID, "error", err)
		}
	}
	return result, nil
}
