// Package settlement turns a declared match result into wallet movements:
// losers each pay the entry fee, winners split the pooled fees. Computation
// is pure; applying the transfers goes through the ledger engine.
package settlement

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/matchpoint/arena/internal/domain"
)

// ComputePayouts derives the transfer list for a finished match. Debits come
// first, then credits, both in slot order.
//
// The pot is entryFee * len(losers), split evenly across the winners. With
// integer cents the remainder goes to the earliest winner slots, one cent
// each, so debits and credits always sum to the same total.
func ComputePayouts(l *domain.Lobby, winningTeam string) []domain.Transfer {
	if l.EntryFee <= 0 {
		return nil
	}

	var winners, losers []domain.Transfer
	for i := range l.Slots {
		occ := l.Slots[i].Occupant
		if occ == nil {
			continue
		}
		tr := domain.Transfer{
			UserID:    occ.UserID,
			Username:  occ.Username,
			Team:      l.Slots[i].Team,
			Reference: settleReference(l.ID, occ.UserID),
		}
		if l.Slots[i].Team == winningTeam {
			tr.Kind = domain.TransferCredit
			winners = append(winners, tr)
		} else {
			tr.Kind = domain.TransferDebit
			tr.Amount = l.EntryFee
			losers = append(losers, tr)
		}
	}

	transfers := losers
	if len(winners) > 0 && len(losers) > 0 {
		pot := l.EntryFee * int64(len(losers))
		share := pot / int64(len(winners))
		remainder := pot % int64(len(winners))
		for i := range winners {
			winners[i].Amount = share
			if int64(i) < remainder {
				winners[i].Amount++
			}
			if winners[i].Amount > 0 {
				transfers = append(transfers, winners[i])
			}
		}
	}
	return transfers
}

// settleReference is the idempotency key for a user's share of a lobby
// settlement. Replaying the settlement regenerates identical references.
func settleReference(lobbyID, userID uuid.UUID) string {
	return fmt.Sprintf("settle-%s-%s", lobbyID, userID)
}
