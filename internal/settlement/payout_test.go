package settlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint/arena/internal/domain"
)

// fullLobby builds a lobby in the given mode with every slot occupied.
func fullLobby(t *testing.T, mode string, fee int64) *domain.Lobby {
	t.Helper()
	slots, ok := domain.BuildSlots(mode)
	require.True(t, ok)
	for i := range slots {
		slots[i].Occupant = &domain.Occupant{UserID: uuid.New(), Username: slots[i].Team}
	}
	return &domain.Lobby{
		ID:       uuid.New(),
		Mode:     mode,
		EntryFee: fee,
		Slots:    slots,
	}
}

func sumByKind(transfers []domain.Transfer) (debits, credits int64) {
	for _, tr := range transfers {
		switch tr.Kind {
		case domain.TransferDebit:
			debits += tr.Amount
		case domain.TransferCredit:
			credits += tr.Amount
		}
	}
	return debits, credits
}

func TestComputePayouts(t *testing.T) {
	t.Run("1v1 moves the fee from loser to winner", func(t *testing.T) {
		l := fullLobby(t, "1v1", 500)
		transfers := ComputePayouts(l, "A")

		require.Len(t, transfers, 2)
		assert.Equal(t, domain.TransferDebit, transfers[0].Kind)
		assert.Equal(t, "B", transfers[0].Team)
		assert.Equal(t, int64(500), transfers[0].Amount)
		assert.Equal(t, domain.TransferCredit, transfers[1].Kind)
		assert.Equal(t, "A", transfers[1].Team)
		assert.Equal(t, int64(500), transfers[1].Amount)
	})

	t.Run("5v5 splits the pot evenly", func(t *testing.T) {
		l := fullLobby(t, "5v5", 1000)
		transfers := ComputePayouts(l, "B")

		debits, credits := sumByKind(transfers)
		assert.Equal(t, int64(5000), debits)
		assert.Equal(t, int64(5000), credits)
		for _, tr := range transfers {
			if tr.Kind == domain.TransferCredit {
				assert.Equal(t, int64(1000), tr.Amount)
			}
		}
	})

	t.Run("remainder cents go to the earliest winner slots", func(t *testing.T) {
		// 1 loser, 3 winners: pot of 100 splits 34/33/33.
		l := &domain.Lobby{ID: uuid.New(), EntryFee: 100}
		l.Slots = []domain.Slot{
			{Team: "A", Position: 1, Occupant: &domain.Occupant{UserID: uuid.New()}},
			{Team: "A", Position: 2, Occupant: &domain.Occupant{UserID: uuid.New()}},
			{Team: "A", Position: 3, Occupant: &domain.Occupant{UserID: uuid.New()}},
			{Team: "B", Position: 1, Occupant: &domain.Occupant{UserID: uuid.New()}},
		}

		transfers := ComputePayouts(l, "A")
		debits, credits := sumByKind(transfers)
		assert.Equal(t, debits, credits, "conservation must hold exactly")

		var creditAmounts []int64
		for _, tr := range transfers {
			if tr.Kind == domain.TransferCredit {
				creditAmounts = append(creditAmounts, tr.Amount)
			}
		}
		assert.Equal(t, []int64{34, 33, 33}, creditAmounts)
	})

	t.Run("conservation holds across modes and fees", func(t *testing.T) {
		for _, mode := range []string{"1v1", "2v2", "3v3", "5v5"} {
			for _, fee := range []int64{1, 99, 250, 12345} {
				l := fullLobby(t, mode, fee)
				debits, credits := sumByKind(ComputePayouts(l, "A"))
				assert.Equal(t, debits, credits, "mode %s fee %d", mode, fee)
			}
		}
	})

	t.Run("free-for-all pays one player from all the others", func(t *testing.T) {
		l := fullLobby(t, "free_for_all", 200)
		transfers := ComputePayouts(l, "P7")

		debits, credits := sumByKind(transfers)
		assert.Equal(t, int64(3000), debits, "15 losers pay 200 each")
		assert.Equal(t, int64(3000), credits)

		var winners int
		for _, tr := range transfers {
			if tr.Kind == domain.TransferCredit {
				winners++
				assert.Equal(t, "P7", tr.Team)
			}
		}
		assert.Equal(t, 1, winners)
	})

	t.Run("free lobby settles with no transfers", func(t *testing.T) {
		l := fullLobby(t, "2v2", 0)
		assert.Empty(t, ComputePayouts(l, "A"))
	})

	t.Run("empty slots are skipped", func(t *testing.T) {
		l := fullLobby(t, "2v2", 300)
		l.Slots[3].Occupant = nil // one loser short

		transfers := ComputePayouts(l, "A")
		debits, credits := sumByKind(transfers)
		assert.Equal(t, int64(300), debits)
		assert.Equal(t, int64(300), credits)
	})

	t.Run("no losers means nothing moves", func(t *testing.T) {
		l := fullLobby(t, "2v2", 300)
		l.Slots[2].Occupant = nil
		l.Slots[3].Occupant = nil

		assert.Empty(t, ComputePayouts(l, "A"))
	})

	t.Run("references are stable per user and lobby", func(t *testing.T) {
		l := fullLobby(t, "1v1", 500)
		first := ComputePayouts(l, "A")
		second := ComputePayouts(l, "A")
		require.Len(t, second, len(first))
		for i := range first {
			assert.Equal(t, first[i].Reference, second[i].Reference)
			assert.NotEmpty(t, first[i].Reference)
		}
	})
}
