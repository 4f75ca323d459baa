package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matchpoint/arena/internal/domain"
)

func TestTopicFor(t *testing.T) {
	lobbyEvent := domain.OutboxDraft{
		AggregateType: domain.AggregateLobby,
		EventType:     domain.EventLobbyChanged,
	}
	walletEvent := domain.OutboxDraft{
		AggregateType: domain.AggregateWallet,
		EventType:     domain.EventTransactionPosted,
	}

	// One topic per aggregate type; the event type rides in the message.
	assert.Equal(t, "arena.lobby.events", topicFor(lobbyEvent))
	assert.Equal(t, "arena.wallet.events", topicFor(walletEvent))
}
