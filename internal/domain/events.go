package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewLobbyChangedEvent wraps the full lobby snapshot after a successful
// mutation. Consumers (socket fan-out, lobby list caches) replace their copy
// wholesale.
func NewLobbyChangedEvent(lobby *Lobby) OutboxDraft {
	payload, _ := json.Marshal(lobby)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateLobby,
		AggregateID:   lobby.ID.String(),
		EventType:     EventLobbyChanged,
		PartitionKey:  lobby.ID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewLobbyCreatedEvent marks a new lobby becoming visible in listings.
func NewLobbyCreatedEvent(lobby *Lobby) OutboxDraft {
	draft := NewLobbyChangedEvent(lobby)
	draft.EventType = EventLobbyCreated
	return draft
}

// NewLobbyDeletedEvent marks a lobby removal (host left or lobby drained).
func NewLobbyDeletedEvent(lobbyID uuid.UUID) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{"lobby_id": lobbyID.String()})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateLobby,
		AggregateID:   lobbyID.String(),
		EventType:     EventLobbyDeleted,
		PartitionKey:  lobbyID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewMatchSettledEvent carries the settlement report of a finished match.
func NewMatchSettledEvent(report *SettlementReport) OutboxDraft {
	payload, _ := json.Marshal(report)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateLobby,
		AggregateID:   report.LobbyID.String(),
		EventType:     EventMatchSettled,
		PartitionKey:  report.LobbyID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewTransactionPostedEvent creates the standard wallet event for a ledger
// entry.
func NewTransactionPostedEvent(tx *Transaction) OutboxDraft {
	payload, _ := json.Marshal(tx)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWallet,
		AggregateID:   tx.UserID.String(),
		EventType:     EventTransactionPosted,
		PartitionKey:  tx.UserID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
