package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventLobbyCreated      EventType = "arena.lobby.created"
	EventLobbyChanged      EventType = "arena.lobby.changed"
	EventLobbyDeleted      EventType = "arena.lobby.deleted"
	EventMatchSettled      EventType = "arena.match.settled"
	EventTransactionPosted EventType = "arena.wallet.transaction.posted"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateLobby  AggregateType = "lobby"
	AggregateWallet AggregateType = "wallet"
)

// OutboxDraft is the payload written to the event_outbox table. Rows are
// inserted in the same transaction as the state change and relayed to Kafka
// by the outbox poller.
type OutboxDraft struct {
	SeqID         int64           `json:"-"`
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}
