package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionType enumerates the ledger entry types.
type TransactionType string

const (
	// TxSettlementDebit is a loser's entry fee leaving their balance.
	TxSettlementDebit TransactionType = "settlement_debit"
	// TxSettlementCredit is a winner's share of the pooled entry fees.
	TxSettlementCredit TransactionType = "settlement_credit"
)

// Transaction is an append-only ledger entry. Amount is always positive; the
// type determines the direction.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Type         TransactionType `json:"type"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	Reference    *string         `json:"reference,omitempty"`
	LobbyID      *uuid.UUID      `json:"lobby_id,omitempty"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IdempotencyKey is the composite key used for deduplication. Replaying a
// settlement produces the same references and returns the existing entries.
type IdempotencyKey struct {
	UserID    uuid.UUID
	Reference string
}

// PostEntryParams is the input to the atomic PostEntry ledger operation.
type PostEntryParams struct {
	UserID    uuid.UUID
	Type      TransactionType
	Amount    int64 // positive
	Delta     int64 // signed balance change
	Reference string
	LobbyID   *uuid.UUID
	Metadata  json.RawMessage
}

// EntryResult is the return value of the ledger posting commands.
type EntryResult struct {
	Transaction *Transaction
	User        *User
	Idempotent  bool // true if a duplicate reference returned the existing entry
}
