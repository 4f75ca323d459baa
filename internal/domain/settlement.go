package domain

import (
	"github.com/google/uuid"
)

// TransferKind distinguishes the two sides of a settlement.
type TransferKind string

const (
	TransferDebit  TransferKind = "debit"
	TransferCredit TransferKind = "credit"
)

// Transfer is one balance movement computed by the payout engine.
type Transfer struct {
	UserID    uuid.UUID    `json:"user_id"`
	Username  string       `json:"username"`
	Team      string       `json:"team"`
	Kind      TransferKind `json:"kind"`
	Amount    int64        `json:"amount"`
	Reference string       `json:"reference"`
}

// SettlementReport is the outcome of settling a finished match.
type SettlementReport struct {
	LobbyID       uuid.UUID  `json:"lobby_id"`
	WinningTeam   string     `json:"winning_team"`
	EntryFee      int64      `json:"entry_fee"`
	TotalDebited  int64      `json:"total_debited"`
	TotalCredited int64      `json:"total_credited"`
	Transfers     []Transfer `json:"transfers"`
	Replayed      bool       `json:"replayed"`
}
