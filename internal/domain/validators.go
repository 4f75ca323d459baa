package domain

import (
	"fmt"
	"strings"
)

// LobbyConfig is the client-supplied part of lobby creation. MaxPlayers and
// the slot layout are always derived from Mode.
type LobbyConfig struct {
	Title      string     `json:"title"`
	Game       string     `json:"game"`
	Mode       string     `json:"mode"`
	Region     string     `json:"region"`
	Visibility Visibility `json:"visibility"`
	Password   string     `json:"password,omitempty"`
	EntryFee   int64      `json:"entry_fee"`
}

// ValidateLobbyConfig checks a lobby creation request.
func ValidateLobbyConfig(cfg LobbyConfig) error {
	if strings.TrimSpace(cfg.Game) == "" {
		return ErrValidation("game is required")
	}
	if _, ok := Modes[cfg.Mode]; !ok {
		return ErrValidation(fmt.Sprintf("unknown mode %q", cfg.Mode))
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return ErrValidation("region is required")
	}
	if cfg.EntryFee < 0 {
		return ErrValidation("entry fee must not be negative")
	}
	switch cfg.Visibility {
	case VisibilityPublic, VisibilityPrivate, "":
	default:
		return ErrValidation(fmt.Sprintf("unknown visibility %q", cfg.Visibility))
	}
	if cfg.Visibility == VisibilityPrivate && cfg.Password == "" {
		return ErrValidation("private lobby requires a password")
	}
	return nil
}

// ValidatePositiveAmount rejects zero or negative ledger amounts.
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return ErrValidation("amount must be positive")
	}
	return nil
}

// ValidateChatMessage rejects empty or oversized chat messages.
func ValidateChatMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrValidation("message must not be empty")
	}
	if len(text) > 2000 {
		return ErrValidation("message too long")
	}
	return nil
}
