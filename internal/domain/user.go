package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the slice of the identity record the core owns: balance and the
// current-lobby session reference. Credentials and the social graph belong
// to the identity collaborator.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Username       string     `json:"username"`
	AvatarURL      string     `json:"avatar_url,omitempty"`
	Balance        int64      `json:"balance"`
	CurrentLobbyID *uuid.UUID `json:"current_lobby_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Snapshot returns the display identity captured into slots and spectator
// entries at the moment a user enters a lobby.
func (u *User) Snapshot() Spectator {
	return Spectator{UserID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}
