package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LobbyStatus enumerates the lobby lifecycle states.
type LobbyStatus string

const (
	StatusWaiting    LobbyStatus = "waiting"
	StatusCountdown  LobbyStatus = "countdown"
	StatusInProgress LobbyStatus = "in_progress"
	StatusFinished   LobbyStatus = "finished"
)

// Visibility controls whether a lobby is listed openly or requires a password.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// CountdownSeconds is the advisory ready-check window shown to clients.
// The server never acts on its expiry; transitions are command-driven.
const CountdownSeconds = 60

// Occupant is a user holding a slot, with a display snapshot taken at entry.
// IsReady resets whenever occupancy changes.
type Occupant struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	IsReady   bool      `json:"is_ready"`
}

// Slot is one team position in a lobby. Team+Position is unique per lobby.
type Slot struct {
	Team     string    `json:"team"`
	Position int       `json:"position"`
	Occupant *Occupant `json:"occupant,omitempty"`
}

// Spectator is a user present in a lobby without holding a slot.
type Spectator struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// ChatMessage is one entry in the lobby chat log.
type ChatMessage struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}

// Lobby is one match lobby. Slots are ordered by team then position; the
// ordering is fixed at creation and join fills the first free slot.
type Lobby struct {
	ID                uuid.UUID     `json:"id"`
	Title             string        `json:"title"`
	Game              string        `json:"game"`
	Mode              string        `json:"mode"`
	Region            string        `json:"region"`
	Visibility        Visibility    `json:"visibility"`
	Password          string        `json:"-"`
	EntryFee          int64         `json:"entry_fee"`
	MaxPlayers        int           `json:"max_players"`
	Status            LobbyStatus   `json:"status"`
	WinningTeam       string        `json:"winning_team,omitempty"`
	CountdownStartsAt *time.Time    `json:"countdown_starts_at,omitempty"`
	HostID            uuid.UUID     `json:"host_id"`
	Players           int           `json:"players"`
	Slots             []Slot        `json:"slots"`
	Spectators        []Spectator   `json:"spectators"`
	Chat              []ChatMessage `json:"chat"`
	BannedUserIDs     []uuid.UUID   `json:"banned_user_ids"`
	Version           int64         `json:"version"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// SlotIndexOf returns the index of the slot held by userID, or -1.
func (l *Lobby) SlotIndexOf(userID uuid.UUID) int {
	for i := range l.Slots {
		if occ := l.Slots[i].Occupant; occ != nil && occ.UserID == userID {
			return i
		}
	}
	return -1
}

// SlotIndexAt returns the index of the slot with the given team and
// position, or -1 if no such slot exists.
func (l *Lobby) SlotIndexAt(team string, position int) int {
	for i := range l.Slots {
		if l.Slots[i].Team == team && l.Slots[i].Position == position {
			return i
		}
	}
	return -1
}

// SpectatorIndexOf returns the index of userID in the spectator list, or -1.
func (l *Lobby) SpectatorIndexOf(userID uuid.UUID) int {
	for i := range l.Spectators {
		if l.Spectators[i].UserID == userID {
			return i
		}
	}
	return -1
}

// IsBanned reports whether userID is barred from rejoining this lobby.
func (l *Lobby) IsBanned(userID uuid.UUID) bool {
	for _, id := range l.BannedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OccupiedCount returns the number of slots with a non-nil occupant.
func (l *Lobby) OccupiedCount() int {
	n := 0
	for i := range l.Slots {
		if l.Slots[i].Occupant != nil {
			n++
		}
	}
	return n
}

// IsFull reports whether every slot is occupied.
func (l *Lobby) IsFull() bool {
	return l.OccupiedCount() == len(l.Slots)
}

// AllReady reports whether every occupant has readied up. Empty slots do not
// count; callers pair this with IsFull for the countdown condition.
func (l *Lobby) AllReady() bool {
	for i := range l.Slots {
		if occ := l.Slots[i].Occupant; occ != nil && !occ.IsReady {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the lobby holds no occupants and no spectators.
func (l *Lobby) IsEmpty() bool {
	return l.OccupiedCount() == 0 && len(l.Spectators) == 0
}

// MemberIDs returns every user currently present (slot occupants and
// spectators), used to clear sessions when the lobby is deleted.
func (l *Lobby) MemberIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, l.OccupiedCount()+len(l.Spectators))
	for i := range l.Slots {
		if occ := l.Slots[i].Occupant; occ != nil {
			ids = append(ids, occ.UserID)
		}
	}
	for i := range l.Spectators {
		ids = append(ids, l.Spectators[i].UserID)
	}
	return ids
}

// TeamConfig is one team in a mode layout.
type TeamConfig struct {
	Name string
	Size int
}

// ModeConfig describes the slot layout a mode produces.
type ModeConfig struct {
	MaxPlayers int
	Teams      []TeamConfig
}

// Modes maps the supported mode tags to their slot layouts. Max players is
// always derived from the mode, never set by the client.
var Modes = map[string]ModeConfig{
	"1v1":          {MaxPlayers: 2, Teams: []TeamConfig{{"A", 1}, {"B", 1}}},
	"2v2":          {MaxPlayers: 4, Teams: []TeamConfig{{"A", 2}, {"B", 2}}},
	"3v3":          {MaxPlayers: 6, Teams: []TeamConfig{{"A", 3}, {"B", 3}}},
	"5v5":          {MaxPlayers: 10, Teams: []TeamConfig{{"A", 5}, {"B", 5}}},
	"free_for_all": {MaxPlayers: 16, Teams: soloTeams(16)},
}

// soloTeams builds the free-for-all layout: every slot is its own one-man
// team (P1..Pn), so declaring a winner pays one player from all the others.
func soloTeams(n int) []TeamConfig {
	teams := make([]TeamConfig, n)
	for i := range teams {
		teams[i] = TeamConfig{Name: fmt.Sprintf("P%d", i+1), Size: 1}
	}
	return teams
}

// BuildSlots constructs the empty slot list for a mode, ordered by team then
// position. Returns false if the mode is unknown.
func BuildSlots(mode string) ([]Slot, bool) {
	cfg, ok := Modes[mode]
	if !ok {
		return nil, false
	}
	slots := make([]Slot, 0, cfg.MaxPlayers)
	for _, team := range cfg.Teams {
		for pos := 1; pos <= team.Size; pos++ {
			slots = append(slots, Slot{Team: team.Name, Position: pos})
		}
	}
	return slots, true
}
