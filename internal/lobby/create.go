package lobby

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/matchpoint/arena/internal/domain"
)

// New builds a fresh lobby from a host and a creation config. The host is
// auto-seated into the first slot; max players and the slot layout come from
// the mode, never from the client.
func New(host *domain.User, cfg domain.LobbyConfig) (*domain.Lobby, error) {
	if err := domain.ValidateLobbyConfig(cfg); err != nil {
		return nil, err
	}
	slots, _ := domain.BuildSlots(cfg.Mode)

	title := cfg.Title
	if title == "" {
		title = fmt.Sprintf("%s — %s", cfg.Game, cfg.Mode)
	}
	visibility := cfg.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}

	ts := now()
	l := &domain.Lobby{
		ID:            uuid.New(),
		Title:         title,
		Game:          cfg.Game,
		Mode:          cfg.Mode,
		Region:        cfg.Region,
		Visibility:    visibility,
		Password:      cfg.Password,
		EntryFee:      cfg.EntryFee,
		MaxPlayers:    len(slots),
		Status:        domain.StatusWaiting,
		HostID:        host.ID,
		Slots:         slots,
		Spectators:    []domain.Spectator{},
		Chat:          []domain.ChatMessage{},
		BannedUserIDs: []uuid.UUID{},
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}

	seat(l, 0, host.Snapshot())
	l.Players = l.OccupiedCount()
	return l, nil
}
