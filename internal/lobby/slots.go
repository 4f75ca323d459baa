// Package lobby holds the core lobby logic: slot and spectator bookkeeping
// and the lifecycle state machine. Functions mutate a lobby snapshot in
// place and return typed domain errors; persistence and locking are the
// caller's concern (see internal/service).
package lobby

import (
	"github.com/google/uuid"

	"github.com/matchpoint/arena/internal/domain"
)

// Join places a user into the lobby, either into the lowest-ordered free
// slot or onto the spectator list. Joining is idempotent: a user already
// holding a slot (or already spectating, when asSpectator) gets the current
// snapshot back unchanged.
func Join(l *domain.Lobby, user *domain.User, asSpectator bool) error {
	if err := mutable(l); err != nil {
		return err
	}
	if l.IsBanned(user.ID) {
		return domain.ErrBanned()
	}
	if l.SlotIndexOf(user.ID) >= 0 {
		return nil // already seated
	}

	if asSpectator {
		if l.SpectatorIndexOf(user.ID) < 0 {
			l.Spectators = append(l.Spectators, user.Snapshot())
		}
		return nil
	}

	free := -1
	for i := range l.Slots {
		if l.Slots[i].Occupant == nil {
			free = i
			break
		}
	}
	if free < 0 {
		return domain.ErrLobbyFull()
	}

	seat(l, free, user.Snapshot())
	if idx := l.SpectatorIndexOf(user.ID); idx >= 0 {
		removeSpectator(l, idx)
	}
	finishMutation(l)
	return nil
}

// Occupy moves a user into a specific slot, identified by team and position.
// A user already holding a different slot is moved; a spectator is promoted.
// Readiness always resets on any occupancy change.
func Occupy(l *domain.Lobby, userID uuid.UUID, team string, position int) error {
	if err := mutable(l); err != nil {
		return err
	}
	if l.IsBanned(userID) {
		return domain.ErrBanned()
	}

	target := l.SlotIndexAt(team, position)
	if target < 0 {
		return domain.ErrSlotNotFound(team, position)
	}
	if occ := l.Slots[target].Occupant; occ != nil {
		if occ.UserID == userID {
			return domain.ErrAlreadyPresent()
		}
		return domain.ErrSlotTaken(team, position)
	}

	if current := l.SlotIndexOf(userID); current >= 0 {
		moved := *l.Slots[current].Occupant
		l.Slots[current].Occupant = nil
		seat(l, target, domain.Spectator{UserID: moved.UserID, Username: moved.Username, AvatarURL: moved.AvatarURL})
		finishMutation(l)
		return nil
	}

	if idx := l.SpectatorIndexOf(userID); idx >= 0 {
		seat(l, target, l.Spectators[idx])
		removeSpectator(l, idx)
		finishMutation(l)
		return nil
	}

	return domain.ErrNotInLobby()
}

// Vacate frees the user's slot and parks them on the spectator list.
func Vacate(l *domain.Lobby, userID uuid.UUID) error {
	if err := mutable(l); err != nil {
		return err
	}
	idx := l.SlotIndexOf(userID)
	if idx < 0 {
		return domain.ErrNotInSlot()
	}

	occ := *l.Slots[idx].Occupant
	l.Slots[idx].Occupant = nil
	if l.SpectatorIndexOf(userID) < 0 {
		l.Spectators = append(l.Spectators, domain.Spectator{
			UserID: occ.UserID, Username: occ.Username, AvatarURL: occ.AvatarURL,
		})
	}
	finishMutation(l)
	return nil
}

// Leave removes the user from whichever of slot or spectator list holds
// them. It reports deleteLobby=true when the lobby must be torn down: the
// host left, or the last member left.
func Leave(l *domain.Lobby, userID uuid.UUID) (deleteLobby bool, err error) {
	if err := mutable(l); err != nil {
		return false, err
	}

	slotIdx := l.SlotIndexOf(userID)
	specIdx := l.SpectatorIndexOf(userID)
	if slotIdx < 0 && specIdx < 0 {
		return false, domain.ErrNotInLobby()
	}

	// A leaving host always tears the lobby down; no headless lobbies.
	if userID == l.HostID {
		return true, nil
	}

	if slotIdx >= 0 {
		l.Slots[slotIdx].Occupant = nil
	}
	if specIdx >= 0 {
		removeSpectator(l, specIdx)
	}
	if l.IsEmpty() {
		return true, nil
	}
	finishMutation(l)
	return false, nil
}

// Kick is a host-only action: the target loses their slot and is added to
// the ban list, barring any future join or occupy.
func Kick(l *domain.Lobby, requesterID, targetID uuid.UUID) error {
	if err := mutable(l); err != nil {
		return err
	}
	if requesterID != l.HostID {
		return domain.ErrForbidden("only the host can kick players")
	}
	idx := l.SlotIndexOf(targetID)
	if idx < 0 {
		return domain.ErrTargetNotInSlot()
	}

	l.BannedUserIDs = append(l.BannedUserIDs, targetID)
	l.Slots[idx].Occupant = nil
	finishMutation(l)
	return nil
}

// CheckPassword gates entry to private lobbies.
func CheckPassword(l *domain.Lobby, password string) error {
	if l.Visibility != domain.VisibilityPrivate {
		return nil
	}
	if l.Password != password {
		return domain.ErrWrongPassword()
	}
	return nil
}

// seat occupies slot i with a fresh, not-ready occupant.
func seat(l *domain.Lobby, i int, s domain.Spectator) {
	l.Slots[i].Occupant = &domain.Occupant{
		UserID:    s.UserID,
		Username:  s.Username,
		AvatarURL: s.AvatarURL,
		IsReady:   false,
	}
}

func removeSpectator(l *domain.Lobby, i int) {
	l.Spectators = append(l.Spectators[:i], l.Spectators[i+1:]...)
}

// finishMutation restores the derived invariants after any slot change:
// the players count and the waiting/countdown status.
func finishMutation(l *domain.Lobby) {
	l.Players = l.OccupiedCount()
	refreshCountdown(l)
}
