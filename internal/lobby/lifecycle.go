package lobby

import (
	"time"

	"github.com/google/uuid"

	"github.com/matchpoint/arena/internal/domain"
)

// now is swapped out in tests.
var now = time.Now

// Ready toggles the caller's ready flag and re-evaluates the
// waiting/countdown transition.
func Ready(l *domain.Lobby, userID uuid.UUID) error {
	if err := mutable(l); err != nil {
		return err
	}
	idx := l.SlotIndexOf(userID)
	if idx < 0 {
		return domain.ErrNotInSlot()
	}
	l.Slots[idx].Occupant.IsReady = !l.Slots[idx].Occupant.IsReady
	refreshCountdown(l)
	return nil
}

// Start is the host's explicit transition into in_progress. The countdown
// shown to clients is advisory; this command is the authoritative trigger.
func Start(l *domain.Lobby, callerID uuid.UUID) error {
	if callerID != l.HostID {
		return domain.ErrForbidden("only the host can start the game")
	}
	if l.Status == domain.StatusInProgress || l.Status == domain.StatusFinished {
		return domain.ErrInvalidState("the game has already started or is finished")
	}
	l.Status = domain.StatusInProgress
	l.CountdownStartsAt = nil
	return nil
}

// ValidateDeclareWinner checks host authority, lobby status, and that the
// named team exists. The service settles payouts before calling Finish.
//
// Once a winner has been pinned (a prior declaration that failed to settle
// completely) only the same team may be declared again: settlement
// references identify the user and lobby, not the direction, so switching
// teams would turn already-posted debits into silently dropped credits.
func ValidateDeclareWinner(l *domain.Lobby, callerID uuid.UUID, team string) error {
	if callerID != l.HostID {
		return domain.ErrForbidden("only the host can declare the winner")
	}
	if l.Status != domain.StatusInProgress {
		return domain.ErrInvalidState("the game is not in progress")
	}
	if l.WinningTeam != "" && l.WinningTeam != team {
		return domain.ErrInvalidState("winner already declared as team " + l.WinningTeam)
	}
	for i := range l.Slots {
		if l.Slots[i].Team == team {
			return nil
		}
	}
	return domain.ErrValidation("unknown team " + team)
}

// Finish marks the lobby settled and terminal.
func Finish(l *domain.Lobby) {
	l.Status = domain.StatusFinished
	l.CountdownStartsAt = nil
}

// AppendChat adds a message to the lobby chat log. Chat never touches slot
// or status state and is accepted in any non-finished status.
func AppendChat(l *domain.Lobby, user *domain.User, text string) error {
	if l.Status == domain.StatusFinished {
		return domain.ErrInvalidState("lobby is finished")
	}
	if err := domain.ValidateChatMessage(text); err != nil {
		return err
	}
	l.Chat = append(l.Chat, domain.ChatMessage{
		UserID:    user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		Message:   text,
		SentAt:    now(),
	})
	return nil
}

// mutable rejects slot/spectator/ready mutation once the match has started.
func mutable(l *domain.Lobby) error {
	switch l.Status {
	case domain.StatusInProgress:
		return domain.ErrInvalidState("the game is in progress")
	case domain.StatusFinished:
		return domain.ErrInvalidState("lobby is finished")
	}
	return nil
}

// refreshCountdown enforces the countdown invariant: status is countdown iff
// every slot is occupied and every occupant is ready. Any mutation breaking
// the condition reverts to waiting and clears the countdown timestamp.
func refreshCountdown(l *domain.Lobby) {
	if l.Status != domain.StatusWaiting && l.Status != domain.StatusCountdown {
		return
	}
	if len(l.Slots) > 0 && l.IsFull() && l.AllReady() {
		if l.Status != domain.StatusCountdown {
			l.Status = domain.StatusCountdown
			t := now()
			l.CountdownStartsAt = &t
		}
		return
	}
	l.Status = domain.StatusWaiting
	l.CountdownStartsAt = nil
}
