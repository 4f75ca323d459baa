package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matchpoint/arena/internal/auth"
	"github.com/matchpoint/arena/internal/domain"
	"github.com/matchpoint/arena/internal/service"
)

// LobbyHandler exposes the lobby command surface over HTTP.
type LobbyHandler struct {
	lobbies *service.LobbyService
}

// NewLobbyHandler creates a LobbyHandler.
func NewLobbyHandler(lobbies *service.LobbyService) *LobbyHandler {
	return &LobbyHandler{lobbies: lobbies}
}

// List handles GET /lobbies.
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	lobbies, err := h.lobbies.ListActive(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	if lobbies == nil {
		lobbies = []domain.Lobby{}
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"lobbies": lobbies})
}

// Create handles POST /lobbies.
func (h *LobbyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var cfg domain.LobbyConfig
	if err := DecodeJSON(r, &cfg); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	l, err := h.lobbies.Create(r.Context(), userID, cfg)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, l)
}

// Get handles GET /lobbies/{lobbyID}.
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	lobbyID, err := lobbyIDFromURL(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	l, err := h.lobbies.Get(r.Context(), lobbyID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, l)
}

// Delete handles DELETE /lobbies/{lobbyID} (host-only, finished lobbies).
func (h *LobbyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, lobbyID, err := idsFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	if err := h.lobbies.Delete(r.Context(), lobbyID, userID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type joinRequest struct {
	AsSpectator bool   `json:"as_spectator"`
	Password    string `json:"password"`
}

// Join handles POST /lobbies/{lobbyID}/join.
func (h *LobbyHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, lobbyID, err := idsFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req joinRequest
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &req); err != nil {
			RespondError(w, domain.ErrValidation("invalid request body"))
			return
		}
	}

	l, err := h.lobbies.Join(r.Context(), lobbyID, userID, req.AsSpectator, req.Password)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, l)
}

type occupyRequest struct {
	Team     string `json:"team"`
	Position int    `json:"position"`
}

// Occupy handles POST /lobbies/{lobbyID}/occupy.
func (h *LobbyHandler) Occupy(w http.ResponseWriter, r *http.Request) {
	userID, lobbyID, err := idsFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req occupyRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	l, err := h.lobbies.Occupy(r.Context(), lobbyID, userID, req.Team, req.Position)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, l)
}

// Vacate handles POST /lobbies/{lobbyID}/vacate.
func (h *LobbyHandler) Vacate(w http.ResponseWriter, r *http.Request) {
	userID, lobbyID, err := idsFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	l, err := h.lobbies.Vacate(r.Context(), lobbyID, userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, l)
}

// Leave handles POST /lobbies/{lobbyID}/leave.
func (h *LobbyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, lobbyID, err := idsFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	if err := h.lobbies.Leave(r.Context(), lobbyID, userID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

type kickRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// Kick handles POST /lobbies/{lobbyID}/kick.
func (h *LobbyHandler) Kick(w http.ResponseWriter, r *http.Request) {
	userID, lobbyID, err := idsFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req kickRequest
	if err := DecodeJSON(r, &req); err != nil || req.UserID == uuid.Nil {
		RespondError(w, domain.ErrValidation("user_id is required"))
		return
	}

	l, err := h.lobbies.Kick(r.Context(), lobbyID, userID, req.UserID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, l)
}

// Ready handles POST /lobbies/{lobbyID}/ready.
func (h *LobbyHandler) Ready(w http.ResponseWriter, r *http.Request) {
	userID, lobbyID, err := idsFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	l, err := h.lobbies.Ready(r.Context(), lobbyID, userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, l)
}

// Start handles POST /lobbies/{lobbyID}/start.
func (h *LobbyHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, lobbyID, err := idsFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	l, err := h.lobbies.Start(r.Context(), lobbyID, userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, l)
}

type winnerRequest struct {
	Team string `json:"team"`
}

// winnerResponse pairs the settled lobby with its settlement report.
type winnerResponse struct {
	Lobby      *domain.Lobby            `json:"lobby"`
	Settlement *domain.SettlementReport `json:"settlement"`
}

// DeclareWinner handles POST /lobbies/{lobbyID}/winner.
func (h *LobbyHandler) DeclareWinner(w http.ResponseWriter, r *http.Request) {
	userID, lobbyID, err := idsFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req winnerRequest
	if err := DecodeJSON(r, &req); err != nil || req.Team == "" {
		RespondError(w, domain.ErrValidation("team is required"))
		return
	}

	report, l, err := h.lobbies.DeclareWinner(r.Context(), lobbyID, userID, req.Team)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, winnerResponse{Lobby: l, Settlement: report})
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat handles POST /lobbies/{lobbyID}/chat.
func (h *LobbyHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, lobbyID, err := idsFromRequest(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req chatRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	l, err := h.lobbies.Chat(r.Context(), lobbyID, userID, req.Message)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, l)
}

// Session handles GET /session: the caller's current lobby, if any.
func (h *LobbyHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	l, err := h.lobbies.CurrentLobby(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"lobby": l})
}

func idsFromRequest(r *http.Request) (userID, lobbyID uuid.UUID, err error) {
	if userID, err = userIDFromContext(r); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if lobbyID, err = lobbyIDFromURL(r); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, lobbyID, nil
}

func lobbyIDFromURL(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "lobbyID"))
	if err != nil {
		return uuid.Nil, domain.ErrValidation("invalid lobby id")
	}
	return id, nil
}

// userIDFromContext extracts and validates the user UUID from auth context.
func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	sub := auth.SubjectFromContext(r.Context())
	if sub == "" {
		return uuid.Nil, domain.ErrUnauthorized("no subject in context")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, domain.ErrUnauthorized("invalid subject")
	}
	return id, nil
}
