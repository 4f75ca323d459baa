package handler

import (
	"net/http"
	"strconv"

	"github.com/matchpoint/arena/internal/domain"
	"github.com/matchpoint/arena/internal/service"
)

// WalletHandler handles wallet balance and transaction endpoints.
type WalletHandler struct {
	wallet *service.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallet *service.WalletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// balanceResponse is the shape of GET /wallet/balance.
type balanceResponse struct {
	Balance int64 `json:"balance"`
}

// GetBalance handles GET /wallet/balance.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	balance, err := h.wallet.Balance(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

// txListResponse wraps a list of transactions with cursor.
type txListResponse struct {
	Transactions []domain.Transaction `json:"transactions"`
	NextCursor   *string              `json:"next_cursor,omitempty"`
}

// GetTransactions handles GET /wallet/transactions with cursor-based pagination.
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	txs, err := h.wallet.Transactions(r.Context(), userID, cursor, limit+1)
	if err != nil {
		RespondError(w, err)
		return
	}

	resp := txListResponse{Transactions: txs}
	if len(txs) > limit {
		resp.Transactions = txs[:limit]
		nextID := txs[limit].ID.String()
		resp.NextCursor = &nextID
	}
	if resp.Transactions == nil {
		resp.Transactions = []domain.Transaction{}
	}

	RespondJSON(w, http.StatusOK, resp)
}

// GetLobbySettlement handles GET /lobbies/{lobbyID}/settlement: every ledger
// entry posted for the lobby, in posting order.
func (h *WalletHandler) GetLobbySettlement(w http.ResponseWriter, r *http.Request) {
	lobbyID, err := lobbyIDFromURL(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	txs, err := h.wallet.LobbySettlement(r.Context(), lobbyID)
	if err != nil {
		RespondError(w, err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}
