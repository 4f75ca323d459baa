//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matchpoint/arena/test/integration/testutil"
)

func TestWalletBalance(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.SeedUser("rich", 12345)

	var body struct {
		Balance int64 `json:"balance"`
	}
	resp := env.AuthGET("/wallet/balance", token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &body)
	if body.Balance != 12345 {
		t.Errorf("expected balance 12345, got %d", body.Balance)
	}

	resp = env.GET("/wallet/balance")
	testutil.AssertStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestWalletTransactions_Pagination(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, userID := env.SeedUser("pager", 10000)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Five entries with distinct timestamps so the cursor order is stable.
	for i := 0; i < 5; i++ {
		_, err := env.Pool.Exec(ctx, `
			INSERT INTO transactions
			  (user_id, type, amount, balance_after, reference, created_at)
			VALUES ($1, 'settlement_credit', 100, $2, $3, now() - make_interval(secs => $4))`,
			userID, 10000+int64(i)*100, fmt.Sprintf("seed-%d", i), 5-i)
		if err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
	}

	type page struct {
		Transactions []struct {
			ID           uuid.UUID `json:"id"`
			Amount       int64     `json:"amount"`
			BalanceAfter int64     `json:"balance_after"`
		} `json:"transactions"`
		NextCursor *string `json:"next_cursor"`
	}

	var first page
	resp := env.AuthGET("/wallet/transactions?limit=2", token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &first)
	if len(first.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(first.Transactions))
	}
	if first.NextCursor == nil {
		t.Fatal("expected next_cursor on first page")
	}
	// Newest first.
	if first.Transactions[0].BalanceAfter != 10400 {
		t.Errorf("expected newest entry first (balance_after 10400), got %d",
			first.Transactions[0].BalanceAfter)
	}

	var second page
	resp = env.AuthGET("/wallet/transactions?limit=2&cursor="+*first.NextCursor, token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &second)
	if len(second.Transactions) != 2 {
		t.Fatalf("expected 2 transactions on second page, got %d", len(second.Transactions))
	}
	if second.Transactions[0].ID != uuid.MustParse(*first.NextCursor) {
		t.Error("second page must start at the cursor entry")
	}
	if second.Transactions[0].ID == first.Transactions[0].ID ||
		second.Transactions[0].ID == first.Transactions[1].ID {
		t.Error("pages overlap")
	}
}

func TestWalletTransactions_Empty(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.SeedUser("fresh", 0)

	var body struct {
		Transactions []interface{} `json:"transactions"`
		NextCursor   *string       `json:"next_cursor"`
	}
	resp := env.AuthGET("/wallet/transactions", token)
	testutil.AssertStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &body)
	if body.Transactions == nil || len(body.Transactions) != 0 {
		t.Errorf("expected empty transactions array, got %v", body.Transactions)
	}
	if body.NextCursor != nil {
		t.Errorf("expected no cursor, got %v", *body.NextCursor)
	}
}

// Four players, 2v2, 1000 cents each. Team B wins: the two A players pay
// 1000 each and the two B players collect 1000 each. The sum of all
// balances before and after must match.
func TestSettlement_ConservesMoney(t *testing.T) {
	env := testutil.NewTestEnv(t)

	hostToken, hostID := env.SeedUser("s-host", 5000)
	tokens := []string{hostToken}
	ids := []uuid.UUID{hostID}
	for i := 1; i < 4; i++ {
		tok, id := env.SeedUser(fmt.Sprintf("s-p%d", i), 5000)
		tokens = append(tokens, tok)
		ids = append(ids, id)
	}

	lobbyID := env.CreateLobby(hostToken, map[string]interface{}{
		"title": "squad", "game": "g", "mode": "2v2", "region": "eu", "entry_fee": 1000,
	})

	// Host sits in A1 already; the rest fill A2, B1, B2 in join order.
	for _, tok := range tokens[1:] {
		resp := env.AuthPOST(testutil.LobbyPath(lobbyID, "join"), nil, tok)
		testutil.AssertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
	for _, tok := range tokens {
		resp := env.AuthPOST(testutil.LobbyPath(lobbyID, "ready"), nil, tok)
		testutil.AssertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
	resp := env.AuthPOST(testutil.LobbyPath(lobbyID, "start"), nil, hostToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	var result struct {
		Settlement struct {
			TotalDebited  int64 `json:"total_debited"`
			TotalCredited int64 `json:"total_credited"`
		} `json:"settlement"`
	}
	resp = env.AuthPOST(testutil.LobbyPath(lobbyID, "winner"), map[string]string{"team": "B"}, hostToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &result)

	if result.Settlement.TotalDebited != 2000 || result.Settlement.TotalCredited != 2000 {
		t.Errorf("expected 2000 debited and 2000 credited, got %d/%d",
			result.Settlement.TotalDebited, result.Settlement.TotalCredited)
	}

	// A players (host, p1) lose; B players (p2, p3) win.
	testutil.AssertBalance(t, env, ids[0], 4000)
	testutil.AssertBalance(t, env, ids[1], 4000)
	testutil.AssertBalance(t, env, ids[2], 6000)
	testutil.AssertBalance(t, env, ids[3], 6000)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var total int64
	if err := env.Pool.QueryRow(ctx, "SELECT COALESCE(SUM(balance), 0) FROM users").Scan(&total); err != nil {
		t.Fatalf("sum balances: %v", err)
	}
	if total != 20000 {
		t.Errorf("money not conserved: total balance %d, expected 20000", total)
	}

	// One ledger entry per player, each pinned to the lobby, plus outbox
	// events for the wallet postings.
	for i, id := range ids {
		if n := testutil.CountTransactions(t, env, id); n != 1 {
			t.Errorf("player %d: expected 1 transaction, got %d", i, n)
		}
		if n := testutil.CountOutboxEvents(t, env, id.String()); n != 1 {
			t.Errorf("player %d: expected 1 wallet outbox event, got %d", i, n)
		}
	}

	var linked int
	if err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM transactions WHERE lobby_id = $1", lobbyID).Scan(&linked); err != nil {
		t.Fatalf("count lobby transactions: %v", err)
	}
	if linked != 4 {
		t.Errorf("expected 4 transactions linked to lobby, got %d", linked)
	}

	var ledger struct {
		Transactions []struct {
			Type   string `json:"type"`
			Amount int64  `json:"amount"`
		} `json:"transactions"`
	}
	resp = env.AuthGET(testutil.LobbyPath(lobbyID, "settlement"), hostToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &ledger)
	if len(ledger.Transactions) != 4 {
		t.Fatalf("expected 4 settlement entries, got %d", len(ledger.Transactions))
	}
	for _, entry := range ledger.Transactions {
		if entry.Amount != 1000 {
			t.Errorf("expected amount 1000, got %d (%s)", entry.Amount, entry.Type)
		}
	}
}

// A free lobby settles without moving any money.
func TestSettlement_FreeLobby(t *testing.T) {
	env := testutil.NewTestEnv(t)
	hostToken, hostID := env.SeedUser("f-host", 0)
	guestToken, guestID := env.SeedUser("f-guest", 0)

	lobbyID := env.CreateLobby(hostToken, map[string]interface{}{
		"title": "casual", "game": "g", "mode": "1v1", "region": "eu",
	})

	resp := env.AuthPOST(testutil.LobbyPath(lobbyID, "join"), nil, guestToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	for _, tok := range []string{hostToken, guestToken} {
		resp = env.AuthPOST(testutil.LobbyPath(lobbyID, "ready"), nil, tok)
		testutil.AssertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
	resp = env.AuthPOST(testutil.LobbyPath(lobbyID, "start"), nil, hostToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	var result struct {
		Lobby struct {
			Status string `json:"status"`
		} `json:"lobby"`
		Settlement struct {
			TotalDebited  int64 `json:"total_debited"`
			TotalCredited int64 `json:"total_credited"`
		} `json:"settlement"`
	}
	resp = env.AuthPOST(testutil.LobbyPath(lobbyID, "winner"), map[string]string{"team": "B"}, hostToken)
	testutil.AssertStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &result)

	if result.Lobby.Status != "finished" {
		t.Errorf("expected finished, got %s", result.Lobby.Status)
	}
	if result.Settlement.TotalDebited != 0 || result.Settlement.TotalCredited != 0 {
		t.Errorf("expected no money moved, got %d/%d",
			result.Settlement.TotalDebited, result.Settlement.TotalCredited)
	}
	if n := testutil.CountTransactions(t, env, hostID); n != 0 {
		t.Errorf("host: expected 0 transactions, got %d", n)
	}
	if n := testutil.CountTransactions(t, env, guestID); n != 0 {
		t.Errorf("guest: expected 0 transactions, got %d", n)
	}
}
