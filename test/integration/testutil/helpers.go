//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SeedUser inserts a user row directly (accounts come from the identity
// service in production) and returns an auth token plus the user ID.
func (env *TestEnv) SeedUser(username string, balanceCents int64) (token string, userID uuid.UUID) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userID = uuid.New()
	_, err := env.Pool.Exec(ctx, `
		INSERT INTO users (id, username, balance) VALUES ($1, $2, $3)`,
		userID, username, balanceCents)
	if err != nil {
		env.t.Fatalf("SeedUser: insert: %v", err)
	}

	token, err = env.JWTMgr.GenerateToken(userID, username)
	if err != nil {
		env.t.Fatalf("SeedUser: token: %v", err)
	}
	return token, userID
}

// CreateLobby creates a lobby through the API and returns its ID.
func (env *TestEnv) CreateLobby(token string, body map[string]interface{}) uuid.UUID {
	env.t.Helper()
	resp := env.AuthPOST("/lobbies", body, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("CreateLobby: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("CreateLobby: decode: %v", err)
	}
	return result.ID
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("AuthGET %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("AuthGET %s: %v", path, err)
	}
	return resp
}

// AuthPOST performs an authenticated POST request.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.POST(path, body, token)
}

// AuthDELETE performs an authenticated DELETE request.
func (env *TestEnv) AuthDELETE(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("DELETE", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("DELETE %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("DELETE %s: %v", path, err)
	}
	return resp
}

// OPTIONS performs an OPTIONS request.
func (env *TestEnv) OPTIONS(path string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("OPTIONS", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("OPTIONS %s: new request: %v", path, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("OPTIONS %s: %v", path, err)
	}
	return resp
}

// GETWithHeaders performs a GET request with custom headers.
func (env *TestEnv) GETWithHeaders(path string, headers map[string]string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("GETWithHeaders %s: new request: %v", path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("GETWithHeaders %s: %v", path, err)
	}
	return resp
}

// FakeUUID returns a random UUID string for test placeholders.
func FakeUUID() string {
	return uuid.New().String()
}

// LobbyPath builds a lobby command path.
func LobbyPath(lobbyID uuid.UUID, action string) string {
	if action == "" {
		return fmt.Sprintf("/lobbies/%s", lobbyID)
	}
	return fmt.Sprintf("/lobbies/%s/%s", lobbyID, action)
}
