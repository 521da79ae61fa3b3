package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"gamelobby/backend/internal/hub"
	"gamelobby/backend/internal/lobby"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticUsers substitutes the database-backed UserSource in tests.
type staticUsers map[uint]string

func (s staticUsers) DisplayName(_ context.Context, userID uint) (string, error) {
	name, ok := s[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return name, nil
}

// testAuth reads the user id from a header instead of a JWT so tests don't
// need signing secrets.
func testAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader("X-User-ID"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err == nil {
				c.Set("userID", uint(id))
			}
		}
		c.Next()
	}
}

type lobbyTestEnv struct {
	router *gin.Engine
	store  *lobby.MemoryStore
	hub    *hub.Hub
}

func newLobbyTestEnv() *lobbyTestEnv {
	gin.SetMode(gin.TestMode)

	store := lobby.NewMemoryStore()
	eventHub := hub.NewHub()
	h := NewLobbyHandler(lobby.NewService(store), eventHub, staticUsers{1: "Alice", 2: "Bob"})

	router := gin.New()
	router.Use(testAuth())
	router.POST("/lobbies", h.CreateLobby)
	router.POST("/lobbies/join", h.JoinLobby)
	router.GET("/lobbies/:id", h.GetLobbyByID)
	router.GET("/lobbies/code/:code", h.GetLobbyByCode)
	router.POST("/lobbies/:id/leave", h.LeaveLobby)
	router.POST("/lobbies/:id/start", h.StartGame)

	return &lobbyTestEnv{router: router, store: store, hub: eventHub}
}

func (env *lobbyTestEnv) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *lobbyTestEnv) createLobby(t *testing.T) LobbyResponse {
	t.Helper()
	w := env.do(t, "POST", "/lobbies", "1", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp LobbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateLobbyHandler(t *testing.T) {
	env := newLobbyTestEnv()

	created := env.createLobby(t)

	assert.Len(t, created.LobbyCode, lobby.CodeLength)
	assert.Equal(t, uint(1), created.HostID)
	assert.True(t, created.IsActive)
	assert.Nil(t, created.RoomID)
	require.Len(t, created.Members, 1)
	assert.Equal(t, "Alice", created.Members[0].DisplayName)
	assert.True(t, created.Members[0].IsHost)
}

func TestJoinLobbyHandler(t *testing.T) {
	env := newLobbyTestEnv()
	created := env.createLobby(t)

	w := env.do(t, "POST", "/lobbies/join", "2", `{"code":"`+created.LobbyCode+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var joined LobbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	require.Len(t, joined.Members, 2)
	assert.Equal(t, "Alice", joined.Members[0].DisplayName)
	assert.Equal(t, "Bob", joined.Members[1].DisplayName)
	assert.False(t, joined.Members[1].IsHost)
}

func TestJoinLobbyBroadcastsRosterUpdate(t *testing.T) {
	env := newLobbyTestEnv()
	created := env.createLobby(t)

	client := make(hub.Client, 1)
	env.hub.Subscribe(hub.LobbyTopic(created.ID), client)
	defer env.hub.Unsubscribe(hub.LobbyTopic(created.ID), client)

	w := env.do(t, "POST", "/lobbies/join", "2", `{"code":"`+created.LobbyCode+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case msg := <-client:
		var event hub.Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, hub.EventLobbyUpdated, event.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no roster update broadcast after join")
	}
}

func TestJoinLobbyTwiceDoesNotDuplicate(t *testing.T) {
	env := newLobbyTestEnv()
	created := env.createLobby(t)

	env.do(t, "POST", "/lobbies/join", "2", `{"code":"`+created.LobbyCode+`"}`)
	w := env.do(t, "POST", "/lobbies/join", "2", `{"code":"`+created.LobbyCode+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var joined LobbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	assert.Len(t, joined.Members, 2)
}

func TestJoinLobbyUnknownCode(t *testing.T) {
	env := newLobbyTestEnv()
	env.createLobby(t)

	w := env.do(t, "POST", "/lobbies/join", "2", `{"code":"ZZZZ"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, env.store.LobbyCount())
}

func TestJoinClosedLobbyHandler(t *testing.T) {
	env := newLobbyTestEnv()
	created := env.createLobby(t)

	w := env.do(t, "POST", "/lobbies/"+strconv.Itoa(int(created.ID))+"/leave", "1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "POST", "/lobbies/join", "2", `{"code":"`+created.LobbyCode+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLeaveLobbyHandler(t *testing.T) {
	env := newLobbyTestEnv()
	created := env.createLobby(t)
	env.do(t, "POST", "/lobbies/join", "2", `{"code":"`+created.LobbyCode+`"}`)

	w := env.do(t, "POST", "/lobbies/"+strconv.Itoa(int(created.ID))+"/leave", "2", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/lobbies/"+strconv.Itoa(int(created.ID)), "1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var current LobbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	assert.True(t, current.IsActive)
	require.Len(t, current.Members, 1)
	assert.Equal(t, "Alice", current.Members[0].DisplayName)
}

func TestHostLeaveBroadcastsClosed(t *testing.T) {
	env := newLobbyTestEnv()
	created := env.createLobby(t)

	client := make(hub.Client, 1)
	env.hub.Subscribe(hub.LobbyTopic(created.ID), client)
	defer env.hub.Unsubscribe(hub.LobbyTopic(created.ID), client)

	w := env.do(t, "POST", "/lobbies/"+strconv.Itoa(int(created.ID))+"/leave", "1", "")
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case msg := <-client:
		var event hub.Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, hub.EventLobbyClosed, event.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no closed broadcast after host left")
	}
}

func TestStartGameAsNonHost(t *testing.T) {
	env := newLobbyTestEnv()
	created := env.createLobby(t)
	env.do(t, "POST", "/lobbies/join", "2", `{"code":"`+created.LobbyCode+`"}`)

	w := env.do(t, "POST", "/lobbies/"+strconv.Itoa(int(created.ID))+"/start", "2", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "GET", "/lobbies/"+strconv.Itoa(int(created.ID)), "1", "")
	var current LobbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	assert.Nil(t, current.RoomID)
}

func TestStartGameAsHost(t *testing.T) {
	env := newLobbyTestEnv()
	created := env.createLobby(t)
	env.do(t, "POST", "/lobbies/join", "2", `{"code":"`+created.LobbyCode+`"}`)

	w := env.do(t, "POST", "/lobbies/"+strconv.Itoa(int(created.ID))+"/start", "1", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var room RoomResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &room))
	assert.Equal(t, created.ID, room.LobbyID)
	assert.Equal(t, uint(1), room.HostID)
	require.Len(t, room.Members, 2)
	assert.Equal(t, "Alice", room.Members[0].DisplayName)
	assert.Equal(t, "Bob", room.Members[1].DisplayName)

	w = env.do(t, "GET", "/lobbies/"+strconv.Itoa(int(created.ID)), "1", "")
	var current LobbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	require.NotNil(t, current.RoomID)
	assert.Equal(t, room.ID, *current.RoomID)
}

func TestGetLobbyByCodeHandler(t *testing.T) {
	env := newLobbyTestEnv()
	created := env.createLobby(t)

	// Code lookup is public: no user header.
	w := env.do(t, "GET", "/lobbies/code/"+strings.ToLower(created.LobbyCode), "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var found LobbyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	assert.Equal(t, created.ID, found.ID)

	w = env.do(t, "GET", "/lobbies/code/ZZZZ", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
