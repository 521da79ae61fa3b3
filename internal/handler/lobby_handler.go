package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"gamelobby/backend/internal/hub"
	"gamelobby/backend/internal/lobby"
	"gamelobby/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// JoinLobbyInput carries the short shareable code of the lobby to join.
type JoinLobbyInput struct {
	Code string `json:"code" binding:"required" example:"QTXB"`
}

// LobbyMemberResponse is one entry of a lobby roster, in join order.
type LobbyMemberResponse struct {
	ID          uint   `json:"id" example:"1"`
	DisplayName string `json:"display_name" example:"alice"`
	IsHost      bool   `json:"is_host" example:"true"`
}

// LobbyResponse is the full decoded lobby snapshot pushed to subscribers
// and returned from lobby endpoints.
type LobbyResponse struct {
	ID        uint                  `json:"id" example:"1"`
	Name      string                `json:"name" example:"alice's Lobby"`
	LobbyCode string                `json:"lobby_code" example:"QTXB"`
	HostID    uint                  `json:"host_id" example:"1"`
	IsActive  bool                  `json:"is_active" example:"true"`
	RoomID    *uint                 `json:"room_id"`
	CreatedAt time.Time             `json:"created_at"`
	Members   []LobbyMemberResponse `json:"members"`
}

func newLobbyResponse(l models.Lobby) LobbyResponse {
	members := make([]LobbyMemberResponse, 0, len(l.Members))
	for _, m := range l.Members {
		members = append(members, LobbyMemberResponse{
			ID:          m.UserID,
			DisplayName: m.DisplayName,
			IsHost:      m.IsHost,
		})
	}

	return LobbyResponse{
		ID:        l.ID,
		Name:      l.Name,
		LobbyCode: l.LobbyCode,
		HostID:    l.HostID,
		IsActive:  l.IsActive,
		RoomID:    l.RoomID,
		CreatedAt: l.CreatedAt,
		Members:   members,
	}
}

// endregion

// LobbyHandler serves lobby lifecycle endpoints and the lobby event stream.
type LobbyHandler struct {
	Svc   *lobby.Service
	Hub   *hub.Hub
	Users UserSource
}

func NewLobbyHandler(svc *lobby.Service, h *hub.Hub, users UserSource) *LobbyHandler {
	return &LobbyHandler{Svc: svc, Hub: h, Users: users}
}

// CreateLobby godoc
// @Summary      Create a new lobby
// @Description  Creates a lobby with a fresh code, making the creator the host and sole member.
// @Tags         lobbies
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  LobbyResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /lobbies [post]
func (h *LobbyHandler) CreateLobby(c *gin.Context) {
	userID := c.GetUint("userID")

	displayName, err := h.Users.DisplayName(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	created, err := h.Svc.Create(c.Request.Context(), lobby.Member{UserID: userID, DisplayName: displayName})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create lobby"})
		return
	}

	c.JSON(http.StatusCreated, newLobbyResponse(*created))
}

// JoinLobby godoc
// @Summary      Join a lobby by code
// @Description  Adds the caller to the lobby matching the code. Joining a lobby the caller is already in is a no-op.
// @Tags         lobbies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body JoinLobbyInput true "Lobby code"
// @Success      200  {object}  LobbyResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "Lobby not found"
// @Failure      409  {object}  ErrorResponse "Lobby is no longer active"
// @Router       /lobbies/join [post]
func (h *LobbyHandler) JoinLobby(c *gin.Context) {
	userID := c.GetUint("userID")

	var input JoinLobbyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	displayName, err := h.Users.DisplayName(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	joined, added, err := h.Svc.Join(c.Request.Context(), input.Code, lobby.Member{UserID: userID, DisplayName: displayName})
	switch {
	case errors.Is(err, lobby.ErrLobbyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found. Please check the code and try again."})
		return
	case errors.Is(err, lobby.ErrLobbyClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "This lobby is no longer active."})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join lobby"})
		return
	}

	if added {
		h.Hub.Broadcast(hub.LobbyTopic(joined.ID), hub.Event{
			Type:    hub.EventLobbyUpdated,
			Payload: newLobbyResponse(*joined),
		})
	}

	c.JSON(http.StatusOK, newLobbyResponse(*joined))
}

// GetLobbyByID godoc
// @Summary      Get a lobby by ID
// @Tags         lobbies
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Lobby ID"
// @Success      200 {object} LobbyResponse
// @Failure      404 {object} ErrorResponse "Lobby not found"
// @Router       /lobbies/{id} [get]
func (h *LobbyHandler) GetLobbyByID(c *gin.Context) {
	lobbyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lobby ID"})
		return
	}

	found, err := h.Svc.Get(c.Request.Context(), uint(lobbyID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
		return
	}

	c.JSON(http.StatusOK, newLobbyResponse(*found))
}

// GetLobbyByCode godoc
// @Summary      Look up a lobby by its code
// @Description  Public lookup so a prospective member can see the roster before joining.
// @Tags         lobbies
// @Produce      json
// @Param        code path string true "Lobby code"
// @Success      200 {object} LobbyResponse
// @Failure      404 {object} ErrorResponse "Lobby not found"
// @Router       /lobbies/code/{code} [get]
func (h *LobbyHandler) GetLobbyByCode(c *gin.Context) {
	found, err := h.Svc.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
		return
	}

	c.JSON(http.StatusOK, newLobbyResponse(*found))
}

// LeaveLobby godoc
// @Summary      Leave a lobby
// @Description  Removes the caller from the lobby. A departing host closes the lobby instead; the roster is kept.
// @Tags         lobbies
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Lobby ID"
// @Success      200 {object} map[string]string "{"message": "Left lobby successfully"}"
// @Failure      404 {object} ErrorResponse "Lobby not found or user is not a member"
// @Router       /lobbies/{id}/leave [post]
func (h *LobbyHandler) LeaveLobby(c *gin.Context) {
	userID := c.GetUint("userID")

	lobbyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lobby ID"})
		return
	}

	left, err := h.Svc.Leave(c.Request.Context(), uint(lobbyID), userID)
	switch {
	case errors.Is(err, lobby.ErrLobbyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
		return
	case errors.Is(err, lobby.ErrNotMember):
		c.JSON(http.StatusNotFound, gin.H{"error": "User is not in this lobby"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave lobby"})
		return
	}

	eventType := hub.EventLobbyUpdated
	if !left.IsActive {
		eventType = hub.EventLobbyClosed
	}
	h.Hub.Broadcast(hub.LobbyTopic(left.ID), hub.Event{
		Type:    eventType,
		Payload: newLobbyResponse(*left),
	})

	c.JSON(http.StatusOK, gin.H{"message": "Left lobby successfully"})
}

// StartGame godoc
// @Summary      Start the game (host only)
// @Description  Creates a room seeded with a snapshot of the lobby roster and links the lobby to it.
// @Tags         lobbies
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Lobby ID"
// @Success      201 {object} RoomResponse
// @Failure      403 {object} ErrorResponse "Only the host can start the game"
// @Failure      404 {object} ErrorResponse "Lobby not found"
// @Failure      409 {object} ErrorResponse "Game already started or lobby closed"
// @Router       /lobbies/{id}/start [post]
func (h *LobbyHandler) StartGame(c *gin.Context) {
	userID := c.GetUint("userID")

	lobbyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lobby ID"})
		return
	}

	room, started, err := h.Svc.Start(c.Request.Context(), uint(lobbyID), userID)
	switch {
	case errors.Is(err, lobby.ErrLobbyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
		return
	case errors.Is(err, lobby.ErrNotHost):
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the host can start the game"})
		return
	case errors.Is(err, lobby.ErrAlreadyStarted):
		c.JSON(http.StatusConflict, gin.H{"error": "Game already started"})
		return
	case errors.Is(err, lobby.ErrLobbyClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "This lobby is no longer active."})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start game"})
		return
	}

	h.Hub.Broadcast(hub.LobbyTopic(started.ID), hub.Event{
		Type:    hub.EventLobbyStarted,
		Payload: newLobbyResponse(*started),
	})

	c.JSON(http.StatusCreated, newRoomResponse(*room))
}

// LobbyEvents godoc
// @Summary      Subscribe to lobby updates (SSE)
// @Description  Streams lobby snapshots as server-sent events. The current snapshot is sent immediately; lobby.closed signals the lobby is gone.
// @Tags         lobbies
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id path int true "Lobby ID"
// @Failure      404 {object} ErrorResponse "Lobby not found"
// @Router       /lobbies/{id}/events [get]
func (h *LobbyHandler) LobbyEvents(c *gin.Context) {
	lobbyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lobby ID"})
		return
	}

	current, err := h.Svc.Get(c.Request.Context(), uint(lobbyID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
		return
	}

	topic := hub.LobbyTopic(current.ID)
	client := make(hub.Client, 16)
	h.Hub.Subscribe(topic, client)
	defer h.Hub.Unsubscribe(topic, client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Replay the current snapshot so a new subscriber is consistent before
	// the first live event arrives.
	initialType := hub.EventLobbyUpdated
	if !current.IsActive {
		initialType = hub.EventLobbyClosed
	}
	c.SSEvent("message", hub.Event{Type: initialType, Payload: newLobbyResponse(*current)})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
