package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gamelobby/backend/internal/hub"
	"gamelobby/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

// MessageInput carries the text of a chat message to append.
type MessageInput struct {
	Text string `json:"text" binding:"required,max=500" example:"hello everyone"`
}

// RoomStatusInput carries the status a host wants the room to move to.
type RoomStatusInput struct {
	Status models.RoomStatus `json:"status" binding:"required,oneof=active completed" example:"active"`
}

// RoomMemberResponse is one entry of the member snapshot taken at start.
type RoomMemberResponse struct {
	ID          uint   `json:"id" example:"1"`
	DisplayName string `json:"display_name" example:"alice"`
	IsHost      bool   `json:"is_host" example:"true"`
}

// RoomResponse is the decoded room entity.
type RoomResponse struct {
	ID        uint                 `json:"id" example:"1"`
	LobbyID   uint                 `json:"lobby_id" example:"1"`
	HostID    uint                 `json:"host_id" example:"1"`
	Status    models.RoomStatus    `json:"status" example:"waiting"`
	CreatedAt time.Time            `json:"created_at"`
	Members   []RoomMemberResponse `json:"members"`
}

func newRoomResponse(r models.Room) RoomResponse {
	members := make([]RoomMemberResponse, 0, len(r.Members))
	for _, m := range r.Members {
		members = append(members, RoomMemberResponse{
			ID:          m.UserID,
			DisplayName: m.DisplayName,
			IsHost:      m.IsHost,
		})
	}

	return RoomResponse{
		ID:        r.ID,
		LobbyID:   r.LobbyID,
		HostID:    r.HostID,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		Members:   members,
	}
}

// MessageResponse is one chat message, timestamped by the server.
type MessageResponse struct {
	ID          uint      `json:"id" example:"1"`
	RoomID      uint      `json:"room_id" example:"1"`
	UserID      uint      `json:"uid" example:"1"`
	DisplayName string    `json:"display_name" example:"alice"`
	Text        string    `json:"text" example:"hello everyone"`
	CreatedAt   time.Time `json:"created_at"`
}

func newMessageResponse(m models.Message) MessageResponse {
	return MessageResponse{
		ID:          m.ID,
		RoomID:      m.RoomID,
		UserID:      m.UserID,
		DisplayName: m.DisplayName,
		Text:        m.Text,
		CreatedAt:   m.CreatedAt,
	}
}

// endregion

// RoomHandler serves room state, chat messages and the room event stream.
type RoomHandler struct {
	Store RoomStore
	Hub   *hub.Hub
}

func NewRoomHandler(store RoomStore, h *hub.Hub) *RoomHandler {
	return &RoomHandler{Store: store, Hub: h}
}

func (h *RoomHandler) loadRoom(c *gin.Context) (*models.Room, bool) {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return nil, false
	}

	room, err := h.Store.RoomByID(c.Request.Context(), uint(roomID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return nil, false
	}
	return room, true
}

func roomMember(room *models.Room, userID uint) *models.RoomMember {
	for i := range room.Members {
		if room.Members[i].UserID == userID {
			return &room.Members[i]
		}
	}
	return nil
}

// GetRoom godoc
// @Summary      Get a room by ID
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200 {object} RoomResponse
// @Failure      404 {object} ErrorResponse "Room not found"
// @Router       /rooms/{id} [get]
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, ok := h.loadRoom(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newRoomResponse(*room))
}

// UpdateRoomStatus godoc
// @Summary      Advance a room's status (host only)
// @Description  Moves the room through waiting → active → completed. Other transitions are rejected.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int             true "Room ID"
// @Param        input body RoomStatusInput true "Target status"
// @Success      200 {object} RoomResponse
// @Failure      403 {object} ErrorResponse "Only the host can change the room status"
// @Failure      404 {object} ErrorResponse "Room not found"
// @Failure      409 {object} ErrorResponse "Invalid status transition"
// @Router       /rooms/{id}/status [patch]
func (h *RoomHandler) UpdateRoomStatus(c *gin.Context) {
	var input RoomStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, ok := h.loadRoom(c)
	if !ok {
		return
	}

	userID := c.GetUint("userID")
	if room.HostID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the host can change the room status"})
		return
	}

	validNext := room.Status == models.RoomStatusWaiting && input.Status == models.RoomStatusActive ||
		room.Status == models.RoomStatusActive && input.Status == models.RoomStatusCompleted
	if !validNext {
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid status transition"})
		return
	}

	if err := h.Store.UpdateRoomStatus(c.Request.Context(), room.ID, input.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update room status"})
		return
	}
	room.Status = input.Status

	h.Hub.Broadcast(hub.RoomTopic(room.ID), hub.Event{
		Type:    hub.EventRoomStatus,
		Payload: newRoomResponse(*room),
	})

	c.JSON(http.StatusOK, newRoomResponse(*room))
}

// SendMessage godoc
// @Summary      Send a chat message
// @Description  Appends a message with a server-assigned timestamp and pushes it to room subscribers.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int          true "Room ID"
// @Param        input body MessageInput true "Message text"
// @Success      201 {object} MessageResponse
// @Failure      400 {object} ErrorResponse "Empty or oversized message"
// @Failure      403 {object} ErrorResponse "Sender is not a room member"
// @Failure      404 {object} ErrorResponse "Room not found"
// @Router       /rooms/{id}/messages [post]
func (h *RoomHandler) SendMessage(c *gin.Context) {
	var input MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text := strings.TrimSpace(input.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text cannot be empty"})
		return
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text is too long"})
		return
	}

	room, ok := h.loadRoom(c)
	if !ok {
		return
	}

	userID := c.GetUint("userID")
	sender := roomMember(room, userID)
	if sender == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only room members can send messages"})
		return
	}

	message := models.Message{
		RoomID:      room.ID,
		UserID:      userID,
		DisplayName: sender.DisplayName,
		Text:        text,
	}
	if err := h.Store.AppendMessage(c.Request.Context(), &message); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	h.Hub.Broadcast(hub.RoomTopic(room.ID), hub.Event{
		Type:    hub.EventRoomMessage,
		Payload: newMessageResponse(message),
	})

	c.JSON(http.StatusCreated, newMessageResponse(message))
}

// ListMessages godoc
// @Summary      List messages in a room
// @Description  Returns the room's messages ordered by server timestamp ascending.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int true  "Room ID"
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(50)
// @Success      200 {object} PaginatedResponse[MessageResponse]
// @Failure      404 {object} ErrorResponse "Room not found"
// @Router       /rooms/{id}/messages [get]
func (h *RoomHandler) ListMessages(c *gin.Context) {
	room, ok := h.loadRoom(c)
	if !ok {
		return
	}

	page, limit := pageQuery(c, 50, 200)

	messages, total, err := h.Store.Messages(c.Request.Context(), room.ID, (page-1)*limit, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		return
	}

	responses := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, newMessageResponse(m))
	}

	c.JSON(http.StatusOK, NewPaginatedResponse(responses, total, page, limit))
}

// messageBacklog loads the full ordered history replayed to new subscribers.
func (h *RoomHandler) messageBacklog(ctx context.Context, roomID uint) ([]MessageResponse, error) {
	messages, _, err := h.Store.Messages(ctx, roomID, 0, 0)
	if err != nil {
		return nil, err
	}

	responses := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, newMessageResponse(m))
	}
	return responses, nil
}

// RoomEvents godoc
// @Summary      Subscribe to room updates (SSE)
// @Description  Streams chat messages and status changes. The room snapshot and the ordered message history are sent first, then live events in commit order.
// @Tags         rooms
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Failure      404 {object} ErrorResponse "Room not found"
// @Router       /rooms/{id}/events [get]
func (h *RoomHandler) RoomEvents(c *gin.Context) {
	room, ok := h.loadRoom(c)
	if !ok {
		return
	}

	topic := hub.RoomTopic(room.ID)
	client := make(hub.Client, 16)
	h.Hub.Subscribe(topic, client)
	defer h.Hub.Unsubscribe(topic, client)

	// Subscribe before reading the backlog: a message committed in between
	// shows up twice rather than getting lost, and clients dedupe by id.
	backlog, err := h.messageBacklog(c.Request.Context(), room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", hub.Event{Type: hub.EventRoomStatus, Payload: newRoomResponse(*room)})
	c.SSEvent("message", hub.Event{Type: hub.EventRoomHistory, Payload: backlog})
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
