package lobby

import (
	"context"
	"sync"
	"time"

	"gamelobby/backend/internal/models"
)

// MemoryStore is an in-process Store used by tests and local development.
// A single mutex serializes every operation, which makes the membership
// set-add and set-remove atomic the same way the SQL store's unique index
// and single-row deletes do. It also carries rooms and chat history, so it
// doubles as the room handlers' store in tests.
type MemoryStore struct {
	mu       sync.Mutex
	lobbies  map[uint]*models.Lobby
	rooms    map[uint]*models.Room
	messages map[uint][]models.Message

	nextLobbyID   uint
	nextMemberID  uint
	nextRoomID    uint
	nextMessageID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lobbies:  make(map[uint]*models.Lobby),
		rooms:    make(map[uint]*models.Room),
		messages: make(map[uint][]models.Message),
	}
}

func (s *MemoryStore) CreateLobby(_ context.Context, lobby *models.Lobby) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLobbyID++
	lobby.ID = s.nextLobbyID
	lobby.CreatedAt = time.Now()
	for i := range lobby.Members {
		s.nextMemberID++
		lobby.Members[i].ID = s.nextMemberID
		lobby.Members[i].LobbyID = lobby.ID
		lobby.Members[i].CreatedAt = time.Now()
	}

	stored := cloneLobby(lobby)
	s.lobbies[lobby.ID] = stored
	return nil
}

func (s *MemoryStore) LobbyByID(_ context.Context, id uint) (*models.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby, ok := s.lobbies[id]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	return cloneLobby(lobby), nil
}

func (s *MemoryStore) LobbyByCode(_ context.Context, code string) (*models.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fallback *models.Lobby
	for _, lobby := range s.lobbies {
		if lobby.LobbyCode != code {
			continue
		}
		if lobby.IsActive {
			return cloneLobby(lobby), nil
		}
		fallback = lobby
	}
	if fallback != nil {
		return cloneLobby(fallback), nil
	}
	return nil, ErrLobbyNotFound
}

func (s *MemoryStore) CodeInUse(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lobby := range s.lobbies {
		if lobby.IsActive && lobby.LobbyCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) AddMember(_ context.Context, member *models.LobbyMember) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby, ok := s.lobbies[member.LobbyID]
	if !ok {
		return false, ErrLobbyNotFound
	}
	for _, m := range lobby.Members {
		if m.UserID == member.UserID {
			return false, nil
		}
	}

	s.nextMemberID++
	member.ID = s.nextMemberID
	member.CreatedAt = time.Now()
	lobby.Members = append(lobby.Members, *member)
	return true, nil
}

func (s *MemoryStore) RemoveMember(_ context.Context, lobbyID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby, ok := s.lobbies[lobbyID]
	if !ok {
		return false, ErrLobbyNotFound
	}
	for i, m := range lobby.Members {
		if m.UserID == userID {
			lobby.Members = append(lobby.Members[:i], lobby.Members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CloseLobby(_ context.Context, lobbyID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby, ok := s.lobbies[lobbyID]
	if !ok {
		return ErrLobbyNotFound
	}
	lobby.IsActive = false
	return nil
}

func (s *MemoryStore) CreateRoom(_ context.Context, lobby *models.Lobby) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.lobbies[lobby.ID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	// Only the first start request through the lock lands the backlink;
	// a racing duplicate finds it set and creates nothing.
	if stored.RoomID != nil {
		return nil, ErrAlreadyStarted
	}

	s.nextRoomID++
	room := &models.Room{
		LobbyID: stored.ID,
		HostID:  stored.HostID,
		Status:  models.RoomStatusWaiting,
	}
	room.ID = s.nextRoomID
	room.CreatedAt = time.Now()
	for _, m := range stored.Members {
		room.Members = append(room.Members, models.RoomMember{
			RoomID:      room.ID,
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			IsHost:      m.IsHost,
		})
	}

	s.rooms[room.ID] = room
	roomID := room.ID
	stored.RoomID = &roomID

	out := *room
	out.Members = append([]models.RoomMember(nil), room.Members...)
	return &out, nil
}

func (s *MemoryStore) RoomByID(_ context.Context, id uint) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := *room
	out.Members = append([]models.RoomMember(nil), room.Members...)
	return &out, nil
}

func (s *MemoryStore) UpdateRoomStatus(_ context.Context, roomID uint, status models.RoomStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	room.Status = status
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[message.RoomID]; !ok {
		return ErrRoomNotFound
	}

	s.nextMessageID++
	message.ID = s.nextMessageID
	message.CreatedAt = time.Now()
	s.messages[message.RoomID] = append(s.messages[message.RoomID], *message)
	return nil
}

// Messages returns one page of the room's history in append order, which
// matches the SQL store's ordering by server timestamp. limit <= 0 returns
// everything.
func (s *MemoryStore) Messages(_ context.Context, roomID uint, offset, limit int) ([]models.Message, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.messages[roomID]
	total := int64(len(all))

	if limit <= 0 {
		offset, limit = 0, len(all)
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	out := append([]models.Message(nil), all[offset:end]...)
	return out, total, nil
}

// LobbyCount is used by tests to assert that failed operations created
// no documents.
func (s *MemoryStore) LobbyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lobbies)
}

func cloneLobby(lobby *models.Lobby) *models.Lobby {
	out := *lobby
	out.Members = append([]models.LobbyMember(nil), lobby.Members...)
	if lobby.RoomID != nil {
		id := *lobby.RoomID
		out.RoomID = &id
	}
	return &out
}
