package lobby

import (
	"context"
	"fmt"

	"gamelobby/backend/internal/models"
)

// Member identifies a user taking part in lobby operations.
type Member struct {
	UserID      uint
	DisplayName string
}

// maxCodeAttempts bounds code generation retries when freshly generated
// codes keep colliding with active lobbies.
const maxCodeAttempts = 5

// Service implements lobby reconciliation over an injected Store. It owns
// no state of its own; the store is the single source of truth.
type Service struct {
	store Store

	// genCode is swappable in tests to force collisions.
	genCode func() string
}

func NewService(store Store) *Service {
	return &Service{store: store, genCode: GenerateCode}
}

// Create builds a new lobby with a fresh code and the host as sole member.
// Generated codes are checked against active lobbies and regenerated on
// collision, up to maxCodeAttempts.
func (s *Service) Create(ctx context.Context, host Member) (*models.Lobby, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := s.genCode()

		inUse, err := s.store.CodeInUse(ctx, code)
		if err != nil {
			return nil, err
		}
		if inUse {
			continue
		}

		lobby := &models.Lobby{
			Name:      fmt.Sprintf("%s's Lobby", host.DisplayName),
			LobbyCode: code,
			HostID:    host.UserID,
			IsActive:  true,
			Members: []models.LobbyMember{{
				UserID:      host.UserID,
				DisplayName: host.DisplayName,
				IsHost:      true,
			}},
		}
		if err := s.store.CreateLobby(ctx, lobby); err != nil {
			return nil, err
		}
		return lobby, nil
	}
	return nil, ErrCodeExhausted
}

// Join adds the member to the lobby matching the code. The code is
// normalized before lookup. Joining a lobby the user is already in is a
// no-op; the returned bool reports whether the roster actually changed.
// Closed lobbies reject joins.
func (s *Service) Join(ctx context.Context, code string, member Member) (*models.Lobby, bool, error) {
	lobby, err := s.store.LobbyByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, false, err
	}
	if !lobby.IsActive {
		return nil, false, ErrLobbyClosed
	}

	added, err := s.store.AddMember(ctx, &models.LobbyMember{
		LobbyID:     lobby.ID,
		UserID:      member.UserID,
		DisplayName: member.DisplayName,
		IsHost:      false,
	})
	if err != nil {
		return nil, false, err
	}

	// Re-read so the caller sees the roster including any concurrent joins.
	lobby, err = s.store.LobbyByID(ctx, lobby.ID)
	if err != nil {
		return nil, false, err
	}
	return lobby, added, nil
}

// Leave removes the user from the lobby. A departing host closes the lobby
// instead, leaving the member list untouched; any other member is removed
// individually.
func (s *Service) Leave(ctx context.Context, lobbyID, userID uint) (*models.Lobby, error) {
	lobby, err := s.store.LobbyByID(ctx, lobbyID)
	if err != nil {
		return nil, err
	}

	if lobby.HostID == userID {
		if err := s.store.CloseLobby(ctx, lobbyID); err != nil {
			return nil, err
		}
	} else {
		removed, err := s.store.RemoveMember(ctx, lobbyID, userID)
		if err != nil {
			return nil, err
		}
		if !removed {
			return nil, ErrNotMember
		}
	}

	return s.store.LobbyByID(ctx, lobbyID)
}

// Start transitions the lobby into a room. Only the host may start; the
// room snapshots the member list at the moment of transition and the
// lobby's RoomID backlinks to it in the same transaction.
func (s *Service) Start(ctx context.Context, lobbyID, callerID uint) (*models.Room, *models.Lobby, error) {
	lobby, err := s.store.LobbyByID(ctx, lobbyID)
	if err != nil {
		return nil, nil, err
	}
	if lobby.HostID != callerID {
		return nil, nil, ErrNotHost
	}
	if lobby.RoomID != nil {
		return nil, nil, ErrAlreadyStarted
	}
	if !lobby.IsActive {
		return nil, nil, ErrLobbyClosed
	}

	room, err := s.store.CreateRoom(ctx, lobby)
	if err != nil {
		return nil, nil, err
	}

	lobby, err = s.store.LobbyByID(ctx, lobbyID)
	if err != nil {
		return nil, nil, err
	}
	return room, lobby, nil
}

// Get loads a lobby by id.
func (s *Service) Get(ctx context.Context, lobbyID uint) (*models.Lobby, error) {
	return s.store.LobbyByID(ctx, lobbyID)
}

// GetByCode loads a lobby by its normalized code.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.Lobby, error) {
	return s.store.LobbyByCode(ctx, NormalizeCode(code))
}
