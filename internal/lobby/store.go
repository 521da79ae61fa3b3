package lobby

import (
	"context"
	"errors"

	"gamelobby/backend/internal/models"
)

var (
	// ErrLobbyNotFound is returned when no lobby matches the given id or code.
	ErrLobbyNotFound = errors.New("lobby not found")

	// ErrLobbyClosed is returned when joining or starting a lobby whose host
	// has already closed it.
	ErrLobbyClosed = errors.New("lobby is no longer active")

	// ErrNotHost is returned when a non-host member invokes a host-only action.
	ErrNotHost = errors.New("only the host can start the game")

	// ErrAlreadyStarted is returned when starting a lobby that already has a room.
	ErrAlreadyStarted = errors.New("game already started")

	// ErrNotMember is returned when leaving a lobby the user never joined.
	ErrNotMember = errors.New("user is not a member of this lobby")

	// ErrRoomNotFound is returned when no room matches the given id.
	ErrRoomNotFound = errors.New("room not found")

	// ErrCodeExhausted is returned when repeated code generation kept
	// colliding with active lobbies.
	ErrCodeExhausted = errors.New("could not allocate an unused lobby code")
)

// Store is the persistence boundary for lobby reconciliation. Membership
// mutations are atomic set operations: AddMember and RemoveMember report
// whether they changed anything, so two concurrent joins of the same user
// apply at most once and never overwrite each other's writes.
type Store interface {
	// CreateLobby persists a new lobby together with its initial members.
	CreateLobby(ctx context.Context, lobby *models.Lobby) error

	// LobbyByID loads a lobby with its members in join order.
	// Returns ErrLobbyNotFound when absent.
	LobbyByID(ctx context.Context, id uint) (*models.Lobby, error)

	// LobbyByCode loads the lobby whose code matches, preferring an active
	// one when an old closed lobby shares the code.
	// Returns ErrLobbyNotFound when absent.
	LobbyByCode(ctx context.Context, code string) (*models.Lobby, error)

	// CodeInUse reports whether an active lobby currently holds the code.
	CodeInUse(ctx context.Context, code string) (bool, error)

	// AddMember appends the member unless a member with the same user id is
	// already present. Reports whether a row was added.
	AddMember(ctx context.Context, member *models.LobbyMember) (bool, error)

	// RemoveMember deletes exactly the membership of the given user.
	// Reports whether a row was removed.
	RemoveMember(ctx context.Context, lobbyID, userID uint) (bool, error)

	// CloseLobby marks the lobby inactive. Members are kept.
	CloseLobby(ctx context.Context, lobbyID uint) error

	// CreateRoom atomically creates a room seeded with a snapshot of the
	// lobby's current members and backlinks the lobby's RoomID to it.
	CreateRoom(ctx context.Context, lobby *models.Lobby) (*models.Room, error)
}
