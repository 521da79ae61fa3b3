package lobby

import (
	"context"
	"errors"

	"gamelobby/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of Postgres via GORM.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func memberOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

func (s *GormStore) CreateLobby(ctx context.Context, lobby *models.Lobby) error {
	return s.db.WithContext(ctx).Create(lobby).Error
}

func (s *GormStore) LobbyByID(ctx context.Context, id uint) (*models.Lobby, error) {
	var lobby models.Lobby
	err := s.db.WithContext(ctx).Preload("Members", memberOrder).First(&lobby, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLobbyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lobby, nil
}

func (s *GormStore) LobbyByCode(ctx context.Context, code string) (*models.Lobby, error) {
	// A closed lobby may share its code with a newer active one; prefer the
	// active match so stale codes don't shadow live lobbies.
	var lobby models.Lobby
	err := s.db.WithContext(ctx).
		Preload("Members", memberOrder).
		Where("lobby_code = ?", code).
		Order("is_active DESC, created_at DESC").
		First(&lobby).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLobbyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lobby, nil
}

func (s *GormStore) CodeInUse(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Lobby{}).
		Where("lobby_code = ? AND is_active = ?", code, true).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) AddMember(ctx context.Context, member *models.LobbyMember) (bool, error) {
	// INSERT .. ON CONFLICT DO NOTHING against the (lobby_id, user_id) unique
	// index: a concurrent duplicate join applies at most once, and concurrent
	// joins of different users never clobber each other.
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(member)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) RemoveMember(ctx context.Context, lobbyID, userID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("lobby_id = ? AND user_id = ?", lobbyID, userID).
		Delete(&models.LobbyMember{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) CloseLobby(ctx context.Context, lobbyID uint) error {
	return s.db.WithContext(ctx).
		Model(&models.Lobby{}).
		Where("id = ?", lobbyID).
		Update("is_active", false).Error
}

func (s *GormStore) CreateRoom(ctx context.Context, lobby *models.Lobby) (*models.Room, error) {
	room := models.Room{
		LobbyID: lobby.ID,
		HostID:  lobby.HostID,
		Status:  models.RoomStatusWaiting,
	}

	// Room creation, member snapshot and the lobby backlink commit together,
	// so a failure cannot leave an orphaned room without a referencing lobby.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var members []models.LobbyMember
		if err := memberOrder(tx.Where("lobby_id = ?", lobby.ID)).Find(&members).Error; err != nil {
			return err
		}

		for _, m := range members {
			room.Members = append(room.Members, models.RoomMember{
				UserID:      m.UserID,
				DisplayName: m.DisplayName,
				IsHost:      m.IsHost,
			})
		}

		if err := tx.Create(&room).Error; err != nil {
			return err
		}

		// The backlink only lands on a lobby that has no room yet. When two
		// start requests race past the service check, the loser affects zero
		// rows and the rollback discards its room.
		res := tx.Model(&models.Lobby{}).
			Where("id = ? AND room_id IS NULL", lobby.ID).
			Update("room_id", room.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyStarted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}
