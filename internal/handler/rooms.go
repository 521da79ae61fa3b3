package handler

import (
	"context"
	"errors"

	"gamelobby/backend/internal/lobby"
	"gamelobby/backend/internal/models"

	"gorm.io/gorm"
)

// RoomStore is the persistence boundary for rooms and their chat history.
// Room handlers depend on it instead of a concrete database handle so tests
// can run against the in-memory store.
type RoomStore interface {
	// RoomByID loads a room with its member snapshot.
	// Returns lobby.ErrRoomNotFound when absent.
	RoomByID(ctx context.Context, id uint) (*models.Room, error)

	// UpdateRoomStatus moves the room to the given status.
	UpdateRoomStatus(ctx context.Context, roomID uint, status models.RoomStatus) error

	// AppendMessage persists a message with a server-assigned timestamp.
	AppendMessage(ctx context.Context, message *models.Message) error

	// Messages returns one page of the room's messages ordered by server
	// timestamp ascending, plus the total count. limit <= 0 returns the
	// whole history.
	Messages(ctx context.Context, roomID uint, offset, limit int) ([]models.Message, int64, error)
}

type gormRoomStore struct {
	db *gorm.DB
}

func NewRoomStore(db *gorm.DB) RoomStore {
	return gormRoomStore{db: db}
}

func (s gormRoomStore) RoomByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := s.db.WithContext(ctx).Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lobby.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s gormRoomStore) UpdateRoomStatus(ctx context.Context, roomID uint, status models.RoomStatus) error {
	return s.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("status", status).Error
}

func (s gormRoomStore) AppendMessage(ctx context.Context, message *models.Message) error {
	return s.db.WithContext(ctx).Create(message).Error
}

func (s gormRoomStore) Messages(ctx context.Context, roomID uint, offset, limit int) ([]models.Message, int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("room_id = ?", roomID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}

	var messages []models.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}
