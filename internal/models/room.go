package models

import (
	"time"

	"gorm.io/gorm"
)

type RoomStatus string

const (
	RoomStatusWaiting   RoomStatus = "waiting"
	RoomStatusActive    RoomStatus = "active"
	RoomStatusCompleted RoomStatus = "completed"
)

// Room is the post-transition entity seeded from a lobby's membership.
// Its member list is a snapshot taken when the host starts the game and
// does not track later lobby changes.
type Room struct {
	gorm.Model
	LobbyID uint       `gorm:"not null;index"`
	HostID  uint       `gorm:"not null"`
	Status  RoomStatus `gorm:"size:20;not null;default:'waiting'"`

	Members []RoomMember `gorm:"foreignKey:RoomID"`
}

// RoomMember is a frozen copy of a LobbyMember at transition time.
type RoomMember struct {
	ID          uint   `gorm:"primaryKey"`
	RoomID      uint   `gorm:"not null;index"`
	UserID      uint   `gorm:"not null"`
	DisplayName string `gorm:"size:255;not null"`
	IsHost      bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
}
