package models

import (
	"time"

	"gorm.io/gorm"
)

// Lobby is a pre-game waiting group identified by a short shareable code.
// RoomID stays nil until the host starts the game.
type Lobby struct {
	gorm.Model
	Name      string `gorm:"size:255;not null"`
	LobbyCode string `gorm:"size:4;not null;index"`
	HostID    uint   `gorm:"not null"`
	IsActive  bool   `gorm:"not null;default:true"`
	RoomID    *uint  `gorm:"index"`

	Host    User          `gorm:"foreignKey:HostID"`
	Members []LobbyMember `gorm:"foreignKey:LobbyID"`
}

// LobbyMember is one user's membership in a lobby. The composite unique
// index makes the membership insert an atomic set-add: a duplicate join
// conflicts instead of appending a second row.
type LobbyMember struct {
	ID          uint   `gorm:"primaryKey"`
	LobbyID     uint   `gorm:"not null;uniqueIndex:idx_lobby_user"`
	UserID      uint   `gorm:"not null;uniqueIndex:idx_lobby_user"`
	DisplayName string `gorm:"size:255;not null"`
	IsHost      bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
}
