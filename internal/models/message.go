package models

import "gorm.io/gorm"

// MaxMessageLength is enforced server-side on message creation.
const MaxMessageLength = 500

// Message represents a chat message within a room. Messages are append-only:
// never mutated or deleted, ordered by CreatedAt ascending for display.
// CreatedAt is the server-assigned timestamp.
type Message struct {
	gorm.Model
	RoomID      uint   `gorm:"not null;index"`
	UserID      uint   `gorm:"not null"`
	DisplayName string `gorm:"size:255;not null"`
	Text        string `gorm:"size:500;not null"`

	User User `gorm:"foreignKey:UserID"`
}
