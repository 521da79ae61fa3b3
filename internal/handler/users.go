package handler

import (
	"context"

	"gamelobby/backend/internal/models"

	"gorm.io/gorm"
)

// UserSource resolves the display name behind an authenticated user id.
// Lobby handlers depend on this instead of a concrete database handle so
// tests can substitute a fixed mapping.
type UserSource interface {
	DisplayName(ctx context.Context, userID uint) (string, error)
}

type gormUserSource struct {
	db *gorm.DB
}

func NewUserSource(db *gorm.DB) UserSource {
	return gormUserSource{db: db}
}

func (s gormUserSource) DisplayName(ctx context.Context, userID uint) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return "", err
	}
	return user.Nickname, nil
}
