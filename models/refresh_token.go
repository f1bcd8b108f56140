package models

import (
	"time"

	"github.com/google/uuid"
)

type RefreshToken struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRefreshToken(userID uint, ttlDays int) *RefreshToken {
	return &RefreshToken{
		ID:        "rt_" + uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(ttlDays) * 24 * time.Hour),
		CreatedAt: time.Now(),
	}
}

// RevokedToken is the database fallback for access-token revocation when
// Redis is not configured.
type RevokedToken struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	RevokedAt time.Time `gorm:"not null"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}
