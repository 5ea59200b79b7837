package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — серверная запись о выданном refresh-токене.
// Хранится только хэш (sha256 → base64url) подписанного токена.
type RefreshToken struct {
	ID        uuid.UUID
	TokenHash string
	UserID    uuid.UUID
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}
