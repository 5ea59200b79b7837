package models

import (
	"time"

	"github.com/google/uuid"
)

// Role — роль пользователя, попадающая в claims access-токена.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User — модель пользователя в системе.
// PasswordHash никогда не сериализуется наружу.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
