package models

import "github.com/google/uuid"

// Principal — проверенная личность запроса, извлечённая из access-токена.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}
