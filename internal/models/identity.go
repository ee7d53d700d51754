package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity - проверенная личность, извлеченная из токена.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// User - запись хранилища пользователей.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Identity строит Identity из записи хранилища.
func (u User) Identity() Identity {
	role := u.Role
	if role == "" {
		role = RoleUser
	}
	return Identity{ID: u.ID.String(), Email: u.Email, Role: role}
}
