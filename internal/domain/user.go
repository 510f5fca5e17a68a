package domain

import (
	"context"
	"time"
)

type User struct {
	ID           int
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetById(ctx context.Context, id int) (*User, error)
}
