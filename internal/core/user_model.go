package core

import (
	"context"
	"time"
)

// User is an authenticated account scoped to a department.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DepartmentID *int      `json:"department_id,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserInput struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	DepartmentID *int   `json:"department_id,omitempty"`
	Role         Role   `json:"role"`
}

// UserService provides account lookup and lifecycle operations.
type UserService interface {
	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	Create(ctx context.Context, input UserInput) (*User, error)
	List(ctx context.Context) ([]User, error)
	SetPassword(ctx context.Context, userID int, password string) error
	Deactivate(ctx context.Context, userID int) error
}
