package users

import (
	"context"

	"github.com/google/uuid"
)

// UserStore defines the interface for user persistence.
// Reads never return soft-deleted users.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	FindByBirthDateRange(ctx context.Context, from, to Date) ([]*User, error)
	SaveUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
	SoftDeleteUser(ctx context.Context, id uuid.UUID) error
}

// UserManager defines the interface for user service operations
type UserManager interface {
	CreateUser(ctx context.Context, req *CreateUserRequest) (*UserResponse, error)
	GetUser(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	ListUsers(ctx context.Context) ([]*UserResponse, error)
	PartialUpdateUser(ctx context.Context, id uuid.UUID, req *PartialUpdateRequest) (*UserResponse, error)
	ReplaceUser(ctx context.Context, id uuid.UUID, req *CreateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	FindByBirthDateRange(ctx context.Context, r DateRange) ([]*UserResponse, error)
}
