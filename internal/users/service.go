package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements the UserManager interface
type Service struct {
	store     UserStore
	validator *Validator
	logger    *zap.Logger
}

var _ UserManager = (*Service)(nil)

// NewService creates a new user service
func NewService(store UserStore, validator *Validator, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreateUser validates the payload and persists a new user with a store-assigned id
func (s *Service) CreateUser(ctx context.Context, req *CreateUserRequest) (*UserResponse, error) {
	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, err
	}

	user := req.ToUser(uuid.Nil)
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", zap.String("user_id", user.ID.String()))
	return NewUserResponse(user), nil
}

// GetUser returns an active user by id
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewUserResponse(user), nil
}

// ListUsers returns every active user
func (s *Service) ListUsers(ctx context.Context) ([]*UserResponse, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return NewUserResponses(users), nil
}

// PartialUpdateUser overwrites only the fields present in req.
// It never creates a user.
func (s *Service) PartialUpdateUser(ctx context.Context, id uuid.UUID, req *PartialUpdateRequest) (*UserResponse, error) {
	if err := s.validator.ValidatePartialUpdate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	req.ApplyTo(user)

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("User updated", zap.String("user_id", id.String()))
	return NewUserResponse(user), nil
}

// ReplaceUser replaces every field of the user with the given id.
// The user is created under that id when it does not exist.
func (s *Service) ReplaceUser(ctx context.Context, id uuid.UUID, req *CreateUserRequest) (*UserResponse, error) {
	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, err
	}

	user := req.ToUser(id)
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to replace user: %w", err)
	}

	s.logger.Info("User replaced", zap.String("user_id", id.String()))
	return NewUserResponse(user), nil
}

// DeleteUser soft-deletes an active user
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.store.SoftDeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.Info("User deleted", zap.String("user_id", id.String()))
	return nil
}

// FindByBirthDateRange returns active users born within [from, to]
func (s *Service) FindByBirthDateRange(ctx context.Context, r DateRange) ([]*UserResponse, error) {
	if err := s.validator.ValidateDateRange(r); err != nil {
		return nil, err
	}

	users, err := s.store.FindByBirthDateRange(ctx, *r.From, *r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return NewUserResponses(users), nil
}
