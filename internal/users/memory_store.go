package users

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore implements UserStore with in-memory storage.
// It enforces the same active-email uniqueness as the PostgreSQL schema.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*User
	now   func() time.Time
}

var _ UserStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users: make(map[uuid.UUID]*User),
		now:   time.Now,
	}
}

// CreateUser stores a new user, assigning its id when unset
func (s *InMemoryStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, exists := s.users[user.ID]; exists {
		return NewConflictError("users_pkey", fmt.Errorf("user with id %s already exists", user.ID))
	}
	if err := s.checkEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	now := s.now()
	user.IsDeleted = false
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// GetUser retrieves an active user by id
func (s *InMemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.activeLocked(id)
	if !ok {
		return nil, NewNotFoundError(id)
	}
	copied := *user
	return &copied, nil
}

// ListUsers retrieves every active user ordered by creation time
func (s *InMemoryStore) ListUsers(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := s.filterLocked(func(*User) bool { return true })
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	return users, nil
}

// FindByBirthDateRange retrieves active users born within [from, to]
func (s *InMemoryStore) FindByBirthDateRange(ctx context.Context, from, to Date) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := s.filterLocked(func(u *User) bool {
		return !u.BirthDate.Before(from) && !u.BirthDate.After(to)
	})
	sort.Slice(users, func(i, j int) bool {
		if !users[i].BirthDate.Equal(users[j].BirthDate) {
			return users[i].BirthDate.Before(users[j].BirthDate)
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	return users, nil
}

// SaveUser writes the whole user keyed on its id, inserting it when absent
func (s *InMemoryStore) SaveUser(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		return fmt.Errorf("user id is required for save")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	now := s.now()
	createdAt := now
	if existing, ok := s.users[user.ID]; ok {
		createdAt = existing.CreatedAt
	}

	user.IsDeleted = false
	user.CreatedAt = createdAt
	user.UpdatedAt = now

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// UpdateUser overwrites an active user; a missing or deleted user is NotFound
func (s *InMemoryStore) UpdateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.activeLocked(user.ID)
	if !ok {
		return NewNotFoundError(user.ID)
	}
	if err := s.checkEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	user.IsDeleted = false
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = s.now()

	stored := *user
	s.users[user.ID] = &stored
	return nil
}

// SoftDeleteUser marks an active user as deleted
func (s *InMemoryStore) SoftDeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.activeLocked(id)
	if !ok {
		return NewNotFoundError(id)
	}
	user.IsDeleted = true
	user.UpdatedAt = s.now()
	return nil
}

func (s *InMemoryStore) activeLocked(id uuid.UUID) (*User, bool) {
	user, ok := s.users[id]
	if !ok || user.IsDeleted {
		return nil, false
	}
	return user, true
}

// filterLocked returns copies of the active users matching keep
func (s *InMemoryStore) filterLocked(keep func(*User) bool) []*User {
	users := make([]*User, 0, len(s.users))
	for _, user := range s.users {
		if user.IsDeleted || !keep(user) {
			continue
		}
		copied := *user
		users = append(users, &copied)
	}
	return users
}

// checkEmailLocked rejects an email held by another active user
func (s *InMemoryStore) checkEmailLocked(id uuid.UUID, email string) error {
	for _, other := range s.users {
		if other.ID == id || other.IsDeleted {
			continue
		}
		if other.Email == email {
			return NewConflictError(EmailUniqueConstraint, fmt.Errorf("email %s is used by user %s", email, other.ID))
		}
	}
	return nil
}
