package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Constraint names created by the migrations
const (
	EmailUniqueConstraint = "users_email_active_key"
	uniqueViolationCode   = "23505"
)

// UserSchema represents the users table schema in PostgreSQL
type UserSchema struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	Email       string    `bun:"email,notnull"`
	FirstName   string    `bun:"first_name,notnull"`
	LastName    string    `bun:"last_name,notnull"`
	BirthDate   time.Time `bun:"birth_date,notnull,type:date"`
	Address     *string   `bun:"address"`
	PhoneNumber *string   `bun:"phone_number"`
	IsDeleted   bool      `bun:"is_deleted,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// PostgresStore implements UserStore using PostgreSQL
type PostgresStore struct {
	db *bun.DB
}

var _ UserStore = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL user store
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// active restricts a read to users that are not soft-deleted.
// Every read path goes through it.
func active(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("u.is_deleted = FALSE")
}

// CreateUser inserts a new user, assigning its id when unset
func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.IsDeleted = false
	user.CreatedAt = now
	user.UpdatedAt = now

	schema := UserToUserSchema(user)
	_, err := s.db.NewInsert().
		Model(&schema).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return classifyWriteError("failed to create user", err)
	}

	*user = *UserSchemaToUser(schema)
	return nil
}

// GetUser retrieves an active user by id
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var schema UserSchema
	err := s.db.NewSelect().
		Model(&schema).
		Apply(active).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return UserSchemaToUser(schema), nil
}

// ListUsers retrieves every active user
func (s *PostgresStore) ListUsers(ctx context.Context) ([]*User, error) {
	var schemas []UserSchema
	err := s.db.NewSelect().
		Model(&schemas).
		Apply(active).
		Order("u.created_at ASC", "u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return schemasToUsers(schemas), nil
}

// FindByBirthDateRange retrieves active users born within [from, to]
func (s *PostgresStore) FindByBirthDateRange(ctx context.Context, from, to Date) ([]*User, error) {
	var schemas []UserSchema
	err := s.db.NewSelect().
		Model(&schemas).
		Apply(active).
		Where("u.birth_date BETWEEN ? AND ?", from.String(), to.String()).
		Order("u.birth_date ASC", "u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find users by birth date: %w", err)
	}
	return schemasToUsers(schemas), nil
}

// SaveUser writes the whole user keyed on its id, inserting the row when absent.
// Saving revives a soft-deleted row with the same id.
func (s *PostgresStore) SaveUser(ctx context.Context, user *User) error {
	if user.ID == uuid.Nil {
		return fmt.Errorf("user id is required for save")
	}
	now := time.Now()
	user.IsDeleted = false
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	schema := UserToUserSchema(user)
	_, err := s.db.NewInsert().
		Model(&schema).
		On("CONFLICT (id) DO UPDATE").
		Set("email = EXCLUDED.email").
		Set("first_name = EXCLUDED.first_name").
		Set("last_name = EXCLUDED.last_name").
		Set("birth_date = EXCLUDED.birth_date").
		Set("address = EXCLUDED.address").
		Set("phone_number = EXCLUDED.phone_number").
		Set("is_deleted = FALSE").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return classifyWriteError("failed to save user", err)
	}

	*user = *UserSchemaToUser(schema)
	return nil
}

// UpdateUser overwrites the mutable fields of an active user.
// It never inserts and never touches a soft-deleted row.
func (s *PostgresStore) UpdateUser(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now()

	schema := UserToUserSchema(user)
	result, err := s.db.NewUpdate().
		Model(&schema).
		Column("email", "first_name", "last_name", "birth_date", "address", "phone_number", "updated_at").
		Where("u.id = ?", user.ID).
		Where("u.is_deleted = FALSE").
		Exec(ctx)
	if err != nil {
		return classifyWriteError("failed to update user", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return NewNotFoundError(user.ID)
	}
	return nil
}

// SoftDeleteUser marks an active user as deleted
func (s *PostgresStore) SoftDeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.NewUpdate().
		Model((*UserSchema)(nil)).
		Set("is_deleted = TRUE").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("is_deleted = FALSE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return NewNotFoundError(id)
	}
	return nil
}

// pgFieldError is satisfied by pgdriver.Error
type pgFieldError interface {
	error
	Field(k byte) string
}

var _ pgFieldError = pgdriver.Error{}

// classifyWriteError turns unique violations into ConflictError and wraps everything else
func classifyWriteError(msg string, err error) error {
	var pgErr pgFieldError
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolationCode {
		return NewConflictError(pgErr.Field('n'), err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// UserSchemaToUser converts a table row to a User
func UserSchemaToUser(schema UserSchema) *User {
	user := &User{
		ID:        schema.ID,
		Email:     schema.Email,
		FirstName: schema.FirstName,
		LastName:  schema.LastName,
		BirthDate: DateOf(schema.BirthDate),
		IsDeleted: schema.IsDeleted,
		CreatedAt: schema.CreatedAt,
		UpdatedAt: schema.UpdatedAt,
	}

	if schema.Address != nil {
		user.Address = *schema.Address
	}
	if schema.PhoneNumber != nil {
		user.PhoneNumber = *schema.PhoneNumber
	}

	return user
}

// UserToUserSchema converts a User to a table row; empty optional fields become NULL
func UserToUserSchema(user *User) UserSchema {
	var address, phoneNumber *string
	if user.Address != "" {
		address = &user.Address
	}
	if user.PhoneNumber != "" {
		phoneNumber = &user.PhoneNumber
	}

	return UserSchema{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		BirthDate:   user.BirthDate.Time,
		Address:     address,
		PhoneNumber: phoneNumber,
		IsDeleted:   user.IsDeleted,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func schemasToUsers(schemas []UserSchema) []*User {
	users := make([]*User, 0, len(schemas))
	for _, schema := range schemas {
		users = append(users, UserSchemaToUser(schema))
	}
	return users
}
