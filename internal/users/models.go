package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents a person record in the directory
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	BirthDate   Date      `json:"birthDate"`
	Address     string    `json:"address,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	IsDeleted   bool      `json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// CreateUserRequest represents the payload for creating a user or replacing all of its fields.
// Optional fields are pointers so a present empty value can be told apart from an absent one.
type CreateUserRequest struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	BirthDate   *Date   `json:"birthDate"`
	Address     *string `json:"address,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

// ToUser converts the request to a User bound to id.
// uuid.Nil leaves the id for the store to assign.
func (r *CreateUserRequest) ToUser(id uuid.UUID) *User {
	user := &User{
		ID:        id,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
	if r.BirthDate != nil {
		user.BirthDate = *r.BirthDate
	}
	if r.Address != nil {
		user.Address = *r.Address
	}
	if r.PhoneNumber != nil {
		user.PhoneNumber = *r.PhoneNumber
	}
	return user
}

// PartialUpdateRequest carries the fields to overwrite on an existing user.
// A nil field is left unchanged.
type PartialUpdateRequest struct {
	Email       *string `json:"email,omitempty"`
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	BirthDate   *Date   `json:"birthDate,omitempty"`
	Address     *string `json:"address,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
}

// ApplyTo overwrites the fields of user that are present in the patch
func (r *PartialUpdateRequest) ApplyTo(user *User) {
	if r.Email != nil {
		user.Email = *r.Email
	}
	if r.FirstName != nil {
		user.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		user.LastName = *r.LastName
	}
	if r.BirthDate != nil {
		user.BirthDate = *r.BirthDate
	}
	if r.Address != nil {
		user.Address = *r.Address
	}
	if r.PhoneNumber != nil {
		user.PhoneNumber = *r.PhoneNumber
	}
}

// DateRange is an inclusive birth date range query
type DateRange struct {
	From *Date
	To   *Date
}

// UserResponse is the public representation of a user.
// Absent optional fields serialize as null.
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	BirthDate   Date      `json:"birthDate"`
	Address     *string   `json:"address"`
	PhoneNumber *string   `json:"phoneNumber"`
}

// NewUserResponse builds the public representation of user
func NewUserResponse(user *User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		BirthDate:   user.BirthDate,
		Address:     optional(user.Address),
		PhoneNumber: optional(user.PhoneNumber),
	}
}

// NewUserResponses converts a list of users
func NewUserResponses(users []*User) []*UserResponse {
	responses := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}
	return responses
}

// optional maps the empty string to nil
func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
