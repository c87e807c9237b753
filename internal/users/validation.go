package users

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Field limits and messages shared by the request rules
const (
	MaxNameLength    = 100
	MaxAddressLength = 200

	MessageRequired       = "required field"
	MessageInvalidEmail   = "must be a valid email address"
	MessageEmailPattern   = "must match email pattern"
	MessageFirstNameLong  = "first name must be under 100 characters"
	MessageLastNameLong   = "last name must be under 100 characters"
	MessageAddressLong    = "address must be under 200 characters"
	MessagePhoneFormat    = "invalid phone number format"
	MessageNotAdult       = "User must be adult"
	MessageDateMissing    = "must not be null"
	MessageDateRangeOrder = "The 'from' date must be before the 'to' date."
)

var phoneNumberPattern = regexp.MustCompile(`^\+?[1-9][0-9]{7,14}$`)

// Validator evaluates request payloads against the user rules.
// Every rule yields at most one violation and all violations are reported together.
type Validator struct {
	minAdultAge int
	now         func() time.Time
	validate    *validator.Validate
}

// NewValidator creates a validator enforcing minAdultAge against the current date
func NewValidator(minAdultAge int) *Validator {
	return NewValidatorWithClock(minAdultAge, time.Now)
}

// NewValidatorWithClock creates a validator that reads the current date from now
func NewValidatorWithClock(minAdultAge int, now func() time.Time) *Validator {
	return &Validator{
		minAdultAge: minAdultAge,
		now:         now,
		validate:    validator.New(),
	}
}

// MinAdultAge returns the configured minimum age in years
func (v *Validator) MinAdultAge() int {
	return v.minAdultAge
}

// ValidateCreate checks a create or full-replace payload; every required field must be present
func (v *Validator) ValidateCreate(req *CreateUserRequest) error {
	return collect(
		firstOf(required("email", req.Email), v.email("email", req.Email, MessageInvalidEmail)),
		firstOf(required("firstName", req.FirstName), maxLength("firstName", &req.FirstName, MaxNameLength, MessageFirstNameLong)),
		firstOf(required("lastName", req.LastName), maxLength("lastName", &req.LastName, MaxNameLength, MessageLastNameLong)),
		firstOf(requiredDate("birthDate", req.BirthDate, MessageRequired), v.adult("birthDate", req.BirthDate)),
		maxLength("address", req.Address, MaxAddressLength, MessageAddressLong),
		phoneNumber("phoneNumber", req.PhoneNumber),
	)
}

// ValidatePartialUpdate checks a sparse patch; absent fields are not validated
func (v *Validator) ValidatePartialUpdate(req *PartialUpdateRequest) error {
	return collect(
		v.emailPattern("email", req.Email),
		maxLength("firstName", req.FirstName, MaxNameLength, MessageFirstNameLong),
		maxLength("lastName", req.LastName, MaxNameLength, MessageLastNameLong),
		v.adult("birthDate", req.BirthDate),
		maxLength("address", req.Address, MaxAddressLength, MessageAddressLong),
		phoneNumber("phoneNumber", req.PhoneNumber),
	)
}

// ValidateDateRange checks that both bounds are present and from is strictly before to
func (v *Validator) ValidateDateRange(r DateRange) error {
	return collect(
		requiredDate("from", r.From, MessageDateMissing),
		requiredDate("to", r.To, MessageDateMissing),
		rangeOrder("from", r.From, r.To),
	)
}

func (v *Validator) today() Date {
	return DateOf(v.now())
}

func (v *Validator) isEmail(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	return v.validate.Var(value, "email") == nil
}

// email skips blank values so that a missing email reports only the required rule
func (v *Validator) email(field, value, message string) *Violation {
	if strings.TrimSpace(value) == "" || v.isEmail(value) {
		return nil
	}
	return &Violation{Field: field, Message: message}
}

// emailPattern validates a present email, including an empty one
func (v *Validator) emailPattern(field string, value *string) *Violation {
	if value == nil || v.isEmail(*value) {
		return nil
	}
	return &Violation{Field: field, Message: MessageEmailPattern}
}

// adult requires at least minAdultAge full years between the birth date and today
func (v *Validator) adult(field string, birthDate *Date) *Violation {
	if birthDate == nil {
		return nil
	}
	if birthDate.YearsUntil(v.today()) < v.minAdultAge {
		return &Violation{Field: field, Message: MessageNotAdult}
	}
	return nil
}

func required(field, value string) *Violation {
	if strings.TrimSpace(value) == "" {
		return &Violation{Field: field, Message: MessageRequired}
	}
	return nil
}

func requiredDate(field string, value *Date, message string) *Violation {
	if value == nil || value.IsZero() {
		return &Violation{Field: field, Message: message}
	}
	return nil
}

func maxLength(field string, value *string, limit int, message string) *Violation {
	if value != nil && utf8.RuneCountInString(*value) > limit {
		return &Violation{Field: field, Message: message}
	}
	return nil
}

func phoneNumber(field string, value *string) *Violation {
	if value == nil || phoneNumberPattern.MatchString(*value) {
		return nil
	}
	return &Violation{Field: field, Message: MessagePhoneFormat}
}

func rangeOrder(field string, from, to *Date) *Violation {
	if from == nil || to == nil {
		return nil
	}
	if !from.Before(*to) {
		return &Violation{Field: field, Message: MessageDateRangeOrder}
	}
	return nil
}

// firstOf returns the first violation so a field reports one problem at a time
func firstOf(violations ...*Violation) *Violation {
	for _, v := range violations {
		if v != nil {
			return v
		}
	}
	return nil
}

func collect(violations ...*Violation) error {
	var found []Violation
	for _, v := range violations {
		if v != nil {
			found = append(found, *v)
		}
	}
	return NewValidationError(found)
}
