package domain

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Password length bounds, applied to the plaintext before hashing.
const (
	MinPasswordLength = 7
	MaxPasswordLength = 42
)

// PasswordHashCost is the bcrypt work factor.
const PasswordHashCost = 10

// User is an account that can sign in. Password holds the bcrypt hash once
// the user has been built with NewUser.
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"password" bson:"password"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// NewUser validates the plaintext credentials and returns a user with a
// hashed password. Field violations are returned without an error.
func NewUser(email, password string) (*User, []FieldViolation, error) {
	u := &User{Email: strings.ToLower(strings.TrimSpace(email))}

	vs := u.validateEmail()
	if n := utf8.RuneCountInString(password); n < MinPasswordLength || n > MaxPasswordLength {
		vs = append(vs, FieldViolation{
			Field:   "password",
			Message: "Your password must be between 7 and 42 characters long",
		})
	}
	if len(vs) > 0 {
		return nil, vs, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return nil, nil, err
	}
	u.Password = string(hash)
	return u, nil, nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// DocID returns the record identifier.
func (u *User) DocID() primitive.ObjectID { return u.ID }

// SetDocID sets the record identifier.
func (u *User) SetDocID(id primitive.ObjectID) { u.ID = id }

// Stamp sets the timestamps. created is only applied when non-zero.
func (u *User) Stamp(created, updated time.Time) {
	if !created.IsZero() {
		u.CreatedAt = created
	}
	u.UpdatedAt = updated
}

// Validate checks the stored form of the user.
func (u *User) Validate() []FieldViolation {
	vs := u.validateEmail()
	if u.Password == "" {
		vs = append(vs, FieldViolation{Field: "password", Message: "Password is required"})
	}
	return vs
}

func (u *User) validateEmail() []FieldViolation {
	if u.Email == "" {
		return []FieldViolation{{Field: "email", Message: "Email is required"}}
	}
	addr, err := mail.ParseAddress(u.Email)
	if err != nil || addr.Address != u.Email {
		return []FieldViolation{{Field: "email", Message: "You provided an invalid email address"}}
	}
	return nil
}
