package types

import "time"

// Roles a user account can hold.
const (
	RoleUser   = "user"
	RoleDoctor = "doctor"
)

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's email address and login name. Unique.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name. May be empty.
	Name string `json:"name" db:"name"`

	// Role indicates the user's authorization level within the
	// system, either "user" or "doctor".
	Role string `json:"role" db:"role"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// IsDoctor reports whether the user holds the doctor role.
func (u User) IsDoctor() bool {
	return u.Role == RoleDoctor
}
