package types

import "time"

// ContactMessage is a message left by an authenticated user through the
// contact form.
type ContactMessage struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Message   string    `json:"message" db:"message"`
	IP        string    `json:"-" db:"ip"`
	UserAgent string    `json:"-" db:"user_agent"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
