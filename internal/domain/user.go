package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the pipeline's read model of an application user. Account
// management (registration, passwords, tokens) lives outside the pipeline;
// only the fields recipient resolution, the preference gate and the
// scheduled jobs consume appear here.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name,omitempty"`
	Active   bool      `json:"active"`

	// EmailNotifications is the per-user preference gating outbound mail.
	// In-app notification rows are created regardless.
	EmailNotifications bool `json:"email_notifications"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the user's full name, falling back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
