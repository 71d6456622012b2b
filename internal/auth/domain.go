package auth

import "time"

// Credential is the authentication view of a user account.
type Credential struct {
	UserID       string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
