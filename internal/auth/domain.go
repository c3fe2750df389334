// Package auth implements credential verification and session login.
package auth

import "time"

// Account represents a user account with credentials.
type Account struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
