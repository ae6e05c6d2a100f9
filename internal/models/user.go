package models

import "time"

// User is the account record owned by the persistence collaborator.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"` // Normalized, unique
	Username string `json:"username"`
	// Credential digests, never plaintext
	PasswordHash string `json:"-"`
	APIKeyHash   string `json:"-"`
	// Latest confirmation/reset token issued for this account. Superseded, never renewed.
	Token        string    `json:"-"`
	Confirmed    bool      `json:"confirmed"`
	PendingEmail string    `json:"pendingEmail,omitempty"` // Awaiting confirmation of an email change
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
