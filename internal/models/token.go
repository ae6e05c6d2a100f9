package models

import (
	"time"
)

// TokenEntry is an outstanding single-use token and the moment it was issued.
type TokenEntry struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issuedAt"`
}

// IsExpired checks if the token is older than validFor at now.
func (e TokenEntry) IsExpired(now time.Time, validFor time.Duration) bool {
	return now.Sub(e.IssuedAt) > validFor
}
