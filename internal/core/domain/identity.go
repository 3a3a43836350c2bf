package domain

import "time"

// Identity is the caller resolved from a verified session token.
// A nil *Identity means the request is anonymous.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// IsExpired reports whether the identity's token has expired at now.
func (i *Identity) IsExpired(now time.Time) bool {
	if i == nil || i.ExpiresAt.IsZero() {
		return true
	}
	return !now.Before(i.ExpiresAt)
}
