package domain

import "time"

// Role enumerates the privilege levels an account can hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Credential mirrors the persisted representation in the users table.
// TokenVersion is a monotonic counter: bumping it invalidates every token
// issued against an older value without enumerating them.
type Credential struct {
	ID                 string
	FirstName          string
	LastName           string
	Email              string
	Phone              *string
	PasswordHash       string
	Role               Role
	TokenVersion       int64
	FailedAttempts     int
	LockedUntil        *time.Time
	IsBlocked          bool
	CreatedAt          time.Time
	LastLogin          *time.Time
	LastPasswordChange time.Time
}

// IsLocked reports whether the lockout window is still open at the supplied moment.
func (c Credential) IsLocked(at time.Time) bool {
	return c.LockedUntil != nil && c.LockedUntil.After(at)
}

// LockRemaining returns how long the lockout window has left, zero when unlocked.
func (c Credential) LockRemaining(at time.Time) time.Duration {
	if !c.IsLocked(at) {
		return 0
	}
	return c.LockedUntil.Sub(at)
}

// Sanitized returns a copy safe to hand back to callers.
func (c Credential) Sanitized() Credential {
	c.PasswordHash = ""
	return c
}
