package domain

import "time"

// Session binds an issued token pair to a client device. Tokens are stored as
// SHA-256 hashes; the raw values never touch persistence.
type Session struct {
	ID               string
	UserID           string
	AccessTokenHash  string
	RefreshTokenHash string
	IPAddress        *string
	UserAgent        *string
	DeviceInfo       *string
	LastActivity     time.Time
	ExpiresAt        time.Time
	IsActive         bool
	InvalidatedFor   *string
	CreatedAt        time.Time
}

// IsAlive reports whether the session is active and unexpired at the supplied moment.
func (s Session) IsAlive(at time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(at)
}

// InactiveFor returns the time elapsed since the last recorded activity.
func (s Session) InactiveFor(at time.Time) time.Duration {
	return at.Sub(s.LastActivity)
}

// IsStale reports whether the session sat idle longer than the allowed window.
func (s Session) IsStale(at time.Time, maxInactivity time.Duration) bool {
	if maxInactivity <= 0 {
		return false
	}
	return s.InactiveFor(at) > maxInactivity
}

// Touch bumps last-activity. Inactive sessions stay inactive: the flag is
// sticky and a touch never resurrects a dead session.
func (s *Session) Touch(at time.Time) bool {
	if !s.IsActive {
		return false
	}
	s.LastActivity = at
	return true
}

// Invalidate flips the session to the dead state.
// Returns true when the session actually changed state.
func (s *Session) Invalidate(reason RevocationReason) bool {
	if !s.IsActive {
		return false
	}
	s.IsActive = false
	reasonCopy := string(reason)
	s.InvalidatedFor = &reasonCopy
	return true
}
