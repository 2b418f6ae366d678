package domain

import "time"

// TokenType distinguishes the two credential lifetimes the service issues.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// ClientMetadata carries the fixed set of client attributes embedded in tokens
// and session records. Unknown fields from the request are never splatted in.
type ClientMetadata struct {
	IPAddress string
	UserAgent string
}

// RevocationReason records why a token was explicitly invalidated.
type RevocationReason string

const (
	RevocationReasonLogout            RevocationReason = "logout"
	RevocationReasonLogoutAll         RevocationReason = "logout_all"
	RevocationReasonPasswordChange    RevocationReason = "password_change"
	RevocationReasonTokenRotation     RevocationReason = "token_rotation"
	RevocationReasonForcedLogout      RevocationReason = "forced_logout"
	RevocationReasonInactivityTimeout RevocationReason = "inactivity_timeout"
	RevocationReasonExpired           RevocationReason = "expired"
)

// RevocationEntry is a ledger record for a currently valid but explicitly
// killed token. Entries carry the token's own expiry so the store can evict
// them passively once the token could never again be presented as valid.
type RevocationEntry struct {
	TokenHash string
	UserID    string
	Reason    RevocationReason
	ExpiresAt time.Time
	CreatedAt time.Time
	Metadata  ClientMetadata
}

// IsExpired reports whether the underlying token has elapsed its validity window.
func (e RevocationEntry) IsExpired(at time.Time) bool {
	return !e.ExpiresAt.After(at)
}
