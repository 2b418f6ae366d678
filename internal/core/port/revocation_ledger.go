package port

import (
	"context"
	"time"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
)

// RevocationLedger is a time-indexed record of explicitly invalidated tokens,
// keyed by token hash. Entries evict passively once the token's own expiry
// passes; SweepExpired remains as a manual backup path.
type RevocationLedger interface {
	// Revoke records an entry. The write is first-revoker-wins: a second call
	// for the same token hash fails with repository.ErrAlreadyRevoked, which is
	// what lets refresh rotation guarantee at most one winner.
	Revoke(ctx context.Context, entry domain.RevocationEntry) error
	// IsRevoked is a point lookup returning the stored reason when present.
	IsRevoked(ctx context.Context, tokenHash string) (bool, domain.RevocationReason, error)
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
