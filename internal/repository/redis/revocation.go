// Package redis provides Redis-backed repositories. The revocation ledger
// lives here because revocation checks sit on the hot path of every
// authenticated request.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/repository"
)

// minRevocationTTL keeps already-expired entries visible long enough for
// in-flight requests to observe them.
const minRevocationTTL = time.Minute

// RevocationLedger records revoked token hashes in Redis. Entries carry a
// TTL matching the token's own expiry, so the ledger never outgrows the set
// of tokens that could still be presented.
type RevocationLedger struct {
	client *goredis.Client
	prefix string
	clock  func() time.Time
}

// RevocationLedgerOption customizes ledger construction.
type RevocationLedgerOption func(*RevocationLedger)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) RevocationLedgerOption {
	return func(l *RevocationLedger) {
		l.clock = clock
	}
}

// NewRevocationLedger wires a Redis-backed revocation ledger under the
// given key prefix.
func NewRevocationLedger(client *goredis.Client, prefix string, opts ...RevocationLedgerOption) *RevocationLedger {
	ledger := &RevocationLedger{
		client: client,
		prefix: prefix,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(ledger)
	}
	return ledger
}

type revocationRecord struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// Revoke writes the entry if and only if no entry exists for the token hash.
// Concurrent revokers race on SETNX: exactly one wins and the rest get
// repository.ErrAlreadyRevoked. That property is what makes refresh
// rotation at-most-once under concurrency.
func (l *RevocationLedger) Revoke(ctx context.Context, entry domain.RevocationEntry) error {
	record := revocationRecord{
		UserID:    entry.UserID,
		Reason:    string(entry.Reason),
		ExpiresAt: entry.ExpiresAt,
		CreatedAt: entry.CreatedAt,
		IPAddress: entry.Metadata.IPAddress,
		UserAgent: entry.Metadata.UserAgent,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal revocation record: %w", err)
	}

	ttl := entry.ExpiresAt.Sub(l.clock())
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}

	stored, err := l.client.SetNX(ctx, l.key(entry.TokenHash), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("store revocation record: %w", err)
	}
	if !stored {
		return repository.ErrAlreadyRevoked
	}

	return nil
}

// IsRevoked reports whether the token hash has a ledger entry, along with
// the recorded reason when it does.
func (l *RevocationLedger) IsRevoked(ctx context.Context, tokenHash string) (bool, domain.RevocationReason, error) {
	payload, err := l.client.Get(ctx, l.key(tokenHash)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return false, "", nil
		}
		return false, "", fmt.Errorf("load revocation record: %w", err)
	}

	var record revocationRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return false, "", fmt.Errorf("decode revocation record: %w", err)
	}

	return true, domain.RevocationReason(record.Reason), nil
}

// SweepExpired scans the ledger keyspace and deletes entries whose token
// expiry has passed. Redis TTLs do most of this work already; the sweep is
// a backstop for entries written with a clamped TTL.
func (l *RevocationLedger) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	var (
		cursor  uint64
		removed int
	)

	pattern := l.prefix + ":*"
	for {
		keys, next, err := l.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, fmt.Errorf("scan revocation keys: %w", err)
		}

		for _, key := range keys {
			payload, err := l.client.Get(ctx, key).Bytes()
			if err != nil {
				if err == goredis.Nil {
					continue
				}
				return removed, fmt.Errorf("load revocation record: %w", err)
			}

			var record revocationRecord
			if err := json.Unmarshal(payload, &record); err != nil {
				return removed, fmt.Errorf("decode revocation record: %w", err)
			}

			if !record.ExpiresAt.After(now) {
				if err := l.client.Del(ctx, key).Err(); err != nil {
					return removed, fmt.Errorf("delete revocation record: %w", err)
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}

func (l *RevocationLedger) key(tokenHash string) string {
	return l.prefix + ":" + tokenHash
}
