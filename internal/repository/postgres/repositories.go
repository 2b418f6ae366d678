// Package postgres provides PostgreSQL implementations of the repository
// ports using pgx and squirrel.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories bundles the PostgreSQL-backed repositories sharing one pool.
type Repositories struct {
	Credentials *CredentialRepository
	Sessions    *SessionRegistry
}

// NewRepositories wires all PostgreSQL repositories on a shared pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Credentials: NewCredentialRepository(pool),
		Sessions:    NewSessionRegistry(pool),
	}
}
