package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrAlreadyRevoked indicates a revocation entry already exists for the token.
	ErrAlreadyRevoked = errors.New("repository: already revoked")
)
