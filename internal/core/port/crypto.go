package port

// PasswordHasher hashes and verifies secrets. The encoded form is opaque to
// callers; only the hash-and-compare capability is exposed.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// PasswordPolicyValidator enforces password strength requirements against the
// supplied contextual inputs (email local part, names, previous password).
type PasswordPolicyValidator interface {
	Validate(password string, inputs ...string) error
}
