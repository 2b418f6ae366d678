package security

import (
	"strings"
	"testing"
)

func testHasher(t *testing.T) *Argon2Hasher {
	t.Helper()

	hasher, err := NewArgon2Hasher(Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  8,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	return hasher
}

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	hasher := testHasher(t)

	encoded, err := hasher.Hash("Str0ng!Pass99")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(encoded, "argon2id$v=19$") {
		t.Fatalf("unexpected encoded format: %s", encoded)
	}

	ok, err := hasher.Verify("Str0ng!Pass99", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected matching password to verify")
	}

	ok, err = hasher.Verify("wrong-password", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatched password to fail")
	}
}

func TestArgon2Hasher_SaltsDiffer(t *testing.T) {
	hasher := testHasher(t)

	first, err := hasher.Hash("Str0ng!Pass99")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := hasher.Hash("Str0ng!Pass99")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct salts to produce distinct encodings")
	}
}

func TestArgon2Hasher_MalformedEncoding(t *testing.T) {
	hasher := testHasher(t)

	if _, err := hasher.Verify("whatever", "not-an-argon2-hash"); err == nil {
		t.Fatalf("expected error for malformed encoding")
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	first := HashToken("some-opaque-token")
	second := HashToken("some-opaque-token")
	if first != second {
		t.Fatalf("expected deterministic hashing")
	}
	if first == HashToken("a-different-token") {
		t.Fatalf("expected distinct inputs to hash differently")
	}
	if len(first) != 64 {
		t.Fatalf("expected hex sha-256 output, got length %d", len(first))
	}
}
