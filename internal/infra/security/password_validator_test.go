package security

import (
	"errors"
	"testing"
)

func violationCodes(t *testing.T, err error) map[string]bool {
	t.Helper()

	var violations *PasswordViolations
	if !errors.As(err, &violations) {
		t.Fatalf("expected *PasswordViolations, got %v", err)
	}

	codes := make(map[string]bool, len(violations.Violations))
	for _, violation := range violations.Violations {
		codes[violation.Code] = true
	}
	return codes
}

func TestDefaultPasswordValidator_RejectsWeak(t *testing.T) {
	validator := DefaultPasswordValidator()

	err := validator.Validate("abc123")
	if err == nil {
		t.Fatalf("expected abc123 to be rejected")
	}

	codes := violationCodes(t, err)
	for _, want := range []string{"min_length", "uppercase", "symbol"} {
		if !codes[want] {
			t.Fatalf("expected violation %q, got %v", want, codes)
		}
	}
}

func TestDefaultPasswordValidator_AcceptsStrong(t *testing.T) {
	validator := DefaultPasswordValidator()

	if err := validator.Validate("Str0ng!Pass99", "str0ng", "Ada", "Lovelace"); err != nil {
		t.Fatalf("expected password to pass, got %v", err)
	}
}

func TestDefaultPasswordValidator_RejectsIdentityContent(t *testing.T) {
	validator := DefaultPasswordValidator()

	err := validator.Validate("Lovelace!77x", "ada", "Ada", "Lovelace")
	if err == nil {
		t.Fatalf("expected identity content to be rejected")
	}
	if codes := violationCodes(t, err); !codes["identity_content"] {
		t.Fatalf("expected identity_content violation, got %v", codes)
	}
}

func TestDefaultPasswordValidator_ShortInputsIgnored(t *testing.T) {
	validator := DefaultPasswordValidator()

	// Two-character inputs would match almost any password; they are skipped
	// even when the password literally contains them.
	if err := validator.Validate("Yu2!vAqx9#Kp", "va", "Al", "Yu"); err != nil {
		t.Fatalf("expected short inputs to be ignored, got %v", err)
	}
}

func TestDefaultPasswordValidator_RejectsRepeatedRun(t *testing.T) {
	validator := DefaultPasswordValidator()

	err := validator.Validate("Gooood!Pass7")
	if err == nil {
		t.Fatalf("expected repeated run to be rejected")
	}
	if codes := violationCodes(t, err); !codes["repeated_run"] {
		t.Fatalf("expected repeated_run violation, got %v", codes)
	}
}

func TestDefaultPasswordValidator_StrengthFloor(t *testing.T) {
	validator := DefaultPasswordValidator()

	// Dictionary-word composites satisfy every character-class rule yet still
	// score below the strength floor.
	for _, password := range []string{"Va5t!Horizon", "An0ther!Secret7"} {
		err := validator.Validate(password)
		if err == nil {
			t.Fatalf("expected %q to be rejected", password)
		}
		if codes := violationCodes(t, err); !codes["strength"] {
			t.Fatalf("expected strength violation for %q, got %v", password, codes)
		}
	}

	if err := validator.Validate("Str0ng!Pass99"); err != nil {
		t.Fatalf("expected Str0ng!Pass99 to clear the floor, got %v", err)
	}
}

func TestDefaultPasswordValidator_RejectsCommonPassword(t *testing.T) {
	validator := DefaultPasswordValidator()

	err := validator.Validate("Password1!")
	if err == nil {
		t.Fatalf("expected common password to be rejected")
	}
	if codes := violationCodes(t, err); !codes["strength"] {
		t.Fatalf("expected strength violation, got %v", codes)
	}
}
