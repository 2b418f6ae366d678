package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	defaultMinPasswordLength = 8
	defaultMaxRepeatRun      = 3
	defaultMinZxcvbnScore    = 2
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordViolations aggregates every violated rule for a single candidate
// password, so callers can report the full list rather than the first failure.
type PasswordViolations struct {
	Violations []*PasswordValidationError
}

// Error implements error for PasswordViolations.
func (e *PasswordViolations) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "password does not meet requirements"
	}
	messages := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		messages = append(messages, v.Message)
	}
	return strings.Join(messages, "; ")
}

// Messages returns the human-readable message per violated rule.
func (e *PasswordViolations) Messages() []string {
	if e == nil {
		return nil
	}
	messages := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		messages = append(messages, v.Message)
	}
	return messages
}

// PasswordRule validates a password according to a specific policy rule.
// Contextual inputs (email local part, names) are supplied per validation.
type PasswordRule interface {
	Validate(password string, inputs []string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string, inputs []string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string, inputs []string) error {
	return f(password, inputs)
}

// PasswordValidator applies a sequence of password rules and collects every violation.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// DefaultPasswordValidator returns the built-in validator enforcing the
// service password policy.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(defaultMinPasswordLength),
		RequireUppercaseRule(),
		RequireLowercaseRule(),
		RequireDigitRule(),
		RequireSymbolRule(),
		NoRepeatedRunRule(defaultMaxRepeatRun),
		NoIdentityContentRule(),
		RequirePasswordStrengthRule(defaultMinZxcvbnScore),
	)
}

// Validate executes all rules. The returned error, when non-nil, is a
// *PasswordViolations enumerating every violated rule.
func (v *PasswordValidator) Validate(password string, inputs ...string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}

	var violations []*PasswordValidationError
	for _, rule := range v.rules {
		if err := rule.Validate(password, inputs); err != nil {
			var violation *PasswordValidationError
			if pe, ok := err.(*PasswordValidationError); ok {
				violation = pe
			} else {
				violation = &PasswordValidationError{Code: "policy", Message: err.Error()}
			}
			violations = append(violations, violation)
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &PasswordViolations{Violations: violations}
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string, _ []string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	})
}

// RequireUppercaseRule ensures the password contains at least one uppercase letter.
func RequireUppercaseRule() PasswordRule {
	return PasswordRuleFunc(func(password string, _ []string) error {
		for _, r := range password {
			if unicode.IsUpper(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "uppercase",
			Message: "password must include at least one uppercase letter",
		}
	})
}

// RequireLowercaseRule ensures the password contains at least one lowercase letter.
func RequireLowercaseRule() PasswordRule {
	return PasswordRuleFunc(func(password string, _ []string) error {
		for _, r := range password {
			if unicode.IsLower(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "lowercase",
			Message: "password must include at least one lowercase letter",
		}
	})
}

// RequireDigitRule ensures the password contains at least one digit.
func RequireDigitRule() PasswordRule {
	return PasswordRuleFunc(func(password string, _ []string) error {
		for _, r := range password {
			if unicode.IsDigit(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "digit",
			Message: "password must include at least one digit",
		}
	})
}

// RequireSymbolRule ensures the password contains at least one symbol or punctuation mark.
func RequireSymbolRule() PasswordRule {
	return PasswordRuleFunc(func(password string, _ []string) error {
		for _, r := range password {
			if unicode.IsSymbol(r) || unicode.IsPunct(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "symbol",
			Message: "password must include at least one special character",
		}
	})
}

// NoRepeatedRunRule rejects passwords containing a run of maxRun or more
// identical characters.
func NoRepeatedRunRule(maxRun int) PasswordRule {
	return PasswordRuleFunc(func(password string, _ []string) error {
		if maxRun <= 1 {
			return nil
		}

		run := 0
		var prev rune
		for i, r := range password {
			if i > 0 && r == prev {
				run++
				if run+1 >= maxRun {
					return &PasswordValidationError{
						Code:    "repeated_run",
						Message: fmt.Sprintf("password must not contain %d or more repeated characters in a row", maxRun),
					}
				}
			} else {
				run = 0
			}
			prev = r
		}
		return nil
	})
}

// NoIdentityContentRule rejects passwords containing any of the contextual
// inputs (email local part, first name, last name) as a substring.
func NoIdentityContentRule() PasswordRule {
	return PasswordRuleFunc(func(password string, inputs []string) error {
		for _, input := range inputs {
			input = strings.TrimSpace(input)
			if len(input) < 3 {
				continue
			}
			if strings.Contains(password, input) {
				return &PasswordValidationError{
					Code:    "identity_content",
					Message: "password must not contain your name or email",
				}
			}
		}
		return nil
	})
}

// RequirePasswordStrengthRule enforces a minimum zxcvbn score to reject
// common and easily guessed passwords.
func RequirePasswordStrengthRule(minScore int) PasswordRule {
	return PasswordRuleFunc(func(password string, _ []string) error {
		result := zxcvbn.PasswordStrength(password, nil)
		if result.Score < minScore {
			return &PasswordValidationError{
				Code:    "strength",
				Message: "password is too common or easily guessed",
			}
		}
		return nil
	})
}
