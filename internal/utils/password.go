package utils

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted by CheckPasswordPolicy.
const MinPasswordLength = 8

// Password policy rules reported by PolicyViolation.Rule.
const (
	RuleMinLength = "min_length"
	RuleUppercase = "uppercase"
	RuleLowercase = "lowercase"
	RuleDigit     = "digit"
)

// PolicyViolation names the first password rule that failed.
type PolicyViolation struct {
	Rule    string
	Message string
}

func (e *PolicyViolation) Error() string { return e.Message }

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password. A
// malformed hash is reported as a mismatch.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CheckPasswordPolicy accepts passwords of at least MinPasswordLength
// characters with an uppercase letter, a lowercase letter and a digit.
// Rules are checked in that order and the first failure is returned as a
// *PolicyViolation.
func CheckPasswordPolicy(plain string) error {
	if len([]rune(plain)) < MinPasswordLength {
		return &PolicyViolation{
			Rule:    RuleMinLength,
			Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength),
		}
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	switch {
	case !hasUpper:
		return &PolicyViolation{Rule: RuleUppercase, Message: "password must contain at least one uppercase letter"}
	case !hasLower:
		return &PolicyViolation{Rule: RuleLowercase, Message: "password must contain at least one lowercase letter"}
	case !hasDigit:
		return &PolicyViolation{Rule: RuleDigit, Message: "password must contain at least one digit"}
	}
	return nil
}
