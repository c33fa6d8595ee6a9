package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 12

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// ValidatePassword enforces the password policy: length plus at least one
// letter and one digit.
func ValidatePassword(password string) error {
	problems := map[string]any{}
	if len([]rune(password)) < MinPasswordLength {
		problems["length"] = MinPasswordLength
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter {
		problems["letter"] = "required"
	}
	if !digit {
		problems["digit"] = "required"
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError("password does not meet policy", map[string]any{"password": problems})
	}
	return nil
}
