package account

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
)

// ValidatePassword enforces the strength rule: a minimum length and at least
// one ASCII character of each class (upper, lower, digit, special).
func ValidatePassword(password string) error {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case strings.ContainsRune(config.PasswordUpper, r):
			upper = true
		case strings.ContainsRune(config.PasswordLower, r):
			lower = true
		case strings.ContainsRune(config.PasswordDigits, r):
			digit = true
		case strings.ContainsRune(config.PasswordSpecials, r):
			special = true
		}
	}

	if utf8.RuneCountInString(password) < config.PasswordMinLength || !upper || !lower || !digit || !special {
		return model.NewValidationError("password", config.ErrPasswordWeak)
	}
	return nil
}

// SuggestPassword generates a random password that passes ValidatePassword.
func SuggestPassword() (string, error) {
	classes := []string{config.PasswordUpper, config.PasswordLower, config.PasswordDigits, config.PasswordSpecials}
	all := strings.Join(classes, "")

	out := make([]byte, 0, config.PasswordSuggestLength)
	for _, class := range classes {
		c, err := pick(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < config.PasswordSuggestLength {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates so the guaranteed classes are not always in front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func pick(charset string) (byte, error) {
	i, err := randInt(len(charset))
	if err != nil {
		return 0, err
	}
	return charset[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrSecretGenerate, err)
	}
	return int(v.Int64()), nil
}
