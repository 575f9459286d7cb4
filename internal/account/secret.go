package account

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/zalando/go-keyring"
)

// SessionSecret returns the key that signs session cookies. A configured
// secret wins; otherwise one is generated once and kept in the OS keyring.
// Without a usable keyring an ephemeral secret is returned, which only costs
// a re-login after restart.
func SessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}

	log := slog.With(config.LogKeyComponent, config.CompAccount)

	stored, getErr := keyring.Get(config.KeyringService, config.KeyringSecretUser)
	if getErr == nil {
		if secret, decodeErr := hex.DecodeString(stored); decodeErr == nil && len(secret) == config.SessionSecretLen {
			return secret, nil
		}
	}

	secret := make([]byte, config.SessionSecretLen)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSecretGenerate, err)
	}

	if getErr != nil && !errors.Is(getErr, keyring.ErrNotFound) {
		log.Warn(config.MsgKeyringFallback, config.LogKeyError, getErr)
		return secret, nil
	}
	if setErr := keyring.Set(config.KeyringService, config.KeyringSecretUser, hex.EncodeToString(secret)); setErr != nil {
		log.Warn(config.MsgKeyringFallback, config.LogKeyError, setErr)
		return secret, nil
	}

	log.Info(config.MsgSecretGenerated)
	return secret, nil
}
