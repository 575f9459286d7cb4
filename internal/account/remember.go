package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/store"
	"github.com/zalando/go-keyring"
)

// Remembered keeps the "remember me" login of this device. The email lives in
// the store; the password only ever goes to the OS keyring.
type Remembered struct {
	backend store.Backend
}

// NewRemembered creates a Remembered on top of the backend.
func NewRemembered(backend store.Backend) *Remembered {
	return &Remembered{backend: backend}
}

// Save stores the login for the next visit.
func (r *Remembered) Save(ctx context.Context, email, password string) error {
	if err := keyring.Set(config.KeyringService, email, password); err != nil {
		return fmt.Errorf("%s: %w", config.ErrKeyringWrite, err)
	}
	return store.SetJSON(ctx, r.backend, config.KeyRememberedEmail, email)
}

// Email returns the remembered email, or "" when nothing is remembered.
func (r *Remembered) Email(ctx context.Context) (string, error) {
	var email string
	err := store.GetJSON(ctx, r.backend, config.KeyRememberedEmail, &email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return email, err
}

// Password returns the remembered password for email. ok is false when the
// keyring holds none.
func (r *Remembered) Password(email string) (string, bool, error) {
	pw, err := keyring.Get(config.KeyringService, email)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", config.ErrKeyringRead, err)
	}
	return pw, true, nil
}

// Forget removes the remembered login. Keyring failures are logged only,
// the store entry is what the login screen reads.
func (r *Remembered) Forget(ctx context.Context) error {
	email, err := r.Email(ctx)
	if err != nil {
		return err
	}
	if email == "" {
		return nil
	}

	if err := keyring.Delete(config.KeyringService, email); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.WarnContext(ctx, config.MsgRememberFailed,
			config.LogKeyComponent, config.CompAccount,
			config.LogKeyError, err)
	}
	return r.backend.Delete(ctx, config.KeyRememberedEmail)
}
