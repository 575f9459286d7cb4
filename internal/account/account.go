// Package account manages the accounts registered on this device, their
// password rules and the remembered login.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
	"github.com/tartampluch/remindme/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateAccount  = errors.New(config.ErrDuplicateAccount)
	ErrUnknownAccount    = errors.New(config.ErrUnknownAccount)
	ErrInvalidCredential = errors.New(config.ErrInvalidCredential)
)

// Service registers and authenticates accounts against the credential list
// kept in the store.
type Service struct {
	backend store.Backend
	cost    int
	now     func() time.Time

	// mu serialises the read-modify-write of the credential list.
	mu sync.Mutex
}

// Option customises a Service.
type Option func(*Service)

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithNow overrides the time source used for CreatedAt.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service on top of the backend.
func NewService(backend store.Backend, opts ...Option) *Service {
	s := &Service{backend: backend, cost: bcrypt.DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a new account. The password must satisfy ValidatePassword;
// only its bcrypt hash is stored.
func (s *Service) Register(ctx context.Context, email, password string) (model.Credential, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return model.Credential{}, model.NewValidationError("email", config.ErrEmailRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load(ctx)
	if err != nil {
		return model.Credential{}, err
	}
	// An existing email is rejected whatever password comes with it.
	if slices.ContainsFunc(creds, func(c model.Credential) bool { return c.Email == email }) {
		return model.Credential{}, ErrDuplicateAccount
	}
	if err := ValidatePassword(password); err != nil {
		return model.Credential{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.Credential{}, fmt.Errorf("%s: %w", config.ErrPasswordHash, err)
	}

	cred := model.Credential{Email: email, PasswordHash: string(hash), CreatedAt: s.now().UTC()}
	if err := store.SetJSON(ctx, s.backend, config.KeyRegisteredUsers, append(creds, cred)); err != nil {
		return model.Credential{}, err
	}

	slog.InfoContext(ctx, config.MsgRegistered,
		config.LogKeyComponent, config.CompAccount,
		config.LogKeyUser, email)
	return cred, nil
}

// Authenticate checks a password against the stored hash.
func (s *Service) Authenticate(ctx context.Context, email, password string) (model.Credential, error) {
	email = model.NormalizeEmail(email)

	s.mu.Lock()
	creds, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return model.Credential{}, err
	}

	i := slices.IndexFunc(creds, func(c model.Credential) bool { return c.Email == email })
	if i < 0 {
		return model.Credential{}, ErrUnknownAccount
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds[i].PasswordHash), []byte(password)); err != nil {
		return model.Credential{}, ErrInvalidCredential
	}
	return creds[i], nil
}

// Exists reports whether email is registered.
func (s *Service) Exists(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	email = model.NormalizeEmail(email)
	return slices.ContainsFunc(creds, func(c model.Credential) bool { return c.Email == email }), nil
}

// load reads the credential list. A missing list is empty; a corrupt one is
// an error so a registration never overwrites accounts it could not read.
func (s *Service) load(ctx context.Context) ([]model.Credential, error) {
	var creds []model.Credential
	err := store.GetJSON(ctx, s.backend, config.KeyRegisteredUsers, &creds)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return creds, nil
}
