package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/remindme/internal/account"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
	"github.com/tartampluch/remindme/internal/store"
	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "Secr3t!pass"

func newService(b store.Backend) *account.Service {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return account.NewService(b,
		account.WithCost(bcrypt.MinCost),
		account.WithNow(func() time.Time { return fixed }),
	)
}

func TestRegister_RejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemory())

	cred, err := svc.Register(ctx, " jane@example.com ", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", cred.Email)
	assert.NotEqual(t, strongPassword, cred.PasswordHash, "password must never be stored in plaintext")

	_, err = svc.Register(ctx, "jane@example.com", strongPassword)
	assert.ErrorIs(t, err, account.ErrDuplicateAccount)

	_, err = svc.Register(ctx, "jane@example.com", "weak")
	assert.ErrorIs(t, err, account.ErrDuplicateAccount, "duplicates win over password validation")
	assert.NotErrorIs(t, err, model.ErrValidation)

	_, err = svc.Register(ctx, "Jane@example.com", strongPassword)
	assert.NoError(t, err, "emails are matched case-sensitively")
}

func TestRegister_Validation(t *testing.T) {
	svc := newService(store.NewMemory())

	_, err := svc.Register(context.Background(), "  ", strongPassword)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Register(context.Background(), "a@b.c", "weak")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemory())
	_, err := svc.Register(ctx, "jane@example.com", strongPassword)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"Correct", "jane@example.com", strongPassword, nil},
		{"Trimmed Email", " jane@example.com", strongPassword, nil},
		{"Wrong Password", "jane@example.com", "Wrong!pass1", account.ErrInvalidCredential},
		{"Unknown Email", "john@example.com", strongPassword, account.ErrUnknownAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := svc.Authenticate(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "jane@example.com", cred.Email)
		})
	}
}

func TestCredentialsSurviveNewService(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemory()

	_, err := newService(b).Register(ctx, "jane@example.com", strongPassword)
	require.NoError(t, err)

	ok, err := newService(b).Exists(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegister_CorruptListIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemory()
	require.NoError(t, b.Set(ctx, config.KeyRegisteredUsers, []byte("{oops")))

	_, err := newService(b).Register(ctx, "jane@example.com", strongPassword)
	assert.ErrorIs(t, err, store.ErrCorrupt)

	raw, err := b.Get(ctx, config.KeyRegisteredUsers)
	require.NoError(t, err)
	assert.Equal(t, "{oops", string(raw))
}

func TestRemembered(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	b := store.NewMemory()
	r := account.NewRemembered(b)

	email, err := r.Email(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)

	require.NoError(t, r.Save(ctx, "jane@example.com", strongPassword))

	email, err = r.Email(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", email)

	pw, ok, err := r.Password(email)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, strongPassword, pw)

	raw, err := b.Get(ctx, config.KeyRememberedEmail)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), strongPassword, "the password stays out of the store")

	require.NoError(t, r.Forget(ctx))
	email, err = r.Email(ctx)
	require.NoError(t, err)
	assert.Empty(t, email)

	_, ok, err = r.Password("jane@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionSecret(t *testing.T) {
	keyring.MockInit()

	configured, err := account.SessionSecret("from-config")
	require.NoError(t, err)
	assert.Equal(t, []byte("from-config"), configured)

	first, err := account.SessionSecret("")
	require.NoError(t, err)
	assert.Len(t, first, config.SessionSecretLen)

	second, err := account.SessionSecret("")
	require.NoError(t, err)
	assert.Equal(t, first, second, "the generated secret is reused from the keyring")
}
