package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/remindme/internal/account"
	"github.com/tartampluch/remindme/internal/app"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
	"github.com/tartampluch/remindme/internal/store"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const password = "Secr3t!pass"

type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time { return m.CurrentTime }

var clock = MockClock{CurrentTime: time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)}

// fixture registers jane and bob on a fresh memory backend.
func fixture(t *testing.T) (*app.State, *store.Memory) {
	t.Helper()
	ctx := context.Background()
	backend := store.NewMemory()
	accounts := account.NewService(backend, account.WithCost(bcrypt.MinCost))
	for _, email := range []string{"jane@x.io", "bob@x.io"} {
		_, err := accounts.Register(ctx, email, password)
		require.NoError(t, err)
	}
	return app.New(backend, accounts, clock), backend
}

func birthday(name string, month time.Month, day int) model.Birthday {
	return model.Birthday{
		Name:         name,
		Date:         model.NewDate(1990, month, day),
		Relationship: model.RelationshipFriend,
	}
}

func TestGuestDefaults(t *testing.T) {
	s, _ := fixture(t)
	snap := s.Snapshot()

	assert.False(t, snap.Active())
	assert.Empty(t, snap.Birthdays)
	assert.NotNil(t, snap.Birthdays)
	assert.Equal(t, model.GuestProfile(), snap.Profile)
}

func TestMutationsRequireSession(t *testing.T) {
	ctx := context.Background()
	s, backend := fixture(t)

	_, err := s.AddBirthday(ctx, birthday("Ann", time.May, 1))
	assert.ErrorIs(t, err, app.ErrNoSession)
	_, err = s.AddNote(ctx, model.Note{Title: "t"})
	assert.ErrorIs(t, err, app.ErrNoSession)
	_, err = s.UpdateProfile(ctx, model.Profile{Name: "x"})
	assert.ErrorIs(t, err, app.ErrNoSession)
	assert.ErrorIs(t, s.DeleteBirthday(ctx, "id"), app.ErrNoSession)
	assert.ErrorIs(t, s.ImportBirthdays(ctx, nil), app.ErrNoSession)

	keys, err := backend.Keys(ctx, config.KeyBirthdays)
	require.NoError(t, err)
	assert.Empty(t, keys, "nothing is written without a session")
	assert.NoError(t, s.Flush(ctx), "flushing a guest is a no-op")
}

func TestLogin_LoadsDefaultsAndPersistsPointer(t *testing.T) {
	ctx := context.Background()
	s, backend := fixture(t)

	require.NoError(t, s.Login(ctx, "jane@x.io", password))
	snap := s.Snapshot()
	assert.Equal(t, "jane@x.io", snap.Email)
	assert.Equal(t, "jane", snap.Profile.Name)
	assert.Empty(t, snap.Notes)

	var current string
	require.NoError(t, store.GetJSON(ctx, backend, config.KeyCurrentUser, &current))
	assert.Equal(t, "jane@x.io", current)

	assert.ErrorIs(t, s.Login(ctx, "jane@x.io", "Wr0ng!pass"), account.ErrInvalidCredential)
	assert.ErrorIs(t, s.Login(ctx, "ghost@x.io", password), account.ErrUnknownAccount)
	assert.Equal(t, "jane@x.io", s.Email(), "a failed login keeps the current session")
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	s, _ := fixture(t)

	require.NoError(t, s.Login(ctx, "jane@x.io", password))
	_, err := s.AddBirthday(ctx, birthday("Ann", time.May, 1))
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx))
	assert.Empty(t, s.Snapshot().Birthdays, "logout clears the view")

	require.NoError(t, s.Login(ctx, "bob@x.io", password))
	assert.Empty(t, s.Snapshot().Birthdays, "bob never sees jane's data")

	require.NoError(t, s.Login(ctx, "jane@x.io", password))
	require.Len(t, s.Snapshot().Birthdays, 1, "stored data survives logout")
	assert.Equal(t, "Ann", s.Snapshot().Birthdays[0].Name)
}

func TestBirthdayLifecycle(t *testing.T) {
	ctx := context.Background()
	s, backend := fixture(t)
	require.NoError(t, s.Login(ctx, "jane@x.io", password))

	_, err := s.AddBirthday(ctx, model.Birthday{Name: " "})
	assert.ErrorIs(t, err, model.ErrValidation)

	added, err := s.AddBirthday(ctx, birthday("Ann", time.May, 1))
	require.NoError(t, err)
	assert.Len(t, added.ID, 26)

	got, err := s.Birthday(added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)

	off := false
	updated, err := s.UpdateBirthday(ctx, added.ID, model.BirthdayPatch{
		Reminders: &model.RemindersPatch{SevenDays: new(bool), OneDay: &off},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann", updated.Name, "unpatched fields are kept")
	assert.Equal(t, model.Reminders{}, updated.ReminderSettings())

	on := true
	updated, err = s.UpdateBirthday(ctx, added.ID, model.BirthdayPatch{Reminders: &model.RemindersPatch{TwoDays: &on}})
	require.NoError(t, err)
	assert.Equal(t, model.Reminders{TwoDays: true}, updated.ReminderSettings(), "flags merge one by one")

	empty := ""
	_, err = s.UpdateBirthday(ctx, added.ID, model.BirthdayPatch{Name: &empty})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = s.UpdateBirthday(ctx, "nope", model.BirthdayPatch{})
	assert.ErrorIs(t, err, app.ErrNotFound)

	var stored []model.Birthday
	require.NoError(t, store.GetJSON(ctx, backend, store.UserKey(store.KindBirthdays, "jane@x.io"), &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, model.Reminders{TwoDays: true}, stored[0].ReminderSettings(), "every mutation is persisted")

	require.NoError(t, s.DeleteBirthday(ctx, added.ID))
	assert.ErrorIs(t, s.DeleteBirthday(ctx, added.ID), app.ErrNotFound)
	assert.Empty(t, s.Snapshot().Birthdays)
}

func TestImportBirthdays(t *testing.T) {
	ctx := context.Background()
	s, _ := fixture(t)
	require.NoError(t, s.Login(ctx, "jane@x.io", password))

	require.NoError(t, s.ImportBirthdays(ctx, []model.Birthday{
		birthday("Ann", time.May, 1),
		{ID: "kept", Name: "Ben", Date: model.NewDate(1980, 1, 2), Relationship: model.RelationshipOther},
	}))
	bs := s.Snapshot().Birthdays
	require.Len(t, bs, 2)
	assert.NotEmpty(t, bs[0].ID)
	assert.Equal(t, "kept", bs[1].ID)
}

func TestNotesArePrepended(t *testing.T) {
	ctx := context.Background()
	s, _ := fixture(t)
	require.NoError(t, s.Login(ctx, "jane@x.io", password))

	first, err := s.AddNote(ctx, model.Note{Title: "first"})
	require.NoError(t, err)
	assert.Equal(t, clock.CurrentTime, first.CreatedAt)

	second, err := s.AddNote(ctx, model.Note{Title: "second"})
	require.NoError(t, err)

	notes := s.Snapshot().Notes
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID)

	desc := "updated"
	n, err := s.UpdateNote(ctx, first.ID, model.NotePatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "first", n.Title)
	assert.Equal(t, "updated", n.Description)

	require.NoError(t, s.DeleteNote(ctx, second.ID))
	assert.ErrorIs(t, s.DeleteNote(ctx, second.ID), app.ErrNotFound)
	assert.Len(t, s.Snapshot().Notes, 1)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	s, _ := fixture(t)
	require.NoError(t, s.Login(ctx, "jane@x.io", password))

	_, err := s.UpdateProfile(ctx, model.Profile{Name: "Jane", Gender: "robot"})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, "jane", s.Snapshot().Profile.Name, "rejected updates change nothing")

	p, err := s.UpdateProfile(ctx, model.Profile{Name: "Jane", NotificationsEnabled: false})
	require.NoError(t, err)
	assert.Equal(t, p, s.Snapshot().Profile)

	require.NoError(t, s.Logout(ctx))
	require.NoError(t, s.Login(ctx, "jane@x.io", password))
	assert.Equal(t, "Jane", s.Snapshot().Profile.Name)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	s, backend := fixture(t)

	ok, err := s.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "nothing to restore")

	require.NoError(t, s.Login(ctx, "jane@x.io", password))
	_, err = s.AddBirthday(ctx, birthday("Ann", time.May, 1))
	require.NoError(t, err)

	restarted := app.New(backend, account.NewService(backend), clock)
	ok, err = restarted.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, restarted.Snapshot().Birthdays, 1)

	require.NoError(t, store.SetJSON(ctx, backend, config.KeyCurrentUser, "ghost@x.io"))
	ok, err = app.New(backend, account.NewService(backend), clock).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a pointer to an unknown account is dropped")
	_, err = backend.Get(ctx, config.KeyCurrentUser)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCorruptCollectionsDegradeToEmpty(t *testing.T) {
	ctx := context.Background()
	s, backend := fixture(t)

	require.NoError(t, backend.Set(ctx, store.UserKey(store.KindBirthdays, "jane@x.io"), []byte("{broken")))
	require.NoError(t, backend.Set(ctx, store.UserKey(store.KindProfile, "jane@x.io"), []byte("[]")))

	require.NoError(t, s.Login(ctx, "jane@x.io", password))
	snap := s.Snapshot()
	assert.Empty(t, snap.Birthdays)
	assert.Equal(t, model.DefaultProfile("jane@x.io"), snap.Profile)

	_, err := s.AddBirthday(ctx, birthday("Ann", time.May, 1))
	require.NoError(t, err, "the corrupt value is replaced on the next write")
}

func TestFlush(t *testing.T) {
	ctx := context.Background()
	s, backend := fixture(t)
	require.NoError(t, s.Login(ctx, "jane@x.io", password))
	_, err := s.AddNote(ctx, model.Note{Title: "keep"})
	require.NoError(t, err)

	require.NoError(t, backend.Delete(ctx, store.UserKey(store.KindNotes, "jane@x.io")))
	require.NoError(t, s.Flush(ctx))

	var notes []model.Note
	require.NoError(t, store.GetJSON(ctx, backend, store.UserKey(store.KindNotes, "jane@x.io"), &notes))
	assert.Len(t, notes, 1)
}

func TestClearData(t *testing.T) {
	ctx := context.Background()
	s, backend := fixture(t)

	assert.ErrorIs(t, s.ClearData(ctx), app.ErrNoSession)

	require.NoError(t, s.Login(ctx, "bob@x.io", password))
	_, err := s.AddBirthday(ctx, birthday("Bea", time.July, 2))
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, store.NotifiedKey("bob@x.io", "x_today_2025-07-02"), []byte(`"t"`)))

	require.NoError(t, s.Login(ctx, "jane@x.io", password))
	_, err = s.AddBirthday(ctx, birthday("Ann", time.May, 1))
	require.NoError(t, err)
	_, err = s.AddNote(ctx, model.Note{Title: "gift"})
	require.NoError(t, err)
	_, err = s.UpdateProfile(ctx, model.Profile{Name: "Jane", Gender: model.GenderFemale})
	require.NoError(t, err)
	require.NoError(t, backend.Set(ctx, store.NotifiedKey("jane@x.io", "a_today_2025-05-01"), []byte(`"t"`)))

	require.NoError(t, s.ClearData(ctx))

	snap := s.Snapshot()
	assert.Equal(t, "jane@x.io", snap.Email, "the session survives a reset")
	assert.Empty(t, snap.Birthdays)
	assert.NotNil(t, snap.Birthdays)
	assert.Empty(t, snap.Notes)
	assert.Equal(t, model.DefaultProfile("jane@x.io"), snap.Profile)

	for _, kind := range []store.Kind{store.KindBirthdays, store.KindNotes, store.KindProfile} {
		_, err := backend.Get(ctx, store.UserKey(kind, "jane@x.io"))
		assert.ErrorIs(t, err, store.ErrNotFound, kind)
	}
	markers, err := backend.Keys(ctx, store.NotifiedKey("jane@x.io", ""))
	require.NoError(t, err)
	assert.Empty(t, markers)

	others, err := backend.Keys(ctx, store.NotifiedKey("bob@x.io", ""))
	require.NoError(t, err)
	assert.Len(t, others, 1, "other accounts keep their markers")
	_, err = backend.Get(ctx, store.UserKey(store.KindBirthdays, "bob@x.io"))
	assert.NoError(t, err, "other accounts keep their data")

	require.NoError(t, s.Logout(ctx))
	require.NoError(t, s.Login(ctx, "jane@x.io", password))
	assert.Empty(t, s.Snapshot().Birthdays, "the reset is persistent")
}
