package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/store"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// backends returns every backend available in this environment. Redis is
// only exercised when REMINDME_TEST_REDIS_ADDR points at a disposable server.
func backends(t *testing.T) map[string]store.Backend {
	t.Helper()
	ctx := context.Background()

	file, err := store.NewFile(t.TempDir())
	require.NoError(t, err)

	sqlite, err := store.NewSQLite(ctx, t.TempDir())
	require.NoError(t, err)

	out := map[string]store.Backend{
		config.BackendMemory: store.NewMemory(),
		config.BackendFile:   file,
		config.BackendSQLite: sqlite,
	}

	if addr := os.Getenv("REMINDME_TEST_REDIS_ADDR"); addr != "" {
		r, err := store.NewRedis(ctx, config.StoreSettings{RedisAddr: addr, RedisDB: 15})
		require.NoError(t, err)
		out[config.BackendRedis] = r
	}

	for _, b := range out {
		t.Cleanup(func() { _ = b.Close() })
	}
	return out
}

func TestBackend_Contract(t *testing.T) {
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get(ctx, "missing")
			assert.ErrorIs(t, err, store.ErrNotFound)

			require.NoError(t, b.Set(ctx, "remindme_birthdays_a@x.io", []byte(`[1]`)))
			require.NoError(t, b.Set(ctx, "remindme_birthdays_A@x.io", []byte(`[2]`)))
			require.NoError(t, b.Set(ctx, "remindme_notes_a@x.io", []byte(`[]`)))
			require.NoError(t, b.Set(ctx, "remindme_birthdays_a@x.io", []byte(`[3]`)))

			v, err := b.Get(ctx, "remindme_birthdays_a@x.io")
			require.NoError(t, err)
			assert.Equal(t, `[3]`, string(v), "last write wins")

			keys, err := b.Keys(ctx, "remindme_birthdays_a")
			require.NoError(t, err)
			assert.Equal(t, []string{"remindme_birthdays_a@x.io"}, keys, "prefix match is case-sensitive")

			all, err := b.Keys(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			require.NoError(t, b.Delete(ctx, "remindme_notes_a@x.io"))
			require.NoError(t, b.Delete(ctx, "remindme_notes_a@x.io"), "deleting twice is not an error")
			_, err = b.Get(ctx, "remindme_notes_a@x.io")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	b := store.NewMemory()

	type rec struct {
		Name string `json:"name"`
	}
	require.NoError(t, store.SetJSON(ctx, b, "k", rec{Name: "x"}))

	var got rec
	require.NoError(t, store.GetJSON(ctx, b, "k", &got))
	assert.Equal(t, "x", got.Name)

	require.NoError(t, b.Set(ctx, "bad", []byte("{not json")))
	err := store.GetJSON(ctx, b, "bad", &got)
	assert.ErrorIs(t, err, store.ErrCorrupt)

	assert.ErrorIs(t, store.GetJSON(ctx, b, "absent", &got), store.ErrNotFound)
}

func TestKeys_Namespacing(t *testing.T) {
	assert.Equal(t, "remindme_birthdays_me@x.io", store.UserKey(store.KindBirthdays, "me@x.io"))
	assert.Equal(t, "remindme_user_profile_me@x.io", store.UserKey(store.KindProfile, "me@x.io"))
	assert.Equal(t, "remindme_notified_me@x.io_01J_today_2025-06-15", store.NotifiedKey("me@x.io", "01J_today_2025-06-15"))

	tests := []struct {
		key   string
		kind  store.Kind
		email string
		ok    bool
	}{
		{"remindme_birthdays_me@x.io", store.KindBirthdays, "me@x.io", true},
		{"remindme_notes_me@x.io", store.KindNotes, "me@x.io", true},
		{"remindme_user_profile_me@x.io", store.KindProfile, "me@x.io", true},
		{"remindme_notified_me@x.io_01J_today", "", "", false},
		{"remindme_current_user", "", "", false},
		{"remindme_birthdays_", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			kind, email, ok := store.ParseUserKey(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.email, email)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{config.BackendMemory, config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			b, err := store.Open(ctx, config.StoreSettings{Backend: backend, Path: t.TempDir()})
			require.NoError(t, err)
			require.NoError(t, b.Close())
		})
	}

	_, err := store.Open(ctx, config.StoreSettings{Backend: "etcd"})
	assert.ErrorContains(t, err, config.ErrBackendUnsupported)
}

func TestSQLite_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := store.NewSQLite(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", []byte("v")))
	require.NoError(t, first.Close())

	second, err := store.NewSQLite(ctx, dir)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	v, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}

// drain waits for a watch channel to close after cancellation.
func drain(t *testing.T, ch <-chan store.Change) {
	t.Helper()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("watch channel was not closed")
		}
	}
}

func receive(t *testing.T, ch <-chan store.Change) store.Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no change observed")
		return store.Change{}
	}
}

func TestMemory_WatchSeesPeersOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mine := store.NewMemory()
	other := mine.Peer()

	ch, err := mine.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, mine.Set(ctx, "own", []byte("1")))
	require.NoError(t, other.Set(ctx, "theirs", []byte("2")))

	c := receive(t, ch)
	assert.Equal(t, "theirs", c.Key)
	assert.Equal(t, "2", string(c.Value))

	require.NoError(t, other.Delete(ctx, "theirs"))
	c = receive(t, ch)
	assert.Equal(t, "theirs", c.Key)
	assert.Nil(t, c.Value)

	v, err := other.Get(ctx, "own")
	require.NoError(t, err)
	assert.Equal(t, "1", string(v), "peers share data")

	cancel()
	drain(t, ch)
}

func TestFile_WatchSeesOtherHandles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	dir := t.TempDir()

	mine, err := store.NewFile(dir)
	require.NoError(t, err)
	other, err := store.NewFile(dir)
	require.NoError(t, err)

	ch, err := mine.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, mine.Set(ctx, "remindme_notes_me@x.io", []byte(`["mine"]`)))
	require.NoError(t, other.Set(ctx, "remindme_notes_me@x.io", []byte(`["theirs"]`)))

	c := receive(t, ch)
	assert.Equal(t, "remindme_notes_me@x.io", c.Key)
	assert.Equal(t, `["theirs"]`, string(c.Value))

	cancel()
	drain(t, ch)
}
