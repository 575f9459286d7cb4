// Package store provides the key/value substrate that every account's data
// is persisted in, with in-memory, file, SQLite and Redis backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tartampluch/remindme/internal/config"
)

var (
	// ErrNotFound is returned when a key has never been written or was deleted.
	ErrNotFound = errors.New(config.ErrStoreNotFound)

	// ErrCorrupt wraps values that exist but cannot be decoded.
	ErrCorrupt = errors.New(config.ErrStoreCorrupt)
)

// Backend is a flat key/value store. Values are opaque bytes; callers use
// GetJSON and SetJSON for structured records.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Change is a write observed from another process or handle. Value is nil
// when the key was deleted.
type Change struct {
	Key   string
	Value []byte
}

// Watcher is implemented by backends that can observe writes they did not
// make themselves. The channel is closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}

// GetJSON reads key and decodes it into v. A value that fails to decode is
// reported as ErrCorrupt.
func GetJSON(ctx context.Context, b Backend, key string, v any) error {
	raw, err := b.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, b Backend, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	return b.Set(ctx, key, raw)
}

// Kind names a per-account collection.
type Kind string

const (
	KindBirthdays Kind = config.KeyBirthdays
	KindNotes     Kind = config.KeyNotes
	KindProfile   Kind = config.KeyProfile
	KindNotified  Kind = config.KeyNotified
)

// UserKey builds the namespaced key of a collection for an account.
func UserKey(kind Kind, email string) string {
	return string(kind) + config.KeySep + email
}

// NotifiedKey builds the reminder marker key for an account.
func NotifiedKey(email, dedupe string) string {
	return UserKey(KindNotified, email) + config.KeySep + dedupe
}

// ParseUserKey splits a namespaced collection key. Marker keys are not
// collections and are rejected.
func ParseUserKey(key string) (Kind, string, bool) {
	for _, kind := range []Kind{KindBirthdays, KindNotes, KindProfile} {
		if email, ok := strings.CutPrefix(key, string(kind)+config.KeySep); ok && email != "" {
			return kind, email, true
		}
	}
	return "", "", false
}
