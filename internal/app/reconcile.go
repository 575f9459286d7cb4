package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/metrics"
	"github.com/tartampluch/remindme/internal/model"
	"github.com/tartampluch/remindme/internal/store"
)

// ApplyExternalChange overwrites the matching in-memory collection with a
// value written elsewhere. Only non-empty values of the active account's
// namespace are applied; it reports whether the view changed.
func (s *State) ApplyExternalChange(ctx context.Context, key string, value []byte) bool {
	kind, email, ok := store.ParseUserKey(key)
	if !ok || len(value) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if email != s.email {
		return false
	}

	var err error
	switch kind {
	case store.KindBirthdays:
		var bs []model.Birthday
		if err = json.Unmarshal(value, &bs); err == nil && bs != nil {
			s.birthdays = bs
		}
	case store.KindNotes:
		var ns []model.Note
		if err = json.Unmarshal(value, &ns); err == nil && ns != nil {
			s.notes = ns
		}
	case store.KindProfile:
		var p model.Profile
		if err = json.Unmarshal(value, &p); err == nil {
			s.profile = p
		}
	}
	if err != nil {
		s.discardCorrupt(ctx, key, err)
		return false
	}

	metrics.Reconciled()
	slog.DebugContext(ctx, config.MsgReconciled,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyKey, key)
	return true
}

// Watch applies changes observed by the backend until ctx is done. Backends
// without change notification make it return immediately.
func (s *State) Watch(ctx context.Context) error {
	w, ok := s.backend.(store.Watcher)
	if !ok {
		return nil
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for c := range changes {
		s.ApplyExternalChange(ctx, c.Key, c.Value)
	}
	return nil
}
