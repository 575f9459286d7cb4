package app

import (
	"context"
	"log/slog"
	"slices"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
	"github.com/tartampluch/remindme/internal/store"
)

// Every mutation persists the changed collection before the in-memory view is
// updated, so a failed write leaves both unchanged.

// AddBirthday validates b, assigns it an id and appends it.
func (s *State) AddBirthday(ctx context.Context, b model.Birthday) (model.Birthday, error) {
	if err := b.Validate(); err != nil {
		return model.Birthday{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.email == "" {
		return model.Birthday{}, ErrNoSession
	}
	b.ID = model.NewID(s.clock.Now())
	next := append(slices.Clone(s.birthdays), b)
	if err := s.saveBirthdaysLocked(ctx, next); err != nil {
		return model.Birthday{}, err
	}
	return b, nil
}

// ImportBirthdays appends already-built birthdays, such as a vCard import.
// Entries without an id get one.
func (s *State) ImportBirthdays(ctx context.Context, bs []model.Birthday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.email == "" {
		return ErrNoSession
	}
	next := slices.Clone(s.birthdays)
	for _, b := range bs {
		if b.ID == "" {
			b.ID = model.NewID(s.clock.Now())
		}
		next = append(next, b)
	}
	return s.saveBirthdaysLocked(ctx, next)
}

// UpdateBirthday merges patch into the birthday with the given id. Reminder
// flags are merged one by one with the stored ones.
func (s *State) UpdateBirthday(ctx context.Context, id string, patch model.BirthdayPatch) (model.Birthday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.email == "" {
		return model.Birthday{}, ErrNoSession
	}
	i := slices.IndexFunc(s.birthdays, func(b model.Birthday) bool { return b.ID == id })
	if i < 0 {
		return model.Birthday{}, ErrNotFound
	}

	updated := patch.Apply(s.birthdays[i])
	if err := updated.Validate(); err != nil {
		return model.Birthday{}, err
	}
	next := slices.Clone(s.birthdays)
	next[i] = updated
	if err := s.saveBirthdaysLocked(ctx, next); err != nil {
		return model.Birthday{}, err
	}
	return updated, nil
}

// DeleteBirthday removes a birthday.
func (s *State) DeleteBirthday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.email == "" {
		return ErrNoSession
	}
	i := slices.IndexFunc(s.birthdays, func(b model.Birthday) bool { return b.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	next := slices.Delete(slices.Clone(s.birthdays), i, i+1)
	return s.saveBirthdaysLocked(ctx, next)
}

// AddNote prepends a note, newest first.
func (s *State) AddNote(ctx context.Context, n model.Note) (model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.email == "" {
		return model.Note{}, ErrNoSession
	}
	now := s.clock.Now()
	n.ID = model.NewID(now)
	n.CreatedAt = now.UTC()

	next := append([]model.Note{n}, s.notes...)
	if err := s.saveNotesLocked(ctx, next); err != nil {
		return model.Note{}, err
	}
	return n, nil
}

// UpdateNote merges patch into the note with the given id.
func (s *State) UpdateNote(ctx context.Context, id string, patch model.NotePatch) (model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.email == "" {
		return model.Note{}, ErrNoSession
	}
	i := slices.IndexFunc(s.notes, func(n model.Note) bool { return n.ID == id })
	if i < 0 {
		return model.Note{}, ErrNotFound
	}

	next := slices.Clone(s.notes)
	next[i] = patch.Apply(next[i])
	if err := s.saveNotesLocked(ctx, next); err != nil {
		return model.Note{}, err
	}
	return next[i], nil
}

// DeleteNote removes a note.
func (s *State) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.email == "" {
		return ErrNoSession
	}
	i := slices.IndexFunc(s.notes, func(n model.Note) bool { return n.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	return s.saveNotesLocked(ctx, slices.Delete(slices.Clone(s.notes), i, i+1))
}

// UpdateProfile replaces the profile of the active account.
func (s *State) UpdateProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	if err := p.Validate(); err != nil {
		return model.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.email == "" {
		return model.Profile{}, ErrNoSession
	}
	if err := store.SetJSON(ctx, s.backend, store.UserKey(store.KindProfile, s.email), p); err != nil {
		return model.Profile{}, err
	}
	s.profile = p
	return p, nil
}

func (s *State) saveBirthdaysLocked(ctx context.Context, next []model.Birthday) error {
	if err := store.SetJSON(ctx, s.backend, store.UserKey(store.KindBirthdays, s.email), next); err != nil {
		return err
	}
	s.birthdays = next
	return nil
}

func (s *State) saveNotesLocked(ctx context.Context, next []model.Note) error {
	if err := store.SetJSON(ctx, s.backend, store.UserKey(store.KindNotes, s.email), next); err != nil {
		return err
	}
	s.notes = next
	return nil
}

// ClearData deletes everything stored for the active account: birthdays,
// notes, profile and notification markers. The account itself and the
// session stay; the view falls back to the profile derived from the email.
func (s *State) ClearData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.email == "" {
		return ErrNoSession
	}

	keys, err := s.backend.Keys(ctx, store.NotifiedKey(s.email, ""))
	if err != nil {
		return err
	}
	for _, kind := range []store.Kind{store.KindBirthdays, store.KindNotes, store.KindProfile} {
		keys = append(keys, store.UserKey(kind, s.email))
	}
	for _, key := range keys {
		if err := s.backend.Delete(ctx, key); err != nil {
			return err
		}
	}

	s.birthdays = []model.Birthday{}
	s.notes = []model.Note{}
	s.profile = model.DefaultProfile(s.email)

	slog.InfoContext(ctx, config.MsgDataCleared,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyUser, s.email,
		config.LogKeyCount, len(keys))
	return nil
}
