package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/engine"
	"github.com/tartampluch/remindme/internal/i18n"
	"github.com/tartampluch/remindme/internal/metrics"
	"github.com/tartampluch/remindme/internal/model"
	"github.com/tartampluch/remindme/internal/store"
)

// Result is one reminder match and what the dispatcher did with it.
type Result struct {
	engine.Reminder
	Message  string `json:"message"`
	Outcome  string `json:"outcome"`
	Notified bool   `json:"notified"`
}

// Dispatcher turns reminder matches into notifications, at most once per
// (birthday, match type, occurrence) and account.
type Dispatcher struct {
	backend    store.Backend
	notifier   Notifier
	translator *i18n.Translator
	clock      engine.Clock

	mu    sync.Mutex
	asked map[string]bool
	// accounts serialises evaluations per email so the marker check, the
	// marker write and the send happen as one step.
	accounts map[string]*sync.Mutex
}

// NewDispatcher wires a dispatcher. Markers are written to backend.
func NewDispatcher(backend store.Backend, notifier Notifier, translator *i18n.Translator, clock engine.Clock) *Dispatcher {
	return &Dispatcher{
		backend:    backend,
		notifier:   notifier,
		translator: translator,
		clock:      clock,
		asked:      make(map[string]bool),
		accounts:   make(map[string]*sync.Mutex),
	}
}

// Evaluate matches birthdays against today for the account email. New
// matches get a marker and, when the profile enables notifications and
// permission is granted, are sent. A denied permission is not an error: the
// matches are still returned for in-app display.
func (d *Dispatcher) Evaluate(ctx context.Context, email string, profile model.Profile, birthdays []model.Birthday, today model.Date) ([]Result, error) {
	if email == "" {
		return nil, nil
	}

	reminders := engine.Reminders(birthdays, today)
	if len(reminders) == 0 {
		return nil, nil
	}
	perm := d.permission(ctx, email)

	unlock := d.lockAccount(email)
	defer unlock()

	results := make([]Result, 0, len(reminders))
	for _, r := range reminders {
		res := Result{
			Reminder: r,
			Message:  d.translator.ReminderBody(r.Birthday.Name, string(r.Type)),
		}

		outcome, err := d.dispatch(ctx, email, profile, perm, res)
		if err != nil {
			return results, err
		}
		res.Outcome = outcome
		res.Notified = outcome == metrics.NotifySent
		metrics.Notification(string(r.Type), outcome)
		results = append(results, res)
	}
	return results, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, email string, profile model.Profile, perm Permission, res Result) (string, error) {
	key := store.NotifiedKey(email, res.DedupeKey())

	_, err := d.backend.Get(ctx, key)
	if err == nil {
		return metrics.NotifyDeduped, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	now := d.clock.Now()
	if err := store.SetJSON(ctx, d.backend, key, now.UTC()); err != nil {
		return "", err
	}

	log := slog.With(
		config.LogKeyComponent, config.CompNotify,
		config.LogKeyUser, email,
		config.LogKeyEvent, res.Birthday.ID,
		config.LogKeyMatch, string(res.Type))

	switch {
	case !profile.NotificationsEnabled:
		return metrics.NotifyInApp, nil
	case perm != PermissionGranted:
		log.InfoContext(ctx, config.MsgNotifyDenied, config.LogKeyPerm, string(perm))
		return metrics.NotifyDenied, nil
	}

	n := Notification{
		ID:        model.NewID(now),
		Email:     email,
		EventID:   res.Birthday.ID,
		Match:     string(res.Type),
		Date:      res.Next.String(),
		Title:     d.translator.ReminderTitle(),
		Body:      res.Message,
		CreatedAt: now.UTC(),
	}
	if err := d.notifier.Send(ctx, n); err != nil {
		log.WarnContext(ctx, config.MsgNotifyFailed, config.LogKeyError, err)
		// Drop the marker so the next evaluation retries.
		if delErr := d.backend.Delete(ctx, key); delErr != nil {
			return "", delErr
		}
		return metrics.NotifyFailed, nil
	}
	log.InfoContext(ctx, config.MsgNotified)
	return metrics.NotifySent, nil
}

func (d *Dispatcher) lockAccount(email string) func() {
	d.mu.Lock()
	l, ok := d.accounts[email]
	if !ok {
		l = new(sync.Mutex)
		d.accounts[email] = l
	}
	d.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// permission asks the notifier once per account session when it is still
// undecided.
func (d *Dispatcher) permission(ctx context.Context, email string) Permission {
	d.mu.Lock()
	defer d.mu.Unlock()

	perm := d.notifier.Permission()
	if perm != PermissionDefault || d.asked[email] {
		return perm
	}
	d.asked[email] = true

	perm, err := d.notifier.RequestPermission(ctx)
	if err != nil {
		slog.WarnContext(ctx, config.MsgNotifyFailed,
			config.LogKeyComponent, config.CompNotify,
			config.LogKeyError, err)
		return PermissionDenied
	}
	slog.InfoContext(ctx, config.MsgPermission,
		config.LogKeyComponent, config.CompNotify,
		config.LogKeyPerm, string(perm))
	return perm
}

// StartSession begins a notification session for email: the permission memo
// is cleared and, when the notifier is still undecided, permission is asked
// right away instead of at the first reminder.
func (d *Dispatcher) StartSession(ctx context.Context, email string) Permission {
	d.mu.Lock()
	delete(d.asked, email)
	d.mu.Unlock()

	return d.permission(ctx, email)
}
