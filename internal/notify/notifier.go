// Package notify delivers reminder notifications and keeps the per-account
// markers that stop a reminder from firing twice.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tartampluch/remindme/internal/config"
)

// Permission is the capability state of a notifier.
type Permission string

const (
	PermissionDefault Permission = config.PermDefault
	PermissionGranted Permission = config.PermGranted
	PermissionDenied  Permission = config.PermDenied
)

// Notification is one delivered reminder.
type Notification struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	EventID   string    `json:"eventId"`
	Match     string    `json:"match"`
	Date      string    `json:"date"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier is the outbound notification capability.
type Notifier interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Send(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications as structured log lines. It is always
// granted.
type LogNotifier struct{}

func (LogNotifier) Permission() Permission { return PermissionGranted }

func (LogNotifier) RequestPermission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (LogNotifier) Send(ctx context.Context, n Notification) error {
	slog.InfoContext(ctx, config.MsgNotifyLog,
		config.LogKeyComponent, config.CompNotify,
		config.LogKeyUser, n.Email,
		config.LogKeyEvent, n.EventID,
		config.LogKeyMatch, n.Match,
		config.LogKeyValue, n.Body)
	return nil
}

// webhookPayload is the JSON body posted to the webhook.
type webhookPayload struct {
	ID        string       `json:"id"`
	Event     string       `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
	Data      Notification `json:"data"`
}

// WebhookNotifier posts notifications as JSON to a URL. Permission stays
// undecided until requested, then is granted only when a URL is configured.
type WebhookNotifier struct {
	URL    string
	Client *http.Client

	mu   sync.Mutex
	perm Permission
}

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: config.HTTPTimeout},
		perm:   PermissionDefault,
	}
}

func (w *WebhookNotifier) Permission() Permission {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.perm
}

func (w *WebhookNotifier) RequestPermission(_ context.Context) (Permission, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.perm == PermissionDefault {
		w.perm = PermissionDenied
		if w.URL != "" {
			w.perm = PermissionGranted
		}
	}
	return w.perm, nil
}

func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(webhookPayload{
		ID:        n.ID,
		Event:     config.WebhookEvent,
		Timestamp: n.CreatedAt,
		Data:      n,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrNotifySend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrNotifySend, err)
	}
	req.Header.Set(config.HeaderContentType, config.MimeJSON)
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrNotifySend, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < config.WebhookStatusFirst || resp.StatusCode > config.WebhookStatusLast {
		return fmt.Errorf("%s: %d", config.ErrNotifyStatus, resp.StatusCode)
	}
	return nil
}
