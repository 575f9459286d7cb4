// Package server exposes the application state as a JSON HTTP API and serves
// the iCalendar feed of the active account.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tartampluch/remindme/internal/account"
	"github.com/tartampluch/remindme/internal/app"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/engine"
	"github.com/tartampluch/remindme/internal/i18n"
	"github.com/tartampluch/remindme/internal/notify"
)

// Deps are the collaborators the handlers work on.
type Deps struct {
	State      *app.State
	Accounts   *account.Service
	Remembered *account.Remembered
	Dispatcher *notify.Dispatcher
	Importer   *engine.Importer
	Catalog    *i18n.Catalog
	Clock      engine.Clock
	Sessions   sessions.Store
	Locale     string // default language when the request expresses none
}

// Server handles the HTTP API.
type Server struct {
	Deps
	settings config.ServerSettings
	validate *validator.Validate

	// feed holds the last rendered calendar; readers never lock.
	feed atomic.Pointer[cacheItem]
}

// New creates a server. It does not listen until Start.
func New(settings config.ServerSettings, deps Deps) *Server {
	return &Server{
		Deps:     deps,
		settings: settings,
		validate: validator.New(),
	}
}

// NewSessionStore creates the cookie store signing sessions with secret.
// Cookies are not marked Secure because the service listens on plain HTTP
// on the loopback interface.
func NewSessionStore(secret []byte, maxAge time.Duration) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(logging(slog.Default().With(config.LogKeyComponent, config.CompServer)))
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler())
	r.Use(instrument)

	r.Get(config.RouteHealth, s.handleHealth)
	r.Handle(config.RouteMetrics, promhttp.Handler())

	r.Route(config.RouteAPI, func(r chi.Router) {
		r.Post(config.RouteRegister, s.handleRegister)
		r.Post(config.RouteLogin, s.handleLogin)
		r.Get(config.RouteSuggest, s.handleSuggestPassword)
		r.Get(config.RouteRemembered, s.handleRemembered)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Post(config.RouteLogout, s.handleLogout)
			r.Get(config.RouteSession, s.handleSession)

			r.Route(config.RouteBirthdays, func(r chi.Router) {
				r.Get("/", s.handleListBirthdays)
				r.Post("/", s.handleCreateBirthday)
				r.Get(config.RouteByID, s.handleGetBirthday)
				r.Patch(config.RouteByID, s.handleUpdateBirthday)
				r.Delete(config.RouteByID, s.handleDeleteBirthday)
			})
			r.Route(config.RouteNotes, func(r chi.Router) {
				r.Get("/", s.handleListNotes)
				r.Post("/", s.handleCreateNote)
				r.Patch(config.RouteByID, s.handleUpdateNote)
				r.Delete(config.RouteByID, s.handleDeleteNote)
			})
			r.Get(config.RouteProfile, s.handleGetProfile)
			r.Put(config.RouteProfile, s.handleUpdateProfile)
			r.Delete(config.RouteData, s.handleClearData)

			r.Get(config.RouteDashboard, s.handleDashboard)
			r.Get(config.RouteMilestones, s.handleMilestones)
			r.Get(config.RouteReminders, s.handleReminders)
			r.Get(config.RouteCalendarDay, s.handleCalendarDay)
			r.Get(config.RouteCalendarMon, s.handleCalendarMonth)

			r.Post(config.RouteImportVCard, s.handleImportVCard)
			r.Get(config.RouteExportVCard, s.handleExportVCard)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get(config.RouteCalendarFeed, s.handleCalendarFeed)
	})

	return r
}

// Start serves HTTP and blocks until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.settings.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyHost, s.settings.Host,
			config.LogKeyPort, s.settings.Port,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// requireSession admits requests whose session cookie names the account that
// is currently active.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := s.Sessions.Get(r, config.SessionCookieName)
		email, _ := session.Values[config.SessionKeyEmail].(string)

		if email == "" || email != s.State.Email() {
			fail(w, r, app.ErrNoSession)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// startSession binds the cookie to email. An empty email ends the session.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, email string) error {
	session, _ := s.Sessions.Get(r, config.SessionCookieName)
	if email == "" {
		session.Options.MaxAge = -1
		delete(session.Values, config.SessionKeyEmail)
	} else {
		session.Values[config.SessionKeyEmail] = email
	}
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("%s: %w", config.ErrSessionSave, err)
	}
	return nil
}

// translator picks the language from ?lang, then Accept-Language, then the
// configured default.
func (s *Server) translator(r *http.Request) *i18n.Translator {
	return s.Catalog.Translator(
		r.URL.Query().Get(config.QueryLang),
		r.Header.Get(config.HeaderAcceptLanguage),
		s.Locale,
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	ok(w, map[string]string{"status": config.HTTPMsgHealthy})
}
