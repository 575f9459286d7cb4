package server

import (
	"log/slog"
	"net/http"

	"github.com/tartampluch/remindme/internal/account"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password" validate:"required_without=UseRemembered"`
	// Remember keeps the login in the OS keyring for the next visit.
	Remember bool `json:"remember"`
	// UseRemembered logs in with the password kept in the keyring.
	UseRemembered bool `json:"useRemembered"`
}

type credentialResponse struct {
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

type rememberedResponse struct {
	Email       string `json:"email"`
	HasPassword bool   `json:"hasPassword"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	cred, err := s.Accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	created(w, credentialResponse{Email: cred.Email, CreatedAt: cred.CreatedAt.Format(config.DateFormatRFC3339)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	ctx := r.Context()

	email, password := model.NormalizeEmail(req.Email), req.Password
	if req.UseRemembered {
		var err error
		if email, password, err = s.rememberedLogin(r, email); err != nil {
			fail(w, r, err)
			return
		}
	}
	if email == "" {
		fail(w, r, model.NewValidationError("email", config.ErrEmailRequired))
		return
	}

	if err := s.State.Login(ctx, email, password); err != nil {
		fail(w, r, err)
		return
	}
	active := s.State.Email()
	s.Dispatcher.StartSession(ctx, active)

	switch {
	case req.Remember:
		s.logRememberFailure(r, s.Remembered.Save(ctx, active, password))
	case !req.UseRemembered:
		s.logRememberFailure(r, s.Remembered.Forget(ctx))
	}

	if err := s.startSession(w, r, active); err != nil {
		fail(w, r, err)
		return
	}
	slog.InfoContext(ctx, config.MsgLoggedIn,
		config.LogKeyComponent, config.CompServer,
		config.LogKeyUser, active)
	ok(w, s.State.Snapshot())
}

// rememberedLogin resolves the keyring login. The email defaults to the
// remembered one.
func (s *Server) rememberedLogin(r *http.Request, email string) (string, string, error) {
	if email == "" {
		remembered, err := s.Remembered.Email(r.Context())
		if err != nil {
			return "", "", err
		}
		email = remembered
	}
	password, found, err := s.Remembered.Password(email)
	if err != nil {
		return "", "", err
	}
	if !found {
		return "", "", account.ErrInvalidCredential
	}
	return email, password, nil
}

func (s *Server) logRememberFailure(r *http.Request, err error) {
	if err != nil {
		slog.WarnContext(r.Context(), config.MsgRememberFailed,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.State.Logout(r.Context()); err != nil {
		fail(w, r, err)
		return
	}
	if err := s.startSession(w, r, ""); err != nil {
		fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	ok(w, s.State.Snapshot())
}

func (s *Server) handleSuggestPassword(w http.ResponseWriter, r *http.Request) {
	pw, err := account.SuggestPassword()
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, map[string]string{"password": pw})
}

// handleRemembered tells the login screen which email to prefill. The
// password itself never leaves the keyring.
func (s *Server) handleRemembered(w http.ResponseWriter, r *http.Request) {
	email, err := s.Remembered.Email(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	resp := rememberedResponse{Email: email}
	if email != "" {
		_, resp.HasPassword, err = s.Remembered.Password(email)
		if err != nil {
			fail(w, r, err)
			return
		}
	}
	ok(w, resp)
}
