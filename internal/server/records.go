package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/engine"
	"github.com/tartampluch/remindme/internal/model"
)

// birthdayView is a birthday with everything derived from its date.
type birthdayView struct {
	engine.Occurrence
	Zodiac engine.Sign `json:"zodiac"`
}

type noteRequest struct {
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	BackgroundImage string `json:"backgroundImage"`
}

// filter reads ?q= and ?month= into a dashboard filter.
func filter(r *http.Request) (engine.Filter, error) {
	f := engine.Filter{Search: r.URL.Query().Get(config.QuerySearch)}
	if raw := r.URL.Query().Get(config.QueryMonth); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil || month < 0 || month > config.MonthsInYear {
			return f, model.NewValidationError(config.QueryMonth, config.ErrMonthRange)
		}
		f.Month = month
	}
	return f, nil
}

func (s *Server) handleListBirthdays(w http.ResponseWriter, r *http.Request) {
	f, err := filter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, f.Apply(s.State.Snapshot().Birthdays))
}

func (s *Server) handleCreateBirthday(w http.ResponseWriter, r *http.Request) {
	var b model.Birthday
	if err := s.decode(r, &b); err != nil {
		fail(w, r, err)
		return
	}
	if b.Relationship == "" {
		b.Relationship = model.RelationshipOther
	}

	added, err := s.State.AddBirthday(r.Context(), b)
	if err != nil {
		fail(w, r, err)
		return
	}
	created(w, added)
}

func (s *Server) handleGetBirthday(w http.ResponseWriter, r *http.Request) {
	b, err := s.State.Birthday(chi.URLParam(r, config.URLParamID))
	if err != nil {
		fail(w, r, err)
		return
	}
	occ := engine.Occur(b, engine.Today(s.Clock))
	occ.Label = s.translator(r).CountdownLabel(occ.DaysUntil)
	ok(w, birthdayView{Occurrence: occ, Zodiac: engine.Zodiac(b.Date)})
}

func (s *Server) handleUpdateBirthday(w http.ResponseWriter, r *http.Request) {
	var patch model.BirthdayPatch
	if err := s.decode(r, &patch); err != nil {
		fail(w, r, err)
		return
	}
	updated, err := s.State.UpdateBirthday(r.Context(), chi.URLParam(r, config.URLParamID), patch)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, updated)
}

func (s *Server) handleDeleteBirthday(w http.ResponseWriter, r *http.Request) {
	if err := s.State.DeleteBirthday(r.Context(), chi.URLParam(r, config.URLParamID)); err != nil {
		fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleListNotes(w http.ResponseWriter, _ *http.Request) {
	ok(w, s.State.Snapshot().Notes)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := s.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	n, err := s.State.AddNote(r.Context(), model.Note{
		Title:           req.Title,
		Description:     req.Description,
		BackgroundImage: req.BackgroundImage,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	created(w, n)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var patch model.NotePatch
	if err := s.decode(r, &patch); err != nil {
		fail(w, r, err)
		return
	}
	n, err := s.State.UpdateNote(r.Context(), chi.URLParam(r, config.URLParamID), patch)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, n)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.State.DeleteNote(r.Context(), chi.URLParam(r, config.URLParamID)); err != nil {
		fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, _ *http.Request) {
	ok(w, s.State.Snapshot().Profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var p model.Profile
	if err := s.decode(r, &p); err != nil {
		fail(w, r, err)
		return
	}
	updated, err := s.State.UpdateProfile(r.Context(), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, updated)
}

// handleClearData wipes the stored data of the active account and returns
// the emptied session view.
func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	if err := s.State.ClearData(r.Context()); err != nil {
		fail(w, r, err)
		return
	}
	ok(w, s.State.Snapshot())
}
