package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/engine"
	"github.com/tartampluch/remindme/internal/i18n"
	"github.com/tartampluch/remindme/internal/model"
	"github.com/tartampluch/remindme/internal/notify"
)

type milestoneView struct {
	engine.Occurrence
	Message string `json:"message"`
}

type dayView struct {
	Date      model.Date       `json:"date"`
	Birthdays []model.Birthday `json:"birthdays"`
}

type monthView struct {
	Month     int              `json:"month"`
	Birthdays []model.Birthday `json:"birthdays"`
}

// relabel replaces the English countdown labels with translated ones.
func relabel(tr *i18n.Translator, occ []engine.Occurrence) {
	for i := range occ {
		occ[i].Label = tr.CountdownLabel(occ[i].DaysUntil)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	f, err := filter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	snap := s.State.Snapshot()
	now := s.Clock.Now()
	tr := s.translator(r)

	d := engine.BuildDashboard(snap.Birthdays, snap.Profile, now, f)
	d.Greeting = tr.Greeting(now.Hour())
	relabel(tr, d.Today)
	relabel(tr, d.Upcoming)
	ok(w, d)
}

func (s *Server) handleMilestones(w http.ResponseWriter, r *http.Request) {
	tr := s.translator(r)
	occ := engine.Milestones(s.State.Snapshot().Birthdays, engine.Today(s.Clock))
	relabel(tr, occ)

	out := make([]milestoneView, 0, len(occ))
	for _, o := range occ {
		out = append(out, milestoneView{Occurrence: o, Message: tr.Milestone(o.Birthday.Name, o.TurningAge)})
	}
	ok(w, out)
}

// handleReminders evaluates today's matches, sending notifications that are
// due, and returns them for in-app display.
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	snap := s.State.Snapshot()
	results, err := s.Dispatcher.Evaluate(r.Context(), snap.Email, snap.Profile, snap.Birthdays, engine.Today(s.Clock))
	if err != nil {
		fail(w, r, err)
		return
	}
	if results == nil {
		results = []notify.Result{}
	}
	tr := s.translator(r)
	for i := range results {
		results[i].Label = tr.CountdownLabel(results[i].DaysUntil)
		results[i].Message = tr.ReminderBody(results[i].Birthday.Name, string(results[i].Type))
	}
	ok(w, results)
}

func (s *Server) handleCalendarDay(w http.ResponseWriter, r *http.Request) {
	day, err := model.ParseDate(chi.URLParam(r, config.URLParamDate))
	if err != nil {
		fail(w, r, model.NewValidationError(config.URLParamDate, err.Error()))
		return
	}
	ok(w, dayView{Date: day, Birthdays: engine.OnDay(s.State.Snapshot().Birthdays, day)})
}

func (s *Server) handleCalendarMonth(w http.ResponseWriter, r *http.Request) {
	month, err := strconv.Atoi(chi.URLParam(r, config.URLParamMonth))
	if err != nil || month < 1 || month > config.MonthsInYear {
		fail(w, r, model.NewValidationError(config.URLParamMonth, config.ErrMonthRange))
		return
	}
	ok(w, monthView{Month: month, Birthdays: engine.InMonth(s.State.Snapshot().Birthdays, time.Month(month))})
}
