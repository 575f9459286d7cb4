package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
)

// CalendarGenerator renders a birthday collection as an iCalendar feed.
type CalendarGenerator struct {
	Clock Clock // Interface for time mocking.

	// FormatSummary allows the server to inject localized strings into the logic layer.
	FormatSummary func(name string, age int) string
}

// Generate returns the ICS document and the number of birthdays falling today.
// Each birthday yields one all-day event for the previous, current and next
// year, never before the year of birth.
func (g *CalendarGenerator) Generate(ctx context.Context, birthdays []model.Birthday) ([]byte, int, error) {
	start := time.Now()

	cal := ical.NewCalendar()

	// Set standard iCalendar headers
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986: Suggest a refresh interval
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	now := g.Clock.Now()
	today := model.DateOf(now)
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	todayCount := 0
	for _, b := range birthdays {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		if IsAnniversary(b.Date, today) {
			todayCount++
			slog.Debug(config.MsgBdayToday,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyName, b.Name,
				config.LogKeyDOB, b.Date.String())
		}

		for _, e := range g.createEvents(b, today) {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	if len(cal.Children) == 0 {
		// An empty VCALENDAR is still served so clients keep the subscription valid.
		return []byte(config.StubVCalendar), 0, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyCount, len(birthdays),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), todayCount, nil
}

func (g *CalendarGenerator) createEvents(b model.Birthday, today model.Date) []*ical.Event {
	currentYear := today.Year()
	targetYears := []int{currentYear - 1, currentYear, currentYear + 1}
	triggers := Triggers(b.ReminderSettings())

	var events []*ical.Event
	for _, y := range targetYears {
		if y < b.Date.Year() {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, b.ID, y, config.ICalDomain))

		summary := g.summary(b.Name, y-b.Date.Year())
		event.Props.SetText(config.PropSummary, summary)

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(OccurrenceIn(b.Date, y).Time)
		event.Props.Set(dtStartProp)

		for _, trigger := range triggers {
			addAlarm(event, trigger, summary)
		}
		events = append(events, event)
	}
	return events
}

func (g *CalendarGenerator) summary(name string, age int) string {
	if g.FormatSummary != nil {
		return g.FormatSummary(name, age)
	}
	switch {
	case age < 0:
		return fmt.Sprintf(config.FallbackSummary, name)
	case age == 0:
		return fmt.Sprintf(config.FallbackSummaryBirth, name)
	}
	return fmt.Sprintf(config.FallbackSummaryAge, name, age)
}

// Triggers maps enabled reminder offsets to ISO 8601 alarm triggers.
func Triggers(r model.Reminders) []string {
	var out []string
	if r.OneDay {
		out = append(out, config.TriggerOneDay)
	}
	if r.TwoDays {
		out = append(out, config.TriggerTwoDays)
	}
	if r.SevenDays {
		out = append(out, config.TriggerSevenDay)
	}
	return out
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
