package engine

import (
	"strings"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
)

// MatchType classifies a reminder relative to the birthday.
type MatchType string

const (
	MatchToday    MatchType = config.MatchToday
	MatchTomorrow MatchType = config.MatchTomorrow
	MatchIn2Days  MatchType = config.MatchIn2Days
	MatchIn7Days  MatchType = config.MatchIn7Days
)

// Reminder is a birthday that qualifies for a notification today.
type Reminder struct {
	Occurrence
	Type MatchType `json:"type"`
}

// DedupeKey identifies the (event, match type, occurrence) triple. Including
// the occurrence date lets next year's rotation notify again.
func (r Reminder) DedupeKey() string {
	return strings.Join([]string{r.Birthday.ID, string(r.Type), r.Next.String()}, config.KeySep)
}

// Match classifies b against today. A birthday on today always matches; the
// other offsets only match when their flag is set.
func Match(b model.Birthday, today model.Date) (MatchType, bool) {
	flags := b.ReminderSettings()

	switch DaysUntil(b.Date, today) {
	case config.DaysToday:
		return MatchToday, true
	case config.DaysTomorrow:
		if flags.OneDay {
			return MatchTomorrow, true
		}
	case config.DaysIn2:
		if flags.TwoDays {
			return MatchIn2Days, true
		}
	case config.DaysIn7:
		if flags.SevenDays {
			return MatchIn7Days, true
		}
	}
	return "", false
}

// Reminders returns the matches of the collection for today, in input order.
func Reminders(birthdays []model.Birthday, today model.Date) []Reminder {
	var out []Reminder
	for _, b := range birthdays {
		if t, ok := Match(b, today); ok {
			out = append(out, Reminder{Occurrence: Occur(b, today), Type: t})
		}
	}
	return out
}
