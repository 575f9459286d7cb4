package engine

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
)

// Filter narrows the birthday list shown on the dashboard.
type Filter struct {
	Search string // case-insensitive substring of the name
	Month  int    // 1..12, 0 for all months
}

// Apply returns the birthdays matching the filter, in input order.
func (f Filter) Apply(birthdays []model.Birthday) []model.Birthday {
	needle := strings.ToLower(f.Search)
	out := []model.Birthday{}
	for _, b := range birthdays {
		if needle != "" && !strings.Contains(strings.ToLower(b.Name), needle) {
			continue
		}
		if f.Month != 0 && int(b.Date.Month()) != f.Month {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Countdown is the time left until the start of a birthday's day.
type Countdown struct {
	Target  string `json:"target"`
	Days    int    `json:"days"`
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Seconds int    `json:"seconds"`
	Text    string `json:"text"`
}

// RelationshipCount is one slice of the relationship breakdown.
type RelationshipCount struct {
	Relationship model.Relationship `json:"relationship"`
	Count        int                `json:"count"`
}

// Stats summarises the whole collection, independent of the filter.
type Stats struct {
	Total          int                 `json:"total"`
	ByMonth        [12]int             `json:"byMonth"`
	ByRelationship []RelationshipCount `json:"byRelationship"`
	BusiestMonth   int                 `json:"busiestMonth,omitempty"`
}

// Dashboard is the landing view of a session.
type Dashboard struct {
	Greeting     string       `json:"greeting"`
	FirstName    string       `json:"firstName"`
	Age          *int         `json:"age,omitempty"`
	Zodiac       *Sign        `json:"zodiac,omitempty"`
	IsMyBirthday bool         `json:"isMyBirthday"`
	Today        []Occurrence `json:"today"`
	Upcoming     []Occurrence `json:"upcoming"`
	Countdown    *Countdown   `json:"countdown,omitempty"`
	Stats        Stats        `json:"stats"`
}

// BuildDashboard assembles the dashboard for the filtered collection at now.
func BuildDashboard(birthdays []model.Birthday, profile model.Profile, now time.Time, filter Filter) Dashboard {
	today := model.DateOf(now)

	d := Dashboard{
		Greeting:  Greeting(now),
		FirstName: firstName(profile.Name),
		Today:     []Occurrence{},
		Upcoming:  []Occurrence{},
		Stats:     BuildStats(birthdays),
	}

	if profile.Birthday != nil && !profile.Birthday.IsZero() {
		age := AgeOn(*profile.Birthday, today)
		sign := Zodiac(*profile.Birthday)
		d.Age = &age
		d.Zodiac = &sign
		d.IsMyBirthday = IsAnniversary(*profile.Birthday, today)
	}

	for _, b := range filter.Apply(birthdays) {
		occ := Occur(b, today)
		if occ.DaysUntil == config.DaysToday {
			d.Today = append(d.Today, occ)
			continue
		}
		d.Upcoming = append(d.Upcoming, occ)
	}
	sortByNext(d.Upcoming)

	if len(d.Upcoming) > 0 {
		c := CountdownTo(d.Upcoming[0].Next, now)
		c.Target = d.Upcoming[0].Birthday.ID
		d.Countdown = &c
	}
	return d
}

// CountdownTo splits the time from now to local midnight of day. A target in
// the past yields all zeros.
func CountdownTo(day model.Date, now time.Time) Countdown {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
	secs := int(start.Sub(now) / time.Second)
	if secs < 0 {
		secs = 0
	}

	c := Countdown{
		Days:    secs / config.SecondsPerDay,
		Hours:   secs % config.SecondsPerDay / config.SecondsPerHour,
		Minutes: secs % config.SecondsPerHour / config.SecondsPerMinute,
		Seconds: secs % config.SecondsPerMinute,
	}
	c.Text = fmt.Sprintf(config.FormatCountdown, c.Days, c.Hours, c.Minutes, c.Seconds)
	return c
}

// BuildStats computes the month and relationship breakdowns. The busiest month
// is the earliest month holding the highest count, zero for an empty list.
func BuildStats(birthdays []model.Birthday) Stats {
	s := Stats{Total: len(birthdays)}

	rel := make(map[model.Relationship]int, len(model.Relationships))
	for _, b := range birthdays {
		s.ByMonth[b.Date.Month()-1]++
		rel[b.Relationship]++
	}

	s.ByRelationship = []RelationshipCount{}
	for _, r := range model.Relationships {
		if n := rel[r]; n > 0 {
			s.ByRelationship = append(s.ByRelationship, RelationshipCount{Relationship: r, Count: n})
		}
	}

	if s.Total > 0 {
		busiest := 0
		for m := 1; m < config.MonthsInYear; m++ {
			if s.ByMonth[m] > s.ByMonth[busiest] {
				busiest = m
			}
		}
		s.BusiestMonth = busiest + 1
	}
	return s
}

// OnDay returns the birthdays recurring on day, sorted by name.
func OnDay(birthdays []model.Birthday, day model.Date) []model.Birthday {
	out := []model.Birthday{}
	for _, b := range birthdays {
		if IsAnniversary(b.Date, day) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Birthday) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// InMonth returns the birthdays of a month ascending by day of month.
func InMonth(birthdays []model.Birthday, month time.Month) []model.Birthday {
	out := []model.Birthday{}
	for _, b := range birthdays {
		if b.Date.Month() == month {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Birthday) int {
		return cmp.Or(cmp.Compare(a.Date.Day(), b.Date.Day()), cmp.Compare(a.Name, b.Name))
	})
	return out
}

// Greeting picks the salutation for the hour of now.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < config.HourAfternoon:
		return config.GreetMorning
	case h < config.HourEvening:
		return config.GreetAfternoon
	default:
		return config.GreetEvening
	}
}

func firstName(name string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(name), " ")
	return first
}
