package i18n

import (
	"fmt"
	"log/slog"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/remindme/internal/config"
)

// Translator renders messages in one language.
type Translator struct {
	lang      string
	localizer *goi18n.Localizer
}

// Lang returns the resolved language code.
func (t *Translator) Lang() string { return t.lang }

// Msg translates key with optional template data. A missing key is logged
// and returned unchanged.
func (t *Translator) Msg(key string, data map[string]any) string {
	return t.localize(&goi18n.LocalizeConfig{MessageID: key, TemplateData: data})
}

func (t *Translator) localize(lc *goi18n.LocalizeConfig) string {
	msg, err := t.localizer.Localize(lc)
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, t.lang,
			config.LogKeyKey, lc.MessageID,
			config.LogKeyError, err)
		return lc.MessageID
	}
	return msg
}

// Summary is the calendar event title. Age 0 is the year of birth.
func (t *Translator) Summary(name string, age int) string {
	switch {
	case age == 0:
		return t.Msg(config.TKeyEvtSummaryBirth, map[string]any{"Name": name})
	case age < 0:
		return t.Msg(config.TKeyEvtSummary, map[string]any{"Name": name})
	}
	return t.Msg(config.TKeyEvtSummaryAge, map[string]any{"Name": name, "Age": age})
}

// CountdownLabel renders 0 as today, 1 as tomorrow and N as "in N days".
func (t *Translator) CountdownLabel(days int) string {
	switch days {
	case config.DaysToday:
		return t.Msg(config.TKeyLabelToday, nil)
	case config.DaysTomorrow:
		return t.Msg(config.TKeyLabelTomorrow, nil)
	}
	return t.localize(&goi18n.LocalizeConfig{
		MessageID:    config.TKeyLabelInDays,
		PluralCount:  days,
		TemplateData: map[string]any{"Count": days},
	})
}

// Greeting depends on the hour of day.
func (t *Translator) Greeting(hour int) string {
	switch {
	case hour < config.HourAfternoon:
		return t.Msg(config.TKeyGreetMorning, nil)
	case hour < config.HourEvening:
		return t.Msg(config.TKeyGreetAfternoon, nil)
	}
	return t.Msg(config.TKeyGreetEvening, nil)
}

// ReminderTitle is the heading of every notification.
func (t *Translator) ReminderTitle() string {
	return t.Msg(config.TKeyReminderTitle, nil)
}

// ReminderBody describes a match for name. match is one of the engine's
// match types.
func (t *Translator) ReminderBody(name, match string) string {
	var key string
	switch match {
	case config.MatchToday:
		key = config.TKeyReminderToday
	case config.MatchTomorrow:
		key = config.TKeyReminderTomorrow
	case config.MatchIn2Days:
		key = config.TKeyReminderIn2Days
	case config.MatchIn7Days:
		key = config.TKeyReminderIn7Days
	default:
		return fmt.Sprintf(config.FallbackReminder, name, match)
	}
	return t.Msg(key, map[string]any{"Name": name})
}

// Milestone renders "<name> turns <age>".
func (t *Translator) Milestone(name string, age int) string {
	return t.Msg(config.TKeyMilestone, map[string]any{"Name": name, "Age": age})
}
