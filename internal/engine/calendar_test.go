package engine_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/engine"
	"github.com/tartampluch/remindme/internal/model"
)

func TestGenerate_EventsAndAlarms(t *testing.T) {
	gen := &engine.CalendarGenerator{
		Clock: MockClock{CurrentTime: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)},
	}
	bs := []model.Birthday{{
		ID:        "01JDOE",
		Name:      "John Doe",
		Date:      date(2000, 1, 1),
		Reminders: &model.Reminders{OneDay: true, SevenDays: true},
	}}

	data, today, err := gen.Generate(context.Background(), bs)
	require.NoError(t, err)
	assert.Equal(t, 1, today)

	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 3, "previous, current and next year")

	summaries := make([]string, 0, len(events))
	for _, e := range events {
		s, err := e.Props.Text(config.PropSummary)
		require.NoError(t, err)
		summaries = append(summaries, s)
		assert.Len(t, e.Children, 2, "one alarm per enabled offset")
	}
	assert.Equal(t, []string{"Birthday: John Doe (24)", "Birthday: John Doe (25)", "Birthday: John Doe (26)"}, summaries)

	ics := string(data)
	assert.Contains(t, ics, "TRIGGER:-P1D")
	assert.Contains(t, ics, "TRIGGER:-P7D")
	assert.NotContains(t, ics, "TRIGGER:-P2D")
	assert.Contains(t, ics, "UID:01JDOE-2025@remindme")
}

func TestGenerate_NotBeforeBirth(t *testing.T) {
	gen := &engine.CalendarGenerator{
		Clock: MockClock{CurrentTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		FormatSummary: func(name string, age int) string {
			return fmt.Sprintf("%s/%d", name, age)
		},
	}
	bs := []model.Birthday{{ID: "baby", Name: "Baby", Date: date(2025, 3, 1), Reminders: &model.Reminders{}}}

	data, _, err := gen.Generate(context.Background(), bs)
	require.NoError(t, err)

	ics := string(data)
	assert.Equal(t, 2, strings.Count(ics, "BEGIN:VEVENT"))
	assert.Contains(t, ics, "SUMMARY:Baby/0")
	assert.Contains(t, ics, "SUMMARY:Baby/1")
	assert.NotContains(t, ics, "BEGIN:VALARM")
}

func TestGenerate_LeapDayUsesFeb28(t *testing.T) {
	gen := &engine.CalendarGenerator{Clock: MockClock{CurrentTime: time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC)}}
	bs := []model.Birthday{{ID: "leap", Name: "Leap Baby", Date: date(2000, 2, 29)}}

	data, today, err := gen.Generate(context.Background(), bs)
	require.NoError(t, err)
	assert.Equal(t, 1, today)

	ics := string(data)
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20240229")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20250228")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20260228")
}

func TestGenerate_EmptyCollectionReturnsStub(t *testing.T) {
	gen := &engine.CalendarGenerator{Clock: MockClock{CurrentTime: time.Now()}}

	data, today, err := gen.Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, today)
	assert.Equal(t, config.StubVCalendar, string(data))
}

func TestGenerate_Cancelled(t *testing.T) {
	gen := &engine.CalendarGenerator{Clock: MockClock{CurrentTime: time.Now()}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := gen.Generate(ctx, []model.Birthday{{ID: "x", Name: "X", Date: date(1990, 1, 1)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTriggers(t *testing.T) {
	assert.Equal(t, []string{"-P1D"}, engine.Triggers(model.DefaultReminders))
	assert.Equal(t, []string{"-P1D", "-P2D", "-P7D"}, engine.Triggers(model.Reminders{OneDay: true, TwoDays: true, SevenDays: true}))
	assert.Empty(t, engine.Triggers(model.Reminders{}))
}
