package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/remindme/internal/model"
)

func TestParseDate_Formats(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    model.Date
		wantErr bool
	}{
		{"ISO8601 Standard", "1990-10-25", model.NewDate(1990, 10, 25), false},
		{"Basic Format", "19901025", model.NewDate(1990, 10, 25), false},
		{"RFC3339", "1990-10-25T00:00:00Z", model.NewDate(1990, 10, 25), false},
		{"RFC3339 Millis", "1990-10-25T08:30:00.000Z", model.NewDate(1990, 10, 25), false},
		{"UTC Timestamp Keeps UTC Day", "1990-10-24T22:00:00.000Z", model.NewDate(1990, 10, 24), false},
		{"Offset Timestamp Keeps Local Day", "1990-10-25T00:00:00+02:00", model.NewDate(1990, 10, 25), false},
		{"Leap Day", "2000-02-29", model.NewDate(2000, 2, 29), false},
		{"Invalid Day", "2001-02-29", model.Date{}, true},
		{"Garbage Data", "not-a-date", model.Date{}, true},
		{"Empty Date", "", model.Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.ParseDate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %s", got)
		})
	}
}

func TestParseYearlessDate(t *testing.T) {
	d, err := model.ParseYearlessDate("--02-29")
	require.NoError(t, err)
	assert.Equal(t, 2000, d.Year())
	assert.Equal(t, time.February, d.Month())
	assert.Equal(t, 29, d.Day())

	_, err = model.ParseYearlessDate("1990-01-01")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	b, err := json.Marshal(model.NewDate(2000, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, `"2000-03-15"`, string(b))

	var d model.Date
	require.NoError(t, json.Unmarshal([]byte(`"2000-03-15T00:00:00.000Z"`), &d))
	assert.Equal(t, "2000-03-15", d.String())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &d))
}

func TestBirthday_ReminderSettingsDefault(t *testing.T) {
	var b model.Birthday
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","name":"A","date":"1990-01-01","relationship":"Friend"}`), &b))

	assert.Nil(t, b.Reminders)
	assert.Equal(t, model.Reminders{OneDay: true}, b.ReminderSettings())
}

func TestBirthdayPatch_MergesReminders(t *testing.T) {
	yes := true
	name := "Renamed"
	b := model.Birthday{
		ID:           "1",
		Name:         "Original",
		Date:         model.NewDate(1990, 1, 1),
		Relationship: model.RelationshipFamily,
		Reminders:    &model.Reminders{OneDay: true, TwoDays: false, SevenDays: false},
	}

	got := model.BirthdayPatch{
		Name:      &name,
		Reminders: &model.RemindersPatch{SevenDays: &yes},
	}.Apply(b)

	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, model.Reminders{OneDay: true, SevenDays: true}, *got.Reminders)
	assert.Equal(t, model.RelationshipFamily, got.Relationship, "untouched fields are preserved")
	assert.Equal(t, model.Reminders{OneDay: true}, *b.Reminders, "original must not be mutated")
}

func TestBirthday_Validate(t *testing.T) {
	valid := model.Birthday{Name: "A", Date: model.NewDate(1990, 1, 1), Relationship: model.RelationshipWork}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		mut   func(*model.Birthday)
		field string
	}{
		{"MissingName", func(b *model.Birthday) { b.Name = "  " }, "name"},
		{"MissingDate", func(b *model.Birthday) { b.Date = model.Date{} }, "date"},
		{"BadRelationship", func(b *model.Birthday) { b.Relationship = "Enemy" }, "relationship"},
		{"BadGender", func(b *model.Birthday) { b.Gender = "Robot" }, "gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid
			tt.mut(&b)
			err := b.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrValidation)

			var vErr *model.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestDefaultProfile(t *testing.T) {
	p := model.DefaultProfile("jane.doe@example.com")
	assert.Equal(t, "jane.doe", p.Name)
	assert.Equal(t, model.GenderOther, p.Gender)
	assert.True(t, p.NotificationsEnabled)
	assert.False(t, p.AutoArchive)

	assert.Equal(t, "Guest User", model.GuestProfile().Name)
}

func TestNewID_UniqueAndOrdered(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := model.NewID(now)
	b := model.NewID(now)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b, "monotonic entropy keeps ids sortable within one millisecond")
	assert.Len(t, a, 26)
}
