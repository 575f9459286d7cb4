package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/tartampluch/remindme/internal/config"
)

// Date is a calendar date without time of day. It is stored at midnight UTC
// and serialised as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date in the timestamp's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// String returns the ISO form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(config.DateFormatFullDash)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts every layout ParseDate knows. A full timestamp keeps
// the calendar date of its own offset, so "1990-10-24T22:00:00Z" is Oct 24
// even when it was written for local midnight east of UTC.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDate handles the date layouts accepted from API payloads, stored
// records and vCard BDAY values that carry a year.
func ParseDate(value string) (Date, error) {
	formats := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatRFC3339ms,
		config.DateFormatFullT,
	}

	for _, f := range formats {
		if t, err := time.Parse(f, value); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, errors.New(config.ErrDateParse)
}

// ParseYearlessDate handles vCard truncated dates (--MM-DD). The result is
// placed in config.DefaultLeapYear so Feb 29 stays representable.
func ParseYearlessDate(value string) (Date, error) {
	for _, f := range []string{config.DateFormatNoYearD, config.DateFormatNoYearB} {
		if t, err := time.Parse(f, value); err == nil {
			return NewDate(config.DefaultLeapYear, t.Month(), t.Day()), nil
		}
	}
	return Date{}, errors.New(config.ErrDateParse)
}
