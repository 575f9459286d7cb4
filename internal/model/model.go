// Package model defines the records persisted per account: birthdays, notes,
// the user profile and account credentials.
package model

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tartampluch/remindme/internal/config"
)

// Relationship is the category tag of a birthday.
type Relationship string

const (
	RelationshipFamily Relationship = config.RelFamily
	RelationshipFriend Relationship = config.RelFriend
	RelationshipWork   Relationship = config.RelWork
	RelationshipOther  Relationship = config.RelOther
)

// Relationships lists the categories in display order.
var Relationships = []Relationship{RelationshipFamily, RelationshipFriend, RelationshipWork, RelationshipOther}

// Valid reports whether r is one of the fixed categories.
func (r Relationship) Valid() bool {
	for _, known := range Relationships {
		if r == known {
			return true
		}
	}
	return false
}

// Gender is an optional tag on birthdays and the profile.
type Gender string

const (
	GenderMale   Gender = config.GenderMale
	GenderFemale Gender = config.GenderFemale
	GenderOther  Gender = config.GenderOther
)

// Valid reports whether g is empty or one of the known tags.
func (g Gender) Valid() bool {
	switch g {
	case "", GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Reminders holds the three independent reminder offsets.
type Reminders struct {
	OneDay    bool `json:"oneDay"`
	TwoDays   bool `json:"twoDays"`
	SevenDays bool `json:"sevenDays"`
}

// DefaultReminders applies when a birthday carries no reminder settings.
var DefaultReminders = Reminders{OneDay: true}

// RemindersPatch carries a partial update; nil fields are left untouched.
type RemindersPatch struct {
	OneDay    *bool `json:"oneDay,omitempty"`
	TwoDays   *bool `json:"twoDays,omitempty"`
	SevenDays *bool `json:"sevenDays,omitempty"`
}

// Apply merges the patch into r.
func (p RemindersPatch) Apply(r Reminders) Reminders {
	if p.OneDay != nil {
		r.OneDay = *p.OneDay
	}
	if p.TwoDays != nil {
		r.TwoDays = *p.TwoDays
	}
	if p.SevenDays != nil {
		r.SevenDays = *p.SevenDays
	}
	return r
}

// Birthday is a recurring annual event owned by one account.
type Birthday struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Date         Date         `json:"date"`
	Relationship Relationship `json:"relationship"`
	Gender       Gender       `json:"gender,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Image        string       `json:"image,omitempty"`
	GiftIdeas    []string     `json:"giftIdeas,omitempty"`
	Reminders    *Reminders   `json:"reminders,omitempty"`
}

// ReminderSettings returns the effective reminder offsets.
func (b Birthday) ReminderSettings() Reminders {
	if b.Reminders == nil {
		return DefaultReminders
	}
	return *b.Reminders
}

// Validate checks the required fields and enumerations.
func (b Birthday) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return NewValidationError("name", config.ErrNameRequired)
	}
	if b.Date.IsZero() {
		return NewValidationError("date", config.ErrDateRequired)
	}
	if !b.Relationship.Valid() {
		return NewValidationError("relationship", config.ErrRelationship)
	}
	if !b.Gender.Valid() {
		return NewValidationError("gender", config.ErrGender)
	}
	return nil
}

// BirthdayPatch is a partial update of a birthday. Reminder flags are merged
// individually with the stored ones.
type BirthdayPatch struct {
	Name         *string         `json:"name,omitempty"`
	Date         *Date           `json:"date,omitempty"`
	Relationship *Relationship   `json:"relationship,omitempty"`
	Gender       *Gender         `json:"gender,omitempty"`
	Notes        *string         `json:"notes,omitempty"`
	Image        *string         `json:"image,omitempty"`
	GiftIdeas    []string        `json:"giftIdeas,omitempty"`
	Reminders    *RemindersPatch `json:"reminders,omitempty"`
}

// Apply returns b with the patch merged in.
func (p BirthdayPatch) Apply(b Birthday) Birthday {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Date != nil {
		b.Date = *p.Date
	}
	if p.Relationship != nil {
		b.Relationship = *p.Relationship
	}
	if p.Gender != nil {
		b.Gender = *p.Gender
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	if p.Image != nil {
		b.Image = *p.Image
	}
	if p.GiftIdeas != nil {
		b.GiftIdeas = append([]string(nil), p.GiftIdeas...)
	}
	if p.Reminders != nil {
		merged := p.Reminders.Apply(b.ReminderSettings())
		b.Reminders = &merged
	}
	return b
}

// Note is a freeform note owned by one account.
type Note struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	BackgroundImage string    `json:"backgroundImage,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NotePatch is a partial update of a note.
type NotePatch struct {
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	BackgroundImage *string `json:"backgroundImage,omitempty"`
}

// Apply returns n with the patch merged in.
func (p NotePatch) Apply(n Note) Note {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Description != nil {
		n.Description = *p.Description
	}
	if p.BackgroundImage != nil {
		n.BackgroundImage = *p.BackgroundImage
	}
	return n
}

// Profile describes the account holder.
type Profile struct {
	Name                 string `json:"name"`
	Image                string `json:"image,omitempty"`
	Birthday             *Date  `json:"birthday,omitempty"`
	Gender               Gender `json:"gender,omitempty"`
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	AutoArchive          bool   `json:"autoArchive"`
}

// Validate checks the required fields and enumerations.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", config.ErrNameRequired)
	}
	if !p.Gender.Valid() {
		return NewValidationError("gender", config.ErrGender)
	}
	return nil
}

// GuestProfile is shown when no session is active.
func GuestProfile() Profile {
	return Profile{
		Name:                 config.GuestName,
		Gender:               GenderOther,
		NotificationsEnabled: true,
	}
}

// DefaultProfile is derived for an account that has never saved a profile.
func DefaultProfile(email string) Profile {
	p := GuestProfile()
	p.Name = LocalPart(email)
	return p
}

// LocalPart returns the part of an email before the first "@".
func LocalPart(email string) string {
	local, _, _ := strings.Cut(email, config.EmailLocalSep)
	return local
}

// Credential is one registered account. Only the bcrypt hash is kept.
type Credential struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeEmail trims surrounding whitespace. Matching stays case-sensitive.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewID generates a new ULID for a birthday or note.
func NewID(now time.Time) string {
	entropyLock.Lock()
	defer entropyLock.Unlock()

	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}
