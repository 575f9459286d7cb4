package engine

import (
	"time"

	"github.com/tartampluch/remindme/internal/model"
)

// Sign is a western zodiac sign with its element.
type Sign struct {
	Name    string `json:"sign"`
	Element string `json:"element"`
	Symbol  string `json:"symbol"`
}

// zodiacBoundary marks the last day of a sign's range.
type zodiacBoundary struct {
	month   time.Month
	lastDay int
	sign    Sign
}

// Ordered from January; a date belongs to the first boundary it does not exceed.
var zodiacTable = []zodiacBoundary{
	{time.January, 19, Sign{"Capricorn", "Earth", "♑"}},
	{time.February, 18, Sign{"Aquarius", "Air", "♒"}},
	{time.March, 20, Sign{"Pisces", "Water", "♓"}},
	{time.April, 19, Sign{"Aries", "Fire", "♈"}},
	{time.May, 20, Sign{"Taurus", "Earth", "♉"}},
	{time.June, 20, Sign{"Gemini", "Air", "♊"}},
	{time.July, 22, Sign{"Cancer", "Water", "♋"}},
	{time.August, 22, Sign{"Leo", "Fire", "♌"}},
	{time.September, 22, Sign{"Virgo", "Earth", "♍"}},
	{time.October, 22, Sign{"Libra", "Air", "♎"}},
	{time.November, 21, Sign{"Scorpio", "Water", "♏"}},
	{time.December, 21, Sign{"Sagittarius", "Fire", "♐"}},
}

var capricorn = zodiacTable[0].sign

// Zodiac returns the sign of a date of birth.
func Zodiac(d model.Date) Sign {
	for _, b := range zodiacTable {
		if d.Month() < b.month || (d.Month() == b.month && d.Day() <= b.lastDay) {
			return b.sign
		}
	}
	return capricorn
}
