package engine

import (
	"cmp"
	"slices"

	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/model"
)

// IsMilestone reports whether age belongs to the notable set.
func IsMilestone(age int) bool {
	_, found := slices.BinarySearch(config.MilestoneAges, age)
	return found
}

// Milestones returns the birthdays whose next turning age is a milestone,
// ascending by next occurrence.
func Milestones(birthdays []model.Birthday, today model.Date) []Occurrence {
	var out []Occurrence
	for _, b := range birthdays {
		if occ := Occur(b, today); occ.Milestone {
			out = append(out, occ)
		}
	}
	sortByNext(out)
	return out
}

// sortByNext orders occurrences by next date, then by name for stable output.
func sortByNext(occ []Occurrence) {
	slices.SortStableFunc(occ, func(a, b Occurrence) int {
		return cmp.Or(a.Next.Compare(b.Next.Time), cmp.Compare(a.Birthday.Name, b.Birthday.Name))
	})
}
