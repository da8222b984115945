package reconcile

import (
	"sort"
	"time"
)

// NoDueDateLabel is the label of the trailing group holding activities
// without a deadline.
const NoDueDateLabel = "No due date"

// DueDateGroup is one date bucket of activities, labelled for display.
type DueDateGroup struct {
	Label      string     `json:"label"`
	Date       time.Time  `json:"date"`
	Activities []Activity `json:"activities"`
}

// GroupByDueDate buckets activities by the calendar day of their deadline
// and orders the buckets chronologically, with deadline-free activities in a
// trailing group. Membership within a group preserves input order, so the
// grouping is stable: identical input always produces identical group
// membership and order.
func GroupByDueDate(activities []Activity) []DueDateGroup {
	grouped := make(map[time.Time]*DueDateGroup)
	order := make([]time.Time, 0)
	undated := make([]Activity, 0)

	for _, activity := range activities {
		if !activity.HasDeadline() {
			undated = append(undated, activity)
			continue
		}

		year, month, day := activity.Deadline.Date()
		key := time.Date(year, month, day, 0, 0, 0, 0, activity.Deadline.Location())

		group, exists := grouped[key]
		if !exists {
			group = &DueDateGroup{
				Label: key.Format("January 2, Monday"),
				Date:  key,
			}
			grouped[key] = group
			order = append(order, key)
		}
		group.Activities = append(group.Activities, activity)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Before(order[j])
	})

	groups := make([]DueDateGroup, 0, len(order)+1)
	for _, key := range order {
		groups = append(groups, *grouped[key])
	}

	if len(undated) > 0 {
		groups = append(groups, DueDateGroup{
			Label:      NoDueDateLabel,
			Activities: undated,
		})
	}

	return groups
}

// SortForDisplay orders activities for the flat list view: nearest deadline
// first, deadline-free activities last, most recently posted first within a
// tie. The sort is stable with respect to the input.
func SortForDisplay(activities []Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		a, b := activities[i], activities[j]

		switch {
		case a.HasDeadline() && !b.HasDeadline():
			return true
		case !a.HasDeadline() && b.HasDeadline():
			return false
		case a.HasDeadline() && b.HasDeadline() && !a.Deadline.Equal(b.Deadline):
			return a.Deadline.Before(b.Deadline)
		default:
			return a.PostedAt.After(b.PostedAt)
		}
	})
}
