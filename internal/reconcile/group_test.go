package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portalis-api/internal/reconcile"
)

func TestGroupByDueDateBucketsByCalendarDay(t *testing.T) {
	friday := time.Date(2025, 11, 14, 23, 59, 0, 0, time.UTC)
	saturday := time.Date(2025, 11, 15, 8, 0, 0, 0, time.UTC)

	activities := []reconcile.Activity{
		{Key: "A-1", Deadline: saturday},
		{Key: "A-2", Deadline: friday},
		{Key: "A-3", Deadline: friday.Add(-6 * time.Hour)},
		{Key: "A-4"},
	}

	groups := reconcile.GroupByDueDate(activities)

	require.Len(t, groups, 3)

	require.Equal(t, "November 14, Friday", groups[0].Label)
	require.Equal(t, []string{"A-2", "A-3"}, activityKeys(groups[0].Activities))

	require.Equal(t, "November 15, Saturday", groups[1].Label)
	require.Equal(t, []string{"A-1"}, activityKeys(groups[1].Activities))

	require.Equal(t, reconcile.NoDueDateLabel, groups[2].Label)
	require.Equal(t, []string{"A-4"}, activityKeys(groups[2].Activities))
}

func TestGroupByDueDateOmitsEmptyUndatedGroup(t *testing.T) {
	groups := reconcile.GroupByDueDate([]reconcile.Activity{
		{Key: "A-1", Deadline: time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)},
	})

	require.Len(t, groups, 1)
	require.NotEqual(t, reconcile.NoDueDateLabel, groups[0].Label)
}

func TestGroupByDueDateIsStable(t *testing.T) {
	deadline := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	activities := []reconcile.Activity{
		{Key: "A-1", Deadline: deadline},
		{Key: "A-2", Deadline: deadline},
		{Key: "A-3", Deadline: deadline},
	}

	first := reconcile.GroupByDueDate(activities)
	second := reconcile.GroupByDueDate(activities)

	require.Equal(t, first, second)
	require.Equal(t, []string{"A-1", "A-2", "A-3"}, activityKeys(first[0].Activities))
}

func TestSortForDisplay(t *testing.T) {
	early := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	late := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	posted := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

	activities := []reconcile.Activity{
		{Key: "undated-old", PostedAt: posted},
		{Key: "far", Deadline: late, PostedAt: posted},
		{Key: "near", Deadline: early, PostedAt: posted},
		{Key: "undated-new", PostedAt: posted.Add(48 * time.Hour)},
	}

	reconcile.SortForDisplay(activities)

	require.Equal(t, []string{"near", "far", "undated-new", "undated-old"}, activityKeys(activities))
}

func TestSortForDisplayEqualDeadlinesFallBackToPostedAt(t *testing.T) {
	deadline := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)

	activities := []reconcile.Activity{
		{Key: "older", Deadline: deadline, PostedAt: deadline.Add(-72 * time.Hour)},
		{Key: "newer", Deadline: deadline, PostedAt: deadline.Add(-24 * time.Hour)},
	}

	reconcile.SortForDisplay(activities)

	require.Equal(t, []string{"newer", "older"}, activityKeys(activities))
}

func TestCourseColorIsDeterministic(t *testing.T) {
	first := reconcile.CourseColor("40922")
	second := reconcile.CourseColor("40922")

	require.Equal(t, first, second)
	require.Regexp(t, `^#[0-9A-F]{6}$`, first)
}

func TestCourseColorStaysInPaletteForLargeHashes(t *testing.T) {
	// The FNV-1a hash of the empty string is the offset basis, which is
	// above MaxInt32; the palette index must still be a valid uint32
	// modulo on every platform.
	require.Regexp(t, `^#[0-9A-F]{6}$`, reconcile.CourseColor(""))
}

func activityKeys(activities []reconcile.Activity) []string {
	keys := make([]string, 0, len(activities))
	for _, activity := range activities {
		keys = append(keys, activity.Key)
	}
	return keys
}
