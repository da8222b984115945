package reconcile

import "time"

// Resolve joins activities against the submission index and fills in the
// derived fields: submission match, status and lateness. The input slice is
// returned with a fresh generation of values; activities are never mutated
// in place across refreshes.
func Resolve(activities []Activity, index map[string]Submission, now time.Time) []Activity {
	resolved := make([]Activity, 0, len(activities))

	for _, activity := range activities {
		var matched *Submission
		if activity.Key != "" {
			if submission, ok := index[activity.Key]; ok {
				matched = &submission
			}
		}

		activity.Submitted = matched != nil
		activity.SubmittedAt = nil
		if matched != nil && !matched.SubmittedAt.IsZero() {
			at := matched.SubmittedAt
			activity.SubmittedAt = &at
		}

		activity.Status = DeriveStatus(activity, matched, now)
		activity.Late = IsLate(activity, matched)

		resolved = append(resolved, activity)
	}

	return resolved
}

// Restatus recomputes status and lateness for already-resolved activities
// against a new evaluation instant. Statuses are never cached as-is: a
// screen that stays open across a deadline boundary must see the activity
// flip to missing on its next refresh.
func Restatus(activities []Activity, now time.Time) []Activity {
	restatused := make([]Activity, 0, len(activities))

	for _, activity := range activities {
		var matched *Submission
		if activity.Submitted {
			submission := Submission{Key: activity.Key}
			if activity.SubmittedAt != nil {
				submission.SubmittedAt = *activity.SubmittedAt
			}
			matched = &submission
		}

		activity.Status = DeriveStatus(activity, matched, now)
		activity.Late = IsLate(activity, matched)

		restatused = append(restatused, activity)
	}

	return restatused
}

// Totals computes the summary counters: total assignable points over every
// activity, and earned points over graded activities only. An ungraded
// activity contributes to the total but adds nothing to earned.
func Totals(activities []Activity) (total, earned float64) {
	for _, activity := range activities {
		total += activity.TotalPoints
		if activity.ScoredPoints != nil {
			earned += *activity.ScoredPoints
		}
	}

	return total, earned
}
