package reconcile

import "time"

// Status is the canonical state of an activity for one student. Late is a
// refinement of completed; call sites that only need a binary completion
// flag can collapse it via IsLate.
type Status string

const (
	// StatusNotStarted indicates no submission exists and the deadline, if
	// any, has not passed.
	StatusNotStarted Status = "not_started"
	// StatusMissing indicates no submission exists and the deadline has
	// passed.
	StatusMissing Status = "missing"
	// StatusCompleted indicates a submission exists and was not provably
	// late.
	StatusCompleted Status = "completed"
	// StatusLate indicates a submission exists and was made after the
	// deadline.
	StatusLate Status = "late"
)

// DeriveStatus computes the status of an activity given its matched
// submission (nil when unmatched) and the instant of evaluation. Callers
// must pass the current time rather than a cached value so a screen held
// open across a deadline boundary recomputes correctly on its next refresh.
//
// The decision table, evaluated in order:
//  1. submission present: late when provably after the deadline, otherwise
//     completed
//  2. deadline present and passed: missing
//  3. otherwise: not started
func DeriveStatus(activity Activity, submission *Submission, now time.Time) Status {
	if submission != nil {
		if IsLate(activity, submission) {
			return StatusLate
		}
		return StatusCompleted
	}

	if activity.HasDeadline() && now.After(activity.Deadline) {
		return StatusMissing
	}

	return StatusNotStarted
}

// IsLate reports whether the submission was made after the activity's
// deadline. A submission without a timestamp, or an activity without a
// deadline, is treated as on time: lateness is only asserted when it can be
// proven from both instants.
func IsLate(activity Activity, submission *Submission) bool {
	if submission == nil {
		return false
	}
	if !activity.HasDeadline() || submission.SubmittedAt.IsZero() {
		return false
	}

	return submission.SubmittedAt.After(activity.Deadline)
}
