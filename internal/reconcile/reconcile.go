// Package reconcile derives canonical activity state from the weakly
// correlated collections the legacy school backend returns: class rosters,
// activity definitions and submission records that reference activities
// through inconsistent identifier fields. Everything in this package is a
// pure function over already-fetched data so callers can join, derive and
// group without network access.
package reconcile

import (
	"strings"
	"time"
)

// CanonicalKey resolves the identifier an activity or submission record
// should be joined on. The backend populates two fields inconsistently: the
// record-number field is the one submissions actually reference, while the
// submission-code field is frequently blank. The record number therefore
// takes precedence on both sides of the join; the submission code is only a
// fallback. Whitespace-only counts as blank for the precedence decision, but
// the chosen value is returned verbatim — no normalization is applied, so a
// backend inconsistency surfaces as an unmatched submission rather than a
// guessed join.
func CanonicalKey(recordNumber, submissionCode string) string {
	if strings.TrimSpace(recordNumber) != "" {
		return recordNumber
	}

	return submissionCode
}

// Submission is a student's work against one activity, already resolved to
// its canonical key. A zero SubmittedAt means the backend supplied no usable
// timestamp.
type Submission struct {
	Key         string    `json:"key"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// BuildSubmissionIndex maps each canonical activity key to the latest
// submission for that key. Records without a usable key are dropped; they
// cannot be correlated and must not corrupt the index. A record only
// replaces the stored one when its timestamp is strictly later, so records
// with equal timestamps resolve to whichever was encountered first and an
// absent timestamp never supersedes an existing entry. The latest-wins
// outcome is independent of input order.
func BuildSubmissionIndex(submissions []Submission) map[string]Submission {
	index := make(map[string]Submission, len(submissions))

	for _, submission := range submissions {
		if submission.Key == "" {
			continue
		}

		current, exists := index[submission.Key]
		if !exists {
			index[submission.Key] = submission
			continue
		}

		if submission.SubmittedAt.After(current.SubmittedAt) {
			index[submission.Key] = submission
		}
	}

	return index
}

// Activity is one assignable unit of work, display-ready after aggregation.
// It is an immutable value recreated on every refresh; Status and Late are
// filled in by the aggregation step from DeriveStatus. A zero Deadline means
// the activity has no deadline and can never become missing.
type Activity struct {
	Key          string     `json:"key"`
	ClassKey     string     `json:"class_key"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Deadline     time.Time  `json:"deadline"`
	PostedAt     time.Time  `json:"posted_at"`
	TotalPoints  float64    `json:"total_points"`
	ScoredPoints *float64   `json:"scored_points,omitempty"`
	CourseName   string     `json:"course_name"`
	CourseColor  string     `json:"course_color"`
	Status       Status     `json:"status"`
	Late         bool       `json:"late"`
	Submitted    bool       `json:"submitted"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

// HasDeadline reports whether the activity carries a deadline.
func (a Activity) HasDeadline() bool {
	return !a.Deadline.IsZero()
}
