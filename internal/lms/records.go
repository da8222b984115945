// Package lms talks to the legacy school information system the portal
// aggregates. The backend is a thin query/procedure gateway over the
// school's database: responses are row collections with loosely typed
// fields, "no records found" is reported as a failure, and identifier
// fields are populated inconsistently. This package absorbs those quirks
// and hands the rest of the service clean records.
package lms

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/noah-isme/portalis-api/internal/reconcile"
)

// ActivityRecord is one activity definition row. RecordNumber and
// SubmissionCode are the two identifier fields the backend uses
// interchangeably; SubmissionCode is frequently blank.
type ActivityRecord struct {
	RecordNumber   string  `json:"record_number"`
	SubmissionCode string  `json:"submission_code"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	TotalScore     float64 `json:"total_score"`
	Deadline       string  `json:"deadline"`
	PostedAt       string  `json:"posted_at"`
	Graded         bool    `json:"graded"`
	Score          float64 `json:"score"`
}

// Key returns the canonical activity key for this record.
func (r ActivityRecord) Key() string {
	return reconcile.CanonicalKey(r.RecordNumber, r.SubmissionCode)
}

// SubmissionRecord is one submission row. The record-number/code pair
// references the activity the submission answers, with the same ambiguity
// as on the activity side.
type SubmissionRecord struct {
	RecordNumber   string `json:"record_number"`
	SubmissionCode string `json:"submission_code"`
	SubmittedAt    string `json:"submitted_at"`
}

// Key returns the canonical activity key this submission answers.
func (r SubmissionRecord) Key() string {
	return reconcile.CanonicalKey(r.RecordNumber, r.SubmissionCode)
}

// ClassRecord is one class enrollment row. MeetingDays is a comma-joined
// list of three/four-letter day abbreviations; the time fields are
// "H:MM AM/PM" strings.
type ClassRecord struct {
	ClassCode          string `json:"class_code"`
	SubjectCode        string `json:"subject_code"`
	SubjectDescription string `json:"subject_description"`
	FacultyName        string `json:"faculty_name"`
	MeetingDays        string `json:"meeting_days"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
}

// CourseName returns the display name of the class, preferring the subject
// description over the bare subject code.
func (r ClassRecord) CourseName() string {
	if name := strings.TrimSpace(r.SubjectDescription); name != "" {
		return name
	}

	return strings.TrimSpace(r.SubjectCode)
}

// SettingsRecord carries the active academic scope every query is keyed by.
// The backend emits the semester as either a bare number or a string; it is
// carried as a string either way.
type SettingsRecord struct {
	AcademicYear string `json:"academic_year"`
	Semester     string `json:"semester"`
}

// UnmarshalJSON accepts both semester shapes.
func (r *SettingsRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		AcademicYear string          `json:"academic_year"`
		Semester     json.RawMessage `json:"semester"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.AcademicYear = raw.AcademicYear
	r.Semester = flexibleString(raw.Semester)

	return nil
}

// flexibleString decodes a JSON value that may be a string or a number into
// its string form. Anything else yields "".
func flexibleString(raw json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}

	return ""
}

// NotificationRecord is one notification row.
type NotificationRecord struct {
	ID             int    `json:"id"`
	Type           string `json:"type"`
	ClassCode      string `json:"class_code"`
	PostID         int    `json:"post_id"`
	RecordNumber   string `json:"record_number"`
	SubmissionCode string `json:"submission_code"`
	ResourceID     int    `json:"resource_id"`
	Message        string `json:"message"`
	IsRead         bool   `json:"is_read"`
	CreatedAt      string `json:"created_at"`
}

// timestampLayouts covers the formats the gateway has been observed to emit.
// Timestamps carry no zone information; the caller supplies the school's
// location.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006 3:04:05 PM",
	"2006-01-02",
}

// ParseTimestamp parses a gateway timestamp string in the given location.
// An empty or unparseable value yields the zero time, which the reconcile
// package treats as an absent instant.
func ParseTimestamp(value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed
		}
	}

	return time.Time{}
}

// ClassCodeList renders class codes in the parenthesized, comma-separated
// form the batched submission query expects, e.g. "(40922, 40923, 40924)".
func ClassCodeList(codes []string) string {
	return "(" + strings.Join(codes, ", ") + ")"
}
