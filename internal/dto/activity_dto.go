package dto

import (
	"time"

	"github.com/noah-isme/portalis-api/internal/reconcile"
)

// ActivityQuery narrows aggregation to an academic scope. Empty fields fall
// back to the gateway's active settings.
type ActivityQuery struct {
	AcademicYear string `query:"academic_year" validate:"omitempty,max=16"`
	Semester     string `query:"semester" validate:"omitempty,max=16"`
}

// ActivityResponse is one display-ready activity with its derived status.
type ActivityResponse struct {
	Key          string     `json:"key"`
	ClassKey     string     `json:"class_key"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	PostedAt     time.Time  `json:"posted_at"`
	TotalPoints  float64    `json:"total_points"`
	ScoredPoints *float64   `json:"scored_points,omitempty"`
	CourseName   string     `json:"course_name"`
	CourseColor  string     `json:"course_color"`
	Status       string     `json:"status"`
	Late         bool       `json:"late"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

// AggregatedActivitiesResponse is the full dashboard payload: every
// reconciled activity plus summary counters and, on partial failure, the
// classes that could not be loaded.
type AggregatedActivitiesResponse struct {
	Activities         []ActivityResponse `json:"activities"`
	TotalPoints        float64            `json:"total_points"`
	EarnedPoints       float64            `json:"earned_points"`
	UnavailableClasses []string           `json:"unavailable_classes,omitempty"`
	Message            string             `json:"message,omitempty"`
}

// DueDateGroupResponse is one chronologically ordered due-date bucket.
type DueDateGroupResponse struct {
	Label      string             `json:"label"`
	Activities []ActivityResponse `json:"activities"`
}

// NewActivityResponse converts a reconciled activity.
func NewActivityResponse(activity reconcile.Activity) ActivityResponse {
	response := ActivityResponse{
		Key:          activity.Key,
		ClassKey:     activity.ClassKey,
		Title:        activity.Title,
		Description:  activity.Description,
		PostedAt:     activity.PostedAt,
		TotalPoints:  activity.TotalPoints,
		ScoredPoints: activity.ScoredPoints,
		CourseName:   activity.CourseName,
		CourseColor:  activity.CourseColor,
		Status:       string(activity.Status),
		Late:         activity.Late,
		SubmittedAt:  activity.SubmittedAt,
	}

	if activity.HasDeadline() {
		deadline := activity.Deadline
		response.Deadline = &deadline
	}

	return response
}

// NewActivityResponseSlice converts a slice of reconciled activities.
func NewActivityResponseSlice(activities []reconcile.Activity) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(activities))
	for _, activity := range activities {
		responses = append(responses, NewActivityResponse(activity))
	}

	return responses
}

// NewDueDateGroupResponseSlice converts ordered due-date groups.
func NewDueDateGroupResponseSlice(groups []reconcile.DueDateGroup) []DueDateGroupResponse {
	responses := make([]DueDateGroupResponse, 0, len(groups))
	for _, group := range groups {
		responses = append(responses, DueDateGroupResponse{
			Label:      group.Label,
			Activities: NewActivityResponseSlice(group.Activities),
		})
	}

	return responses
}
