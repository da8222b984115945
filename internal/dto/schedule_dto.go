package dto

// SchedulePeriodResponse is one class meeting within a day.
type SchedulePeriodResponse struct {
	ClassKey    string `json:"class_key"`
	CourseName  string `json:"course_name"`
	CourseColor string `json:"course_color"`
	FacultyName string `json:"faculty_name,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// ScheduleDayResponse groups the periods of one weekday in meeting order.
type ScheduleDayResponse struct {
	Day     string                   `json:"day"`
	Periods []SchedulePeriodResponse `json:"periods"`
}

// WeeklyScheduleResponse is the full timetable, Monday first. Days without
// any meeting are omitted.
type WeeklyScheduleResponse struct {
	Days []ScheduleDayResponse `json:"days"`
}
