package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portalis-api/internal/dto"
	"github.com/noah-isme/portalis-api/internal/lms"
)

func newScheduleServiceForTest(t *testing.T, gateway lms.Gateway) ScheduleService {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewScheduleService(gateway, validate, zerolog.Nop())
}

func TestWeeklyScheduleOrdersDaysAndPeriods(t *testing.T) {
	gateway := &stubGateway{
		classes: []lms.ClassRecord{
			{ClassCode: "40923", SubjectDescription: "Calculus", MeetingDays: "Mon, Wed", StartTime: "1:00 PM", EndTime: "2:30 PM"},
			{ClassCode: "40922", SubjectDescription: "Intro to Computing", MeetingDays: "Mon", StartTime: "9:00 AM", EndTime: "10:30 AM"},
			{ClassCode: "40924", SubjectDescription: "Physical Education", MeetingDays: "Sat", StartTime: "8:00 AM", EndTime: "10:00 AM"},
		},
	}

	svc := newScheduleServiceForTest(t, gateway)

	response, err := svc.WeeklySchedule(context.Background(), "2021-00123", dto.ActivityQuery{AcademicYear: "2025-2026", Semester: "1"})
	require.NoError(t, err)

	require.Len(t, response.Days, 3)
	require.Equal(t, "Monday", response.Days[0].Day)
	require.Equal(t, "Wednesday", response.Days[1].Day)
	require.Equal(t, "Saturday", response.Days[2].Day)

	monday := response.Days[0].Periods
	require.Len(t, monday, 2)
	require.Equal(t, "Intro to Computing", monday[0].CourseName)
	require.Equal(t, "Calculus", monday[1].CourseName)
	require.Equal(t, "9:00 AM", monday[0].StartTime)
}

func TestWeeklyScheduleSkipsUnparseableRows(t *testing.T) {
	gateway := &stubGateway{
		classes: []lms.ClassRecord{
			{ClassCode: "40922", SubjectDescription: "Intro to Computing", MeetingDays: "Mon", StartTime: "TBA", EndTime: "TBA"},
			{ClassCode: "40923", SubjectDescription: "Calculus", MeetingDays: "Tue, Thu", StartTime: "1:00 PM", EndTime: "2:30 PM"},
		},
	}

	svc := newScheduleServiceForTest(t, gateway)

	response, err := svc.WeeklySchedule(context.Background(), "2021-00123", dto.ActivityQuery{AcademicYear: "2025-2026", Semester: "1"})
	require.NoError(t, err)

	require.Len(t, response.Days, 2)
	require.Equal(t, "Tuesday", response.Days[0].Day)
	require.Equal(t, "Thursday", response.Days[1].Day)
}

func TestWeeklyScheduleIgnoresUnknownDayTokens(t *testing.T) {
	gateway := &stubGateway{
		classes: []lms.ClassRecord{
			{ClassCode: "40922", SubjectDescription: "Intro to Computing", MeetingDays: "Mon, TBD", StartTime: "9:00 AM", EndTime: "10:30 AM"},
		},
	}

	svc := newScheduleServiceForTest(t, gateway)

	response, err := svc.WeeklySchedule(context.Background(), "2021-00123", dto.ActivityQuery{AcademicYear: "2025-2026", Semester: "1"})
	require.NoError(t, err)

	require.Len(t, response.Days, 1)
	require.Equal(t, "Monday", response.Days[0].Day)
}

func TestWeeklyScheduleFallsBackToSettings(t *testing.T) {
	gateway := &stubGateway{
		settings: lms.SettingsRecord{AcademicYear: "2025-2026", Semester: "1"},
	}

	svc := newScheduleServiceForTest(t, gateway)

	_, err := svc.WeeklySchedule(context.Background(), "2021-00123", dto.ActivityQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, gateway.settingsCalls)
}

func TestWeeklyScheduleRequiresStudent(t *testing.T) {
	svc := newScheduleServiceForTest(t, &stubGateway{})

	_, err := svc.WeeklySchedule(context.Background(), "", dto.ActivityQuery{})
	require.ErrorIs(t, err, ErrStudentRequired)
}
