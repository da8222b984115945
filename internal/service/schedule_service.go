package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/portalis-api/internal/dto"
	"github.com/noah-isme/portalis-api/internal/lms"
	"github.com/noah-isme/portalis-api/internal/reconcile"
)

// clockLayout is the "H:MM AM/PM" form class meeting times arrive in.
const clockLayout = "3:04 PM"

// ScheduleService derives the weekly timetable from class records.
type ScheduleService interface {
	WeeklySchedule(ctx context.Context, studentID string, query dto.ActivityQuery) (dto.WeeklyScheduleResponse, error)
}

type scheduleService struct {
	gateway   lms.Gateway
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewScheduleService builds the schedule service.
func NewScheduleService(gateway lms.Gateway, validate *validator.Validate, logger zerolog.Logger) ScheduleService {
	return &scheduleService{
		gateway:   gateway,
		validator: validate,
		logger:    logger.With().Str("component", "schedule_service").Logger(),
	}
}

// scheduleDayOrder renders Monday-first weeks.
var scheduleDayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// weekdayAliases maps the gateway's three/four-letter day abbreviations.
var weekdayAliases = map[string]time.Weekday{
	"mon":   time.Monday,
	"tue":   time.Tuesday,
	"tues":  time.Tuesday,
	"wed":   time.Wednesday,
	"thu":   time.Thursday,
	"thur":  time.Thursday,
	"thurs": time.Thursday,
	"fri":   time.Friday,
	"sat":   time.Saturday,
	"sun":   time.Sunday,
}

func (s *scheduleService) WeeklySchedule(ctx context.Context, studentID string, query dto.ActivityQuery) (dto.WeeklyScheduleResponse, error) {
	if studentID == "" {
		return dto.WeeklyScheduleResponse{}, ErrStudentRequired
	}
	if err := s.validator.Struct(query); err != nil {
		return dto.WeeklyScheduleResponse{}, err
	}

	academicYear := query.AcademicYear
	semester := query.Semester
	if academicYear == "" || semester == "" {
		settings, err := s.gateway.Settings(ctx)
		if err != nil {
			return dto.WeeklyScheduleResponse{}, err
		}
		if academicYear == "" {
			academicYear = settings.AcademicYear
		}
		if semester == "" {
			semester = settings.Semester
		}
	}

	classes, err := s.gateway.StudentClasses(ctx, studentID, academicYear, semester)
	if err != nil {
		return dto.WeeklyScheduleResponse{}, err
	}

	type timedPeriod struct {
		start  time.Time
		period dto.SchedulePeriodResponse
	}
	byDay := make(map[time.Weekday][]timedPeriod)

	for _, class := range classes {
		start, startErr := time.Parse(clockLayout, strings.TrimSpace(class.StartTime))
		end, endErr := time.Parse(clockLayout, strings.TrimSpace(class.EndTime))
		if startErr != nil || endErr != nil {
			s.logger.Debug().
				Str("class_code", class.ClassCode).
				Str("start_time", class.StartTime).
				Str("end_time", class.EndTime).
				Msg("skipping class with unparseable meeting times")
			continue
		}

		period := dto.SchedulePeriodResponse{
			ClassKey:    class.ClassCode,
			CourseName:  class.CourseName(),
			CourseColor: reconcile.CourseColor(class.ClassCode),
			FacultyName: class.FacultyName,
			StartTime:   start.Format(clockLayout),
			EndTime:     end.Format(clockLayout),
		}

		for _, token := range strings.Split(class.MeetingDays, ",") {
			day, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(token))]
			if !ok {
				if strings.TrimSpace(token) != "" {
					s.logger.Debug().
						Str("class_code", class.ClassCode).
						Str("day", token).
						Msg("skipping unknown meeting day")
				}
				continue
			}
			byDay[day] = append(byDay[day], timedPeriod{start: start, period: period})
		}
	}

	response := dto.WeeklyScheduleResponse{Days: make([]dto.ScheduleDayResponse, 0, len(byDay))}
	for _, day := range scheduleDayOrder {
		periods, ok := byDay[day]
		if !ok {
			continue
		}

		sort.SliceStable(periods, func(i, j int) bool {
			return periods[i].start.Before(periods[j].start)
		})

		entry := dto.ScheduleDayResponse{
			Day:     day.String(),
			Periods: make([]dto.SchedulePeriodResponse, 0, len(periods)),
		}
		for _, item := range periods {
			entry.Periods = append(entry.Periods, item.period)
		}

		response.Days = append(response.Days, entry)
	}

	return response, nil
}
