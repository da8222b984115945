package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portalis-api/internal/dto"
	"github.com/noah-isme/portalis-api/internal/lms"
	"github.com/noah-isme/portalis-api/internal/reconcile"
)

func newActivityServiceForTest(t *testing.T, gateway lms.Gateway, cache *redis.Client, now time.Time) *activityService {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewActivityService(gateway, cache, time.Minute, time.UTC, validate, zerolog.Nop()).(*activityService)
	svc.now = func() time.Time { return now }

	return svc
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	server := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: server.Addr()})
}

func TestAggregateJoinsClassesActivitiesAndSubmissions(t *testing.T) {
	now := time.Date(2025, 11, 15, 8, 0, 0, 0, time.UTC)

	gateway := &stubGateway{
		classes: []lms.ClassRecord{
			{ClassCode: "40922", SubjectCode: "CS101", SubjectDescription: "Intro to Computing"},
			{ClassCode: "40923", SubjectCode: "MATH21", SubjectDescription: "Calculus"},
		},
		activitiesByClass: map[string][]lms.ActivityRecord{
			"40922": {
				{RecordNumber: "A-1", Title: "Quiz 1", TotalScore: 100, Deadline: "2025-11-14 23:59:00", Graded: true, Score: 90},
				{RecordNumber: "A-2", Title: "Quiz 2", TotalScore: 50, Deadline: "2025-11-14 23:59:00"},
			},
			"40923": {
				{SubmissionCode: "M-1", Title: "Problem Set", TotalScore: 20},
			},
		},
		submissions: []lms.SubmissionRecord{
			{RecordNumber: "A-1", SubmittedAt: "2025-11-14 10:00:00"},
		},
	}

	svc := newActivityServiceForTest(t, gateway, nil, now)

	response, err := svc.Aggregate(context.Background(), "2021-00123", dto.ActivityQuery{AcademicYear: "2025-2026", Semester: "1"})
	require.NoError(t, err)

	require.Len(t, response.Activities, 3)
	require.Empty(t, response.UnavailableClasses)
	require.Empty(t, response.Message)

	byKey := make(map[string]dto.ActivityResponse, len(response.Activities))
	for _, activity := range response.Activities {
		byKey[activity.Key] = activity
	}

	require.Equal(t, string(reconcile.StatusCompleted), byKey["A-1"].Status)
	require.Equal(t, string(reconcile.StatusMissing), byKey["A-2"].Status)
	require.Equal(t, string(reconcile.StatusNotStarted), byKey["M-1"].Status)

	require.Equal(t, 170.0, response.TotalPoints)
	require.Equal(t, 90.0, response.EarnedPoints)

	// Dated activities sort ahead of the deadline-free one.
	require.Equal(t, "M-1", response.Activities[2].Key)

	require.Equal(t, "Intro to Computing", byKey["A-1"].CourseName)
	require.NotEmpty(t, byKey["A-1"].CourseColor)
	require.Equal(t, []string{"40922", "40923"}, gateway.lastSubmissionArgs)
}

func TestAggregateIsolatesFailedClasses(t *testing.T) {
	now := time.Date(2025, 11, 15, 8, 0, 0, 0, time.UTC)

	gateway := &stubGateway{
		classes: []lms.ClassRecord{
			{ClassCode: "40922", SubjectDescription: "Intro to Computing"},
			{ClassCode: "40923", SubjectDescription: "Calculus"},
		},
		activitiesByClass: map[string][]lms.ActivityRecord{
			"40922": {{RecordNumber: "A-1", Title: "Quiz 1", TotalScore: 100}},
		},
		activityErrs: map[string]error{
			"40923": lms.ErrGatewayUnavailable,
		},
	}

	cache := newTestRedis(t)
	svc := newActivityServiceForTest(t, gateway, cache, now)

	response, err := svc.Aggregate(context.Background(), "2021-00123", dto.ActivityQuery{AcademicYear: "2025-2026", Semester: "1"})
	require.NoError(t, err)

	require.Len(t, response.Activities, 1)
	require.Equal(t, []string{"40923"}, response.UnavailableClasses)
	require.NotEmpty(t, response.Message)

	// Partial results are never cached.
	keys, err := cache.Keys(context.Background(), "activities:*").Result()
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestAggregateSubmissionBatchFailureFailsEverything(t *testing.T) {
	gateway := &stubGateway{
		classes: []lms.ClassRecord{
			{ClassCode: "40922", SubjectDescription: "Intro to Computing"},
		},
		activitiesByClass: map[string][]lms.ActivityRecord{
			"40922": {{RecordNumber: "A-1", Title: "Quiz 1"}},
		},
		submissionsErr: lms.ErrGatewayUnavailable,
	}

	svc := newActivityServiceForTest(t, gateway, nil, time.Now())

	_, err := svc.Aggregate(context.Background(), "2021-00123", dto.ActivityQuery{AcademicYear: "2025-2026", Semester: "1"})
	require.ErrorIs(t, err, lms.ErrGatewayUnavailable)
}

func TestAggregateFallsBackToGatewaySettings(t *testing.T) {
	gateway := &stubGateway{
		settings: lms.SettingsRecord{AcademicYear: "2025-2026", Semester: "2"},
	}

	svc := newActivityServiceForTest(t, gateway, nil, time.Now())

	_, err := svc.Aggregate(context.Background(), "2021-00123", dto.ActivityQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, gateway.settingsCalls)
}

func TestAggregateRequiresStudent(t *testing.T) {
	svc := newActivityServiceForTest(t, &stubGateway{}, nil, time.Now())

	_, err := svc.Aggregate(context.Background(), "", dto.ActivityQuery{})
	require.ErrorIs(t, err, ErrStudentRequired)
}

func TestAggregateCacheHitRecomputesStatus(t *testing.T) {
	deadline := time.Date(2025, 11, 14, 23, 59, 0, 0, time.UTC)

	gateway := &stubGateway{
		classes: []lms.ClassRecord{{ClassCode: "40922", SubjectDescription: "Intro to Computing"}},
		activitiesByClass: map[string][]lms.ActivityRecord{
			"40922": {{RecordNumber: "A-1", Title: "Quiz 1", Deadline: "2025-11-14 23:59:00"}},
		},
	}

	cache := newTestRedis(t)
	svc := newActivityServiceForTest(t, gateway, cache, deadline.Add(-time.Hour))
	query := dto.ActivityQuery{AcademicYear: "2025-2026", Semester: "1"}

	first, err := svc.Aggregate(context.Background(), "2021-00123", query)
	require.NoError(t, err)
	require.Equal(t, string(reconcile.StatusNotStarted), first.Activities[0].Status)

	classCallsAfterFirst := gateway.classCalls

	// The screen stays open across the deadline; the cached aggregation must
	// flip to missing without another gateway round trip.
	svc.now = func() time.Time { return deadline.Add(time.Hour) }

	second, err := svc.Aggregate(context.Background(), "2021-00123", query)
	require.NoError(t, err)
	require.Equal(t, string(reconcile.StatusMissing), second.Activities[0].Status)
	require.Equal(t, classCallsAfterFirst, gateway.classCalls)
}

func TestGroupedByDueDate(t *testing.T) {
	now := time.Date(2025, 11, 13, 8, 0, 0, 0, time.UTC)

	gateway := &stubGateway{
		classes: []lms.ClassRecord{{ClassCode: "40922", SubjectDescription: "Intro to Computing"}},
		activitiesByClass: map[string][]lms.ActivityRecord{
			"40922": {
				{RecordNumber: "A-1", Title: "Quiz 1", Deadline: "2025-11-14 23:59:00"},
				{RecordNumber: "A-2", Title: "Quiz 2", Deadline: "2025-11-15 23:59:00"},
				{RecordNumber: "A-3", Title: "Reading"},
			},
		},
	}

	svc := newActivityServiceForTest(t, gateway, nil, now)

	groups, err := svc.GroupedByDueDate(context.Background(), "2021-00123", dto.ActivityQuery{AcademicYear: "2025-2026", Semester: "1"})
	require.NoError(t, err)

	require.Len(t, groups, 3)
	require.Equal(t, "November 14, Friday", groups[0].Label)
	require.Equal(t, "November 15, Saturday", groups[1].Label)
	require.Equal(t, reconcile.NoDueDateLabel, groups[2].Label)
}
