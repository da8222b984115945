package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/portalis-api/internal/dto"
	"github.com/noah-isme/portalis-api/internal/lms"
	"github.com/noah-isme/portalis-api/internal/observability"
	"github.com/noah-isme/portalis-api/internal/reconcile"
)

// ErrStudentRequired indicates the caller could not be resolved to a
// student; the client should re-authenticate instead of retrying.
var ErrStudentRequired = errors.New("student id is required")

const unavailableClassesMessage = "Some classes are temporarily unavailable. Pull to refresh to try again."

// ActivityService aggregates classes, activities and submissions into the
// reconciled dashboard view.
type ActivityService interface {
	Aggregate(ctx context.Context, studentID string, query dto.ActivityQuery) (dto.AggregatedActivitiesResponse, error)
	GroupedByDueDate(ctx context.Context, studentID string, query dto.ActivityQuery) ([]dto.DueDateGroupResponse, error)
}

type activityService struct {
	gateway   lms.Gateway
	cache     *redis.Client
	cacheTTL  time.Duration
	location  *time.Location
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// aggregation is the cacheable part of an aggregation run. Statuses are
// recomputed from the stored deadlines and submission instants on every
// read, so a cache hit never serves a stale missing/not-started decision.
type aggregation struct {
	Activities   []reconcile.Activity `json:"activities"`
	TotalPoints  float64              `json:"total_points"`
	EarnedPoints float64              `json:"earned_points"`
	Unavailable  []string             `json:"unavailable,omitempty"`
}

// NewActivityService builds the activity aggregator.
func NewActivityService(gateway lms.Gateway, cache *redis.Client, ttl time.Duration, location *time.Location, validate *validator.Validate, logger zerolog.Logger) ActivityService {
	if location == nil {
		location = time.Local
	}

	return &activityService{
		gateway:   gateway,
		cache:     cache,
		cacheTTL:  ttl,
		location:  location,
		validator: validate,
		logger:    logger.With().Str("component", "activity_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/portalis-api/internal/service/activity"),
		now:       time.Now,
	}
}

func (s *activityService) Aggregate(ctx context.Context, studentID string, query dto.ActivityQuery) (dto.AggregatedActivitiesResponse, error) {
	result, err := s.aggregate(ctx, studentID, query)
	if err != nil {
		return dto.AggregatedActivitiesResponse{}, err
	}

	response := dto.AggregatedActivitiesResponse{
		Activities:         dto.NewActivityResponseSlice(result.Activities),
		TotalPoints:        result.TotalPoints,
		EarnedPoints:       result.EarnedPoints,
		UnavailableClasses: result.Unavailable,
	}
	if len(result.Unavailable) > 0 {
		response.Message = unavailableClassesMessage
	}

	return response, nil
}

func (s *activityService) GroupedByDueDate(ctx context.Context, studentID string, query dto.ActivityQuery) ([]dto.DueDateGroupResponse, error) {
	result, err := s.aggregate(ctx, studentID, query)
	if err != nil {
		return nil, err
	}

	return dto.NewDueDateGroupResponseSlice(reconcile.GroupByDueDate(result.Activities)), nil
}

func (s *activityService) aggregate(ctx context.Context, studentID string, query dto.ActivityQuery) (aggregation, error) {
	if studentID == "" {
		return aggregation{}, ErrStudentRequired
	}
	if err := s.validator.Struct(query); err != nil {
		return aggregation{}, err
	}

	academicYear, semester, err := s.resolveScope(ctx, query)
	if err != nil {
		return aggregation{}, err
	}

	cacheKey := fmt.Sprintf("activities:%s:%s:%s", studentID, academicYear, semester)
	if cached, ok := s.readCache(ctx, cacheKey); ok {
		cached.Activities = reconcile.Restatus(cached.Activities, s.now())
		return cached, nil
	}

	spanCtx, span := s.tracer.Start(ctx, "activities.aggregate", trace.WithAttributes(
		attribute.String("student.id", studentID),
		attribute.String("scope.academic_year", academicYear),
		attribute.String("scope.semester", semester),
	))
	defer span.End()

	classes, err := s.gateway.StudentClasses(spanCtx, studentID, academicYear, semester)
	if err != nil {
		span.RecordError(err)
		return aggregation{}, err
	}

	codes := make([]string, 0, len(classes))
	for _, class := range classes {
		codes = append(codes, class.ClassCode)
	}

	// Per-class activity fetches and the batched submission query run
	// concurrently; nothing is joined until both sides of the scope have
	// completed. A failed class records itself as unavailable instead of
	// aborting the others. A failed submission batch compromises every
	// join, so it fails the whole aggregation.
	var (
		mu          sync.Mutex
		byClass     = make(map[string][]lms.ActivityRecord, len(classes))
		unavailable []string
		submissions []lms.SubmissionRecord
	)

	group, gctx := errgroup.WithContext(spanCtx)

	group.Go(func() error {
		records, err := s.gateway.StudentSubmissions(gctx, studentID, codes)
		if err != nil {
			return err
		}
		submissions = records
		return nil
	})

	for _, class := range classes {
		class := class
		group.Go(func() error {
			records, err := s.gateway.ClassActivities(gctx, class.ClassCode, academicYear, semester)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn().Err(err).Str("class_code", class.ClassCode).Msg("class activities unavailable")
				unavailable = append(unavailable, class.ClassCode)
				return nil
			}
			byClass[class.ClassCode] = records
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		span.RecordError(err)
		return aggregation{}, err
	}

	index := reconcile.BuildSubmissionIndex(mapSubmissions(submissions, s.location))

	activities := make([]reconcile.Activity, 0)
	for _, class := range classes {
		records, ok := byClass[class.ClassCode]
		if !ok {
			continue
		}
		for _, record := range records {
			activities = append(activities, s.mapActivity(record, class))
		}
	}

	activities = reconcile.Resolve(activities, index, s.now())
	reconcile.SortForDisplay(activities)
	total, earned := reconcile.Totals(activities)
	sort.Strings(unavailable)

	observability.ActivitiesReconciled().Add(float64(len(activities)))

	result := aggregation{
		Activities:   activities,
		TotalPoints:  total,
		EarnedPoints: earned,
		Unavailable:  unavailable,
	}

	// Partial results are never cached; the next call retries the failed
	// classes.
	if len(unavailable) == 0 {
		s.writeCache(ctx, cacheKey, result)
	}

	return result, nil
}

func (s *activityService) resolveScope(ctx context.Context, query dto.ActivityQuery) (string, string, error) {
	academicYear := query.AcademicYear
	semester := query.Semester
	if academicYear != "" && semester != "" {
		return academicYear, semester, nil
	}

	settings, err := s.gateway.Settings(ctx)
	if err != nil {
		return "", "", err
	}

	if academicYear == "" {
		academicYear = settings.AcademicYear
	}
	if semester == "" {
		semester = settings.Semester
	}

	return academicYear, semester, nil
}

func (s *activityService) mapActivity(record lms.ActivityRecord, class lms.ClassRecord) reconcile.Activity {
	activity := reconcile.Activity{
		Key:         record.Key(),
		ClassKey:    class.ClassCode,
		Title:       record.Title,
		Description: record.Description,
		Deadline:    lms.ParseTimestamp(record.Deadline, s.location),
		PostedAt:    lms.ParseTimestamp(record.PostedAt, s.location),
		TotalPoints: record.TotalScore,
		CourseName:  class.CourseName(),
		CourseColor: reconcile.CourseColor(class.ClassCode),
	}

	if record.Graded {
		score := record.Score
		activity.ScoredPoints = &score
	}

	return activity
}

func (s *activityService) readCache(ctx context.Context, key string) (aggregation, bool) {
	if s.cache == nil {
		return aggregation{}, false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read aggregation cache")
		}
		return aggregation{}, false
	}

	var result aggregation
	if err := json.Unmarshal([]byte(cached), &result); err != nil {
		return aggregation{}, false
	}

	return result, true
}

func (s *activityService) writeCache(ctx context.Context, key string, result aggregation) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store aggregation cache")
	}
}

func mapSubmissions(records []lms.SubmissionRecord, location *time.Location) []reconcile.Submission {
	submissions := make([]reconcile.Submission, 0, len(records))
	for _, record := range records {
		submissions = append(submissions, reconcile.Submission{
			Key:         record.Key(),
			SubmittedAt: lms.ParseTimestamp(record.SubmittedAt, location),
		})
	}

	return submissions
}
