package service

import (
	"context"
	"sync"

	"github.com/noah-isme/portalis-api/internal/lms"
)

// stubGateway is an in-memory Gateway used across the service tests. Every
// counter is guarded so concurrent aggregation paths can assert call counts.
type stubGateway struct {
	mu sync.Mutex

	settings    lms.SettingsRecord
	settingsErr error

	classes    []lms.ClassRecord
	classesErr error

	activitiesByClass map[string][]lms.ActivityRecord
	activityErrs      map[string]error

	submissions    []lms.SubmissionRecord
	submissionsErr error

	notifications    []lms.NotificationRecord
	notificationsErr error

	markReadErr    error
	markAllReadErr error

	// release, when set, blocks Notifications until closed.
	release chan struct{}

	settingsCalls      int
	classCalls         int
	activityCalls      int
	submissionCalls    int
	notificationCalls  int
	markReadCalls      []int
	markAllReadCalls   int
	lastSubmissionArgs []string
}

func (g *stubGateway) Settings(ctx context.Context) (lms.SettingsRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settingsCalls++
	return g.settings, g.settingsErr
}

func (g *stubGateway) StudentClasses(ctx context.Context, studentID, academicYear, semester string) ([]lms.ClassRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.classCalls++
	return g.classes, g.classesErr
}

func (g *stubGateway) ClassActivities(ctx context.Context, classCode, academicYear, semester string) ([]lms.ActivityRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activityCalls++
	if err, ok := g.activityErrs[classCode]; ok {
		return nil, err
	}
	return g.activitiesByClass[classCode], nil
}

func (g *stubGateway) StudentSubmissions(ctx context.Context, studentID string, classCodes []string) ([]lms.SubmissionRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submissionCalls++
	g.lastSubmissionArgs = classCodes
	return g.submissions, g.submissionsErr
}

func (g *stubGateway) Notifications(ctx context.Context, studentID string) ([]lms.NotificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	release := g.release
	g.notificationCalls++
	records := g.notifications
	err := g.notificationsErr
	g.mu.Unlock()

	if release != nil {
		<-release
	}

	return records, err
}

func (g *stubGateway) MarkNotificationRead(ctx context.Context, id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markReadCalls = append(g.markReadCalls, id)
	return g.markReadErr
}

func (g *stubGateway) MarkAllNotificationsRead(ctx context.Context, studentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markAllReadCalls++
	return g.markAllReadErr
}

func (g *stubGateway) setNotifications(records []lms.NotificationRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notifications = records
}

func (g *stubGateway) notificationCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.notificationCalls
}
