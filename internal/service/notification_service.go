package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/portalis-api/internal/dto"
	"github.com/noah-isme/portalis-api/internal/lms"
	"github.com/noah-isme/portalis-api/internal/observability"
	"github.com/noah-isme/portalis-api/internal/reconcile"
)

const notificationEventBufferSize = 16

// ErrNotificationNotFound indicates the requested notification is not in
// the caller's current set.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService owns the per-student notification state: a
// deduplicated, time-ordered in-memory set with its unread counter, kept in
// sync with the school gateway. It is the only shared mutable state in the
// portal core; every mutation funnels through Refresh, MarkRead and
// MarkAllRead so the list and the unread count always change together.
type NotificationService interface {
	State(ctx context.Context, studentID string) (dto.NotificationStateResponse, error)
	Refresh(ctx context.Context, studentID string) (dto.NotificationStateResponse, error)
	MarkRead(ctx context.Context, studentID string, id int) (dto.NotificationStateResponse, error)
	MarkAllRead(ctx context.Context, studentID string) (dto.NotificationStateResponse, error)
	Subscribe(studentID string) (<-chan dto.NotificationEvent, func())
	NotifyChanged(ctx context.Context, studentID string) error
	Teardown(studentID string)
	Start(ctx context.Context)
}

// notificationStore is one student's snapshot. List and unread counter are
// only ever swapped together under the lock.
type notificationStore struct {
	mu     sync.RWMutex
	items  []reconcile.Notification
	unread int
	loaded bool
}

type notificationService struct {
	gateway     lms.Gateway
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	location    *time.Location
	logger      zerolog.Logger
	tracer      trace.Tracer
	nodeID      string
	now         func() time.Time

	mu     sync.Mutex
	stores map[string]*notificationStore
	flight singleflight.Group
	broker *notificationBroker
}

// changedEvent is the cross-process "notifications changed" signal. Any
// producer of notification-relevant mutations can publish it without
// knowing about the store.
type changedEvent struct {
	Source    string    `json:"source"`
	StudentID string    `json:"student_id"`
	SentAt    time.Time `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.NotificationEvent]struct{}
}

// NewNotificationService constructs the notification store service.
func NewNotificationService(gateway lms.Gateway, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, location *time.Location, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications:changed"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications.changed"
	}

	if location == nil {
		location = time.Local
	}

	return &notificationService{
		gateway:     gateway,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		location:    location,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/portalis-api/internal/service/notification"),
		nodeID:      uuid.NewString(),
		now:         time.Now,
		stores:      make(map[string]*notificationStore),
		broker: &notificationBroker{
			subscribers: make(map[string]map[chan dto.NotificationEvent]struct{}),
		},
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// State returns the current grouped snapshot, fetching it first if this is
// the student's first touch since login.
func (s *notificationService) State(ctx context.Context, studentID string) (dto.NotificationStateResponse, error) {
	if studentID == "" {
		return dto.NotificationStateResponse{}, ErrStudentRequired
	}

	store := s.store(studentID)

	store.mu.RLock()
	loaded := store.loaded
	store.mu.RUnlock()

	if !loaded {
		if err := s.refresh(ctx, studentID, "initial"); err != nil {
			return dto.NotificationStateResponse{}, err
		}
	}

	return s.snapshot(studentID), nil
}

// Refresh fetches the full current set from the gateway and folds it into
// the local one. Concurrent refreshes for the same student are coalesced:
// a second caller awaits the in-flight outcome instead of issuing another
// fetch.
func (s *notificationService) Refresh(ctx context.Context, studentID string) (dto.NotificationStateResponse, error) {
	if studentID == "" {
		return dto.NotificationStateResponse{}, ErrStudentRequired
	}

	if err := s.refresh(ctx, studentID, "manual"); err != nil {
		return dto.NotificationStateResponse{}, err
	}

	return s.snapshot(studentID), nil
}

// MarkRead flips a notification to read optimistically, then confirms with
// the gateway. On gateway failure the speculative state is discarded by a
// full refresh rather than rolled back by hand. Marking an already-read
// notification is a no-op.
func (s *notificationService) MarkRead(ctx context.Context, studentID string, id int) (dto.NotificationStateResponse, error) {
	if studentID == "" {
		return dto.NotificationStateResponse{}, ErrStudentRequired
	}

	store := s.store(studentID)

	store.mu.Lock()
	if !store.loaded {
		store.mu.Unlock()
		if err := s.refresh(ctx, studentID, "initial"); err != nil {
			return dto.NotificationStateResponse{}, err
		}
		store.mu.Lock()
	}

	found := false
	alreadyRead := false
	for i := range store.items {
		if store.items[i].ID != id {
			continue
		}
		found = true
		alreadyRead = store.items[i].IsRead
		if !alreadyRead {
			store.items[i].IsRead = true
			if store.unread > 0 {
				store.unread--
			}
		}
		break
	}
	unread := store.unread
	store.mu.Unlock()

	if !found {
		return dto.NotificationStateResponse{}, ErrNotificationNotFound
	}
	if alreadyRead {
		return s.snapshot(studentID), nil
	}

	s.broadcast(studentID, "read", unread)

	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.String("student.id", studentID),
		attribute.Int("notification.id", id),
	))
	defer span.End()

	if err := s.gateway.MarkNotificationRead(spanCtx, id); err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Int("notification_id", id).Msg("mark-read rejected, resynchronizing")
		if refreshErr := s.refresh(ctx, studentID, "resync"); refreshErr != nil {
			return dto.NotificationStateResponse{}, refreshErr
		}
	}

	return s.snapshot(studentID), nil
}

// MarkAllRead confirms with the gateway first and only then mutates local
// state; there is no speculative phase to roll back.
func (s *notificationService) MarkAllRead(ctx context.Context, studentID string) (dto.NotificationStateResponse, error) {
	if studentID == "" {
		return dto.NotificationStateResponse{}, ErrStudentRequired
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_all_read", trace.WithAttributes(
		attribute.String("student.id", studentID),
	))
	defer span.End()

	if err := s.gateway.MarkAllNotificationsRead(spanCtx, studentID); err != nil {
		span.RecordError(err)
		return dto.NotificationStateResponse{}, err
	}

	store := s.store(studentID)
	store.mu.Lock()
	for i := range store.items {
		store.items[i].IsRead = true
	}
	store.unread = 0
	store.loaded = true
	store.mu.Unlock()

	s.broadcast(studentID, "read_all", 0)

	return s.snapshot(studentID), nil
}

func (s *notificationService) Subscribe(studentID string) (<-chan dto.NotificationEvent, func()) {
	channel := make(chan dto.NotificationEvent, notificationEventBufferSize)

	s.broker.subscribe(studentID, channel)
	observability.StreamClientsActive().Inc()

	cleanup := func() {
		s.broker.unsubscribe(studentID, channel)
		observability.StreamClientsActive().Dec()
	}

	return channel, cleanup
}

// NotifyChanged publishes the shared "notifications changed" signal so
// every node refreshes the student's store. Producers of notification
// mutations call this without depending on store internals.
func (s *notificationService) NotifyChanged(ctx context.Context, studentID string) error {
	event := changedEvent{
		Source:    s.nodeID,
		StudentID: studentID,
		SentAt:    time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	// The local store refreshes directly; the published event is for the
	// other nodes.
	s.handleChanged(ctx, studentID)

	return nil
}

// Teardown drops the student's store and closes their subscriptions. Called
// at logout; the next authenticated touch starts from a cold store.
func (s *notificationService) Teardown(studentID string) {
	s.mu.Lock()
	delete(s.stores, studentID)
	s.mu.Unlock()

	s.broker.teardown(studentID)
}

func (s *notificationService) store(studentID string) *notificationStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, exists := s.stores[studentID]
	if !exists {
		store = &notificationStore{}
		s.stores[studentID] = store
	}

	return store
}

func (s *notificationService) refresh(ctx context.Context, studentID, trigger string) error {
	// The coalesced fetch serves every waiting caller, so it must not die
	// with whichever request happened to start it.
	fetchCtx := context.WithoutCancel(ctx)

	_, err, _ := s.flight.Do(studentID, func() (interface{}, error) {
		spanCtx, span := s.tracer.Start(fetchCtx, "notifications.refresh", trace.WithAttributes(
			attribute.String("student.id", studentID),
			attribute.String("refresh.trigger", trigger),
		))
		defer span.End()

		records, err := s.gateway.Notifications(spanCtx, studentID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		incoming := make([]reconcile.Notification, 0, len(records))
		for _, record := range records {
			incoming = append(incoming, reconcile.Notification{
				ID:          record.ID,
				Type:        record.Type,
				ClassKey:    record.ClassCode,
				PostID:      record.PostID,
				ActivityKey: reconcile.CanonicalKey(record.RecordNumber, record.SubmissionCode),
				ResourceID:  record.ResourceID,
				Message:     record.Message,
				IsRead:      record.IsRead,
				CreatedAt:   lms.ParseTimestamp(record.CreatedAt, s.location),
			})
		}

		store := s.store(studentID)
		store.mu.Lock()
		store.items = reconcile.MergeNotifications(store.items, incoming)
		store.unread = reconcile.UnreadCount(store.items)
		store.loaded = true
		unread := store.unread
		store.mu.Unlock()

		observability.NotificationRefreshes().WithLabelValues(trigger).Inc()
		s.broadcast(studentID, "refreshed", unread)

		return nil, nil
	})

	return err
}

func (s *notificationService) snapshot(studentID string) dto.NotificationStateResponse {
	store := s.store(studentID)

	store.mu.RLock()
	items := make([]reconcile.Notification, len(store.items))
	copy(items, store.items)
	unread := store.unread
	store.mu.RUnlock()

	groups := reconcile.GroupNotifications(items, s.now(), s.location)

	return dto.NewNotificationStateResponse(groups, unread)
}

func (s *notificationService) broadcast(studentID, trigger string, unread int) {
	s.broker.broadcast(studentID, dto.NotificationEvent{
		Trigger:     trigger,
		UnreadCount: unread,
		ChangedAt:   time.Now().UTC(),
	})
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleChangedEvent(ctx, []byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "portalis-notifications", func(msg *nats.Msg) {
		s.handleChangedEvent(ctx, msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleChangedEvent(ctx context.Context, payload []byte) {
	var event changedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification change event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.handleChanged(ctx, event.StudentID)
}

func (s *notificationService) handleChanged(ctx context.Context, studentID string) {
	// Only students with a live store refresh; a signal for a logged-out
	// student is dropped.
	s.mu.Lock()
	_, active := s.stores[studentID]
	s.mu.Unlock()
	if !active {
		return
	}

	if err := s.refresh(ctx, studentID, "signal"); err != nil {
		s.logger.Warn().Err(err).Str("student_id", studentID).Msg("signal-triggered refresh failed")
	}
}

func (b *notificationBroker) subscribe(studentID string, ch chan dto.NotificationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[studentID]; !exists {
		b.subscribers[studentID] = make(map[chan dto.NotificationEvent]struct{})
	}
	b.subscribers[studentID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(studentID string, ch chan dto.NotificationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[studentID]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, studentID)
		}
	}
}

func (b *notificationBroker) teardown(studentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers[studentID] {
		close(ch)
	}
	delete(b.subscribers, studentID)
}

func (b *notificationBroker) broadcast(studentID string, event dto.NotificationEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[studentID] {
		select {
		case ch <- event:
		default:
		}
	}
}
