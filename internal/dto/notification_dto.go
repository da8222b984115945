package dto

import (
	"time"

	"github.com/noah-isme/portalis-api/internal/reconcile"
)

// NotificationResponse is one notification as rendered to the client.
type NotificationResponse struct {
	ID          int       `json:"id"`
	Type        string    `json:"type"`
	ClassKey    string    `json:"class_key,omitempty"`
	PostID      int       `json:"post_id,omitempty"`
	ActivityKey string    `json:"activity_key,omitempty"`
	ResourceID  int       `json:"resource_id,omitempty"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationStateResponse is the grouped notification payload plus the
// unread counter, always published together.
type NotificationStateResponse struct {
	New         []NotificationResponse `json:"new"`
	Today       []NotificationResponse `json:"today"`
	Earlier     []NotificationResponse `json:"earlier"`
	UnreadCount int                    `json:"unread_count"`
}

// NotificationEvent signals a store change to stream subscribers.
type NotificationEvent struct {
	Trigger     string    `json:"trigger"`
	UnreadCount int       `json:"unread_count"`
	ChangedAt   time.Time `json:"changed_at"`
}

// NewNotificationResponse converts a reconciled notification.
func NewNotificationResponse(notification reconcile.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          notification.ID,
		Type:        notification.Type,
		ClassKey:    notification.ClassKey,
		PostID:      notification.PostID,
		ActivityKey: notification.ActivityKey,
		ResourceID:  notification.ResourceID,
		Message:     notification.Message,
		IsRead:      notification.IsRead,
		CreatedAt:   notification.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice of notifications.
func NewNotificationResponseSlice(notifications []reconcile.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewNotificationResponse(notification))
	}

	return responses
}

// NewNotificationStateResponse converts grouped notifications and their
// unread count into the client payload.
func NewNotificationStateResponse(groups reconcile.NotificationGroups, unread int) NotificationStateResponse {
	return NotificationStateResponse{
		New:         NewNotificationResponseSlice(groups.New),
		Today:       NewNotificationResponseSlice(groups.Today),
		Earlier:     NewNotificationResponseSlice(groups.Earlier),
		UnreadCount: unread,
	}
}
