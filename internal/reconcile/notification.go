package reconcile

import (
	"sort"
	"time"
)

// Notification type discriminators as reported by the backend.
const (
	NotificationTypePost     = "post"
	NotificationTypeActivity = "activity"
	NotificationTypeResource = "resource"
)

// Notification is one server-originated event. ID is the dedupe key: a
// merged set never contains two entries with the same ID.
type Notification struct {
	ID          int       `json:"id"`
	Type        string    `json:"type"`
	ClassKey    string    `json:"class_key"`
	PostID      int       `json:"post_id,omitempty"`
	ActivityKey string    `json:"activity_key,omitempty"`
	ResourceID  int       `json:"resource_id,omitempty"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// MergeNotifications folds a freshly fetched set into an existing one. The
// incoming copy wins for every overlapping ID, entries present only in one
// set are kept, and the result is ordered descending by creation time. The
// merge is idempotent: folding the same incoming set twice yields the same
// result.
func MergeNotifications(existing, incoming []Notification) []Notification {
	merged := make([]Notification, 0, len(existing)+len(incoming))
	position := make(map[int]int, len(existing)+len(incoming))

	for _, notification := range existing {
		if idx, seen := position[notification.ID]; seen {
			merged[idx] = notification
			continue
		}
		position[notification.ID] = len(merged)
		merged = append(merged, notification)
	}

	for _, notification := range incoming {
		if idx, seen := position[notification.ID]; seen {
			merged[idx] = notification
			continue
		}
		position[notification.ID] = len(merged)
		merged = append(merged, notification)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID > merged[j].ID
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	return merged
}

// UnreadCount counts the notifications still marked unread.
func UnreadCount(notifications []Notification) int {
	count := 0
	for _, notification := range notifications {
		if !notification.IsRead {
			count++
		}
	}

	return count
}

// NotificationGroups partitions notifications for display: unread first,
// then read notifications from today, then everything older.
type NotificationGroups struct {
	New     []Notification `json:"new"`
	Today   []Notification `json:"today"`
	Earlier []Notification `json:"earlier"`
}

// GroupNotifications partitions a notification list into new/today/earlier
// buckets. The today boundary is the calendar day of now in loc, derived
// from the raw creation instant rather than any rendered relative-time
// label, so formatting changes cannot silently move entries between
// buckets. Input order is preserved within each bucket, so grouping an
// already sorted list is stable.
func GroupNotifications(notifications []Notification, now time.Time, loc *time.Location) NotificationGroups {
	if loc == nil {
		loc = now.Location()
	}

	year, month, day := now.In(loc).Date()

	groups := NotificationGroups{
		New:     make([]Notification, 0),
		Today:   make([]Notification, 0),
		Earlier: make([]Notification, 0),
	}

	for _, notification := range notifications {
		if !notification.IsRead {
			groups.New = append(groups.New, notification)
			continue
		}

		cy, cm, cd := notification.CreatedAt.In(loc).Date()
		if cy == year && cm == month && cd == day {
			groups.Today = append(groups.Today, notification)
			continue
		}

		groups.Earlier = append(groups.Earlier, notification)
	}

	return groups
}
