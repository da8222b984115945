package dto

import "time"

// ConversationUnreadResponse is the unread summary for one conversation.
type ConversationUnreadResponse struct {
	ConversationID  uint      `json:"conversation_id"`
	LastMessageText string    `json:"last_message_text,omitempty"`
	LastMessageAt   time.Time `json:"last_message_at"`
	UnreadCount     int64     `json:"unread_count"`
}

// ChatUnreadResponse sums unread messages across the caller's
// conversations.
type ChatUnreadResponse struct {
	Total         int64                        `json:"total"`
	Conversations []ConversationUnreadResponse `json:"conversations"`
}
