package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Conversation is a chat thread between two or more portal users. The
// portal only consumes conversations for unread counting; the chat backend
// owns their lifecycle.
type Conversation struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Participants    datatypes.JSON `gorm:"type:json" json:"participants"`
	LastMessageText string         `gorm:"type:text" json:"last_message_text"`
	LastMessageAt   time.Time      `gorm:"index" json:"last_message_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ParticipantIDs decodes the participants array. A malformed payload yields
// an empty list.
func (c Conversation) ParticipantIDs() []string {
	var ids []string
	if err := json.Unmarshal(c.Participants, &ids); err != nil {
		return nil
	}

	return ids
}

// HasParticipant reports whether the given user belongs to the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs() {
		if id == userID {
			return true
		}
	}

	return false
}

// ChatMessage is a single message within a conversation.
type ChatMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	SenderID       string    `gorm:"size:64;index" json:"sender_id"`
	Content        string    `gorm:"type:text" json:"content"`
	Read           bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
