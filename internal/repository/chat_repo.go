package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/portalis-api/internal/models"
)

// ChatRepository handles persistence reads for conversations and messages.
// The portal only consumes this data to derive unread counts; the chat
// backend owns writes.
type ChatRepository interface {
	ConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	UnreadCount(ctx context.Context, conversationID uint, userID string) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// ConversationsForUser returns the conversations the user participates in,
// most recently active first. Participant membership is evaluated in-process
// because the participants column is an opaque JSON array whose query
// semantics differ between backends.
func (r *chatRepository) ConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if err := r.db.WithContext(ctx).
		Order("last_message_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, err
	}

	matched := make([]models.Conversation, 0, len(conversations))
	for _, conversation := range conversations {
		if conversation.HasParticipant(userID) {
			matched = append(matched, conversation)
		}
	}

	return matched, nil
}

// UnreadCount counts messages in the conversation the user has not read
// yet. Messages the user sent themselves are never counted against them.
func (r *chatRepository) UnreadCount(ctx context.Context, conversationID uint, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("conversation_id = ?", conversationID).
		Where("sender_id <> ?", userID).
		Where("read = ?", false).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
