package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/portalis-api/internal/dto"
	"github.com/noah-isme/portalis-api/internal/repository"
)

// ChatService derives unread-message counts from the chat store. The portal
// never owns conversation state; it only sums what the chat backend
// recorded.
type ChatService interface {
	UnreadSummary(ctx context.Context, userID string) (dto.ChatUnreadResponse, error)
}

type chatService struct {
	repo   repository.ChatRepository
	logger zerolog.Logger
}

// NewChatService builds the chat unread-count service.
func NewChatService(repo repository.ChatRepository, logger zerolog.Logger) ChatService {
	return &chatService{
		repo:   repo,
		logger: logger.With().Str("component", "chat_service").Logger(),
	}
}

func (s *chatService) UnreadSummary(ctx context.Context, userID string) (dto.ChatUnreadResponse, error) {
	if userID == "" {
		return dto.ChatUnreadResponse{}, ErrStudentRequired
	}

	conversations, err := s.repo.ConversationsForUser(ctx, userID)
	if err != nil {
		return dto.ChatUnreadResponse{}, err
	}

	response := dto.ChatUnreadResponse{
		Conversations: make([]dto.ConversationUnreadResponse, 0, len(conversations)),
	}

	for _, conversation := range conversations {
		count, err := s.repo.UnreadCount(ctx, conversation.ID, userID)
		if err != nil {
			return dto.ChatUnreadResponse{}, err
		}

		response.Total += count
		response.Conversations = append(response.Conversations, dto.ConversationUnreadResponse{
			ConversationID:  conversation.ID,
			LastMessageText: conversation.LastMessageText,
			LastMessageAt:   conversation.LastMessageAt,
			UnreadCount:     count,
		})
	}

	return response, nil
}
