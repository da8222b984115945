package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/portalis-api/internal/models"
	"github.com/noah-isme/portalis-api/internal/repository"
)

func newChatDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Conversation{}, &models.ChatMessage{}))

	t.Cleanup(func() {
		require.NoError(t, db.Exec("DELETE FROM chat_messages").Error)
		require.NoError(t, db.Exec("DELETE FROM conversations").Error)
	})

	return db
}

func seedConversation(t *testing.T, db *gorm.DB, participants string, lastMessageAt time.Time) models.Conversation {
	t.Helper()

	conversation := models.Conversation{
		Participants:    datatypes.JSON(participants),
		LastMessageText: "latest",
		LastMessageAt:   lastMessageAt,
	}
	require.NoError(t, db.Create(&conversation).Error)

	return conversation
}

func TestUnreadSummaryCountsOnlyOthersUnreadMessages(t *testing.T) {
	db := newChatDB(t)
	now := time.Date(2025, 11, 15, 8, 0, 0, 0, time.UTC)

	conversation := seedConversation(t, db, `["2021-00123","2021-00456"]`, now)

	messages := []models.ChatMessage{
		{ConversationID: conversation.ID, SenderID: "2021-00456", Content: "hi", Read: false},
		{ConversationID: conversation.ID, SenderID: "2021-00456", Content: "there", Read: false},
		{ConversationID: conversation.ID, SenderID: "2021-00456", Content: "old", Read: true},
		{ConversationID: conversation.ID, SenderID: "2021-00123", Content: "mine", Read: false},
	}
	require.NoError(t, db.Create(&messages).Error)

	svc := NewChatService(repository.NewChatRepository(db), zerolog.Nop())

	summary, err := svc.UnreadSummary(context.Background(), "2021-00123")
	require.NoError(t, err)

	require.Equal(t, int64(2), summary.Total)
	require.Len(t, summary.Conversations, 1)
	require.Equal(t, conversation.ID, summary.Conversations[0].ConversationID)
	require.Equal(t, int64(2), summary.Conversations[0].UnreadCount)
}

func TestUnreadSummarySkipsForeignConversations(t *testing.T) {
	db := newChatDB(t)
	now := time.Date(2025, 11, 15, 8, 0, 0, 0, time.UTC)

	mine := seedConversation(t, db, `["2021-00123","2021-00456"]`, now)
	other := seedConversation(t, db, `["2021-00789","2021-00456"]`, now.Add(time.Hour))

	messages := []models.ChatMessage{
		{ConversationID: mine.ID, SenderID: "2021-00456", Content: "hi", Read: false},
		{ConversationID: other.ID, SenderID: "2021-00456", Content: "not for me", Read: false},
	}
	require.NoError(t, db.Create(&messages).Error)

	svc := NewChatService(repository.NewChatRepository(db), zerolog.Nop())

	summary, err := svc.UnreadSummary(context.Background(), "2021-00123")
	require.NoError(t, err)

	require.Equal(t, int64(1), summary.Total)
	require.Len(t, summary.Conversations, 1)
	require.Equal(t, mine.ID, summary.Conversations[0].ConversationID)
}

func TestUnreadSummaryOrdersByRecentActivity(t *testing.T) {
	db := newChatDB(t)
	now := time.Date(2025, 11, 15, 8, 0, 0, 0, time.UTC)

	older := seedConversation(t, db, `["2021-00123","2021-00456"]`, now.Add(-time.Hour))
	newer := seedConversation(t, db, `["2021-00123","2021-00789"]`, now)

	svc := NewChatService(repository.NewChatRepository(db), zerolog.Nop())

	summary, err := svc.UnreadSummary(context.Background(), "2021-00123")
	require.NoError(t, err)

	require.Len(t, summary.Conversations, 2)
	require.Equal(t, newer.ID, summary.Conversations[0].ConversationID)
	require.Equal(t, older.ID, summary.Conversations[1].ConversationID)
}

func TestUnreadSummaryRequiresUser(t *testing.T) {
	db := newChatDB(t)
	svc := NewChatService(repository.NewChatRepository(db), zerolog.Nop())

	_, err := svc.UnreadSummary(context.Background(), "")
	require.ErrorIs(t, err, ErrStudentRequired)
}
