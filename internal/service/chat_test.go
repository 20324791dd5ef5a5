package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorta/internal/models"
)

func TestGetOrCreateConversationMatchesEitherDirection(t *testing.T) {
	svc := NewChatService(newTestDB(t))
	ctx := context.Background()

	first, err := svc.GetOrCreateConversation(ctx, "alice", "guard", nil)
	require.NoError(t, err)

	// swapped roles still resolve to the same thread
	second, err := svc.GetOrCreateConversation(ctx, "guard", "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSendMessageBumpsConversation(t *testing.T) {
	svc := NewChatService(newTestDB(t))
	ctx := context.Background()

	conv, err := svc.GetOrCreateConversation(ctx, "alice", "guard", nil)
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, conv.ID, "alice", "ciao", models.MessageTypeText)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	got, err := svc.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, "ciao", *got.LastMessage)
	require.NotNil(t, got.LastMessageAt)
}

func TestConversationsOrderedByActivity(t *testing.T) {
	svc := NewChatService(newTestDB(t))
	ctx := context.Background()

	a, err := svc.GetOrCreateConversation(ctx, "alice", "guard1", nil)
	require.NoError(t, err)
	b, err := svc.GetOrCreateConversation(ctx, "alice", "guard2", nil)
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, a.ID, "alice", "first", models.MessageTypeText)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, b.ID, "alice", "second", models.MessageTypeText)
	require.NoError(t, err)

	convs, err := svc.Conversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, b.ID, convs[0].ID)
}

func TestMarkMessagesRead(t *testing.T) {
	svc := NewChatService(newTestDB(t))
	ctx := context.Background()

	conv, err := svc.GetOrCreateConversation(ctx, "alice", "guard", nil)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, conv.ID, "guard", "are you ok?", models.MessageTypeText)
	require.NoError(t, err)
	mine, err := svc.SendMessage(ctx, conv.ID, "alice", "yes", models.MessageTypeText)
	require.NoError(t, err)

	require.NoError(t, svc.MarkMessagesRead(ctx, conv.ID, "alice"))

	msgs, err := svc.Messages(ctx, conv.ID)
	require.NoError(t, err)
	for _, m := range msgs {
		if m.ID == mine.ID {
			assert.False(t, m.Read, "own messages stay untouched")
		} else {
			assert.True(t, m.Read)
		}
	}
}
