package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saathi/saathi-cli/internal/models"
)

func TestMemoryBackendRoundTrip(t *testing.T) {
	b := NewMemoryBackend()

	snap := &models.Snapshot{
		Messages: []models.Message{
			{Sender: models.SenderUser, Text: "hello"},
			{Sender: models.SenderAssistant, Text: "hi"},
		},
		PendingInput: "next question",
	}
	require.NoError(t, b.Save("normal-chat-alice", snap))

	got, ok, err := b.Load("normal-chat-alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.Messages, got.Messages)
	assert.Equal(t, "next question", got.PendingInput)
}

func TestMemoryBackendMissingKey(t *testing.T) {
	b := NewMemoryBackend()

	got, ok, err := b.Load("kb-chat-nobody")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestMemoryBackendDelete(t *testing.T) {
	b := NewMemoryBackend()

	require.NoError(t, b.Save("db-chat-alice", &models.Snapshot{PendingInput: "x"}))
	require.NoError(t, b.Delete("db-chat-alice"))

	_, ok, err := b.Load("db-chat-alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackendCopiesOnLoad(t *testing.T) {
	b := NewMemoryBackend()

	require.NoError(t, b.Save("pdf-chat-alice", &models.Snapshot{
		Messages: []models.Message{{Sender: models.SenderUser, Text: "original"}},
	}))

	got, _, err := b.Load("pdf-chat-alice")
	require.NoError(t, err)
	got.Messages[0].Text = "mutated"

	again, _, err := b.Load("pdf-chat-alice")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Messages[0].Text)
}
