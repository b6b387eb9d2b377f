package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saathi/saathi-cli/internal/models"
	"github.com/saathi/saathi-cli/internal/session"
	"github.com/saathi/saathi-cli/internal/storage"
)

func newSession(t *testing.T) *session.Store {
	t.Helper()
	return session.New(models.TopicNormal, "alice", storage.NewMemoryBackend(), zap.NewNop())
}

func countStreaming(msgs []models.Message) int {
	n := 0
	for _, m := range msgs {
		if m.Streaming {
			n++
		}
	}
	return n
}

func TestBeginAppendsUserThenPlaceholder(t *testing.T) {
	s := newSession(t)
	turn := Begin(s, "hello")

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.NotEmpty(t, msgs[0].Timestamp)
	assert.Equal(t, models.SenderAssistant, msgs[1].Sender)
	assert.True(t, msgs[1].Streaming)
	assert.Empty(t, msgs[1].Timestamp)
	assert.Equal(t, AwaitingFirstChunk, turn.State())
}

func TestAccumulationIsOrderPreservingAndSeparatorFree(t *testing.T) {
	s := newSession(t)
	turn := Begin(s, "q")

	for _, chunk := range []string{"The ", "quick ", "fox"} {
		turn.Accumulate(chunk)
	}
	final := turn.Finalize()

	assert.Equal(t, "The quick fox", final.Text)
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "The quick fox", msgs[1].Text)
	assert.False(t, msgs[1].Streaming)
	assert.NotEmpty(t, msgs[1].Timestamp)
}

func TestAtMostOneStreamingMessage(t *testing.T) {
	s := newSession(t)
	turn := Begin(s, "q")

	assert.Equal(t, 1, countStreaming(s.Messages()))
	turn.Accumulate("partial")
	assert.Equal(t, 1, countStreaming(s.Messages()))
	turn.Finalize()
	assert.Equal(t, 0, countStreaming(s.Messages()))
}

func TestAccumulateUpdatesOnlyThePlaceholder(t *testing.T) {
	s := newSession(t)
	s.Append(models.Message{Sender: models.SenderUser, Text: "earlier", Timestamp: "09:00"})
	s.Append(models.Message{Sender: models.SenderAssistant, Text: "done", Timestamp: "09:01"})

	turn := Begin(s, "q")
	turn.Accumulate("new text")

	msgs := s.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "earlier", msgs[0].Text)
	assert.Equal(t, "done", msgs[1].Text)
	assert.Equal(t, "new text", msgs[3].Text)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	s := newSession(t)
	turn := Begin(s, "q")
	turn.Accumulate("answer")

	turn.Finalize()
	before := s.Messages()

	turn.Finalize()
	assert.Equal(t, before, s.Messages())
	assert.Equal(t, Finalized, turn.State())
}

func TestFinalizeTrimsAndFallsBackWhenEmpty(t *testing.T) {
	s := newSession(t)
	turn := Begin(s, "q")
	turn.Accumulate("  \n  ")

	final := turn.Finalize()
	assert.Equal(t, models.EmptyReplyText, final.Text)
}

func TestFailReplacesPlaceholderAndDiscardsPartialText(t *testing.T) {
	s := newSession(t)
	turn := Begin(s, "q")
	turn.Accumulate("partial answer that will be lost")

	turn.Fail()

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.ServerErrorText, msgs[1].Text)
	assert.False(t, msgs[1].Streaming)
	assert.Equal(t, Failed, turn.State())

	// Late chunks and a late completion are ignored.
	turn.Accumulate("too late")
	turn.Finalize()
	assert.Equal(t, models.ServerErrorText, s.Messages()[1].Text)
}

func TestFailBeforeAnyChunk(t *testing.T) {
	s := newSession(t)
	turn := Begin(s, "q")

	turn.Fail()

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.ServerErrorText, msgs[1].Text)
	assert.False(t, msgs[1].Streaming)
}

func TestResolveSwapsPlaceholderWholesale(t *testing.T) {
	s := newSession(t)
	turn := Begin(s, "What is X?")

	turn.Resolve(models.Message{
		Sender:             models.SenderAssistant,
		Text:               "X is a thing.",
		AssociatedQuestion: "What is X?",
	})

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "X is a thing.", msgs[1].Text)
	assert.Equal(t, "What is X?", msgs[1].AssociatedQuestion)
	assert.False(t, msgs[1].Streaming)
	assert.NotEmpty(t, msgs[1].Timestamp)
	assert.Equal(t, Finalized, turn.State())
}

func TestAbortRemovesPlaceholder(t *testing.T) {
	s := newSession(t)
	turn := Begin(s, "q")

	turn.Abort()

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, 0, countStreaming(msgs))
}

func TestTurnsHaveDistinctIDs(t *testing.T) {
	s := newSession(t)
	a := Begin(s, "one")
	a.Finalize()
	b := Begin(s, "two")
	b.Finalize()

	assert.NotEqual(t, a.ID, b.ID)
}
