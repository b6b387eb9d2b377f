package chat

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saathi/saathi-cli/internal/api"
	"github.com/saathi/saathi-cli/internal/models"
	"github.com/saathi/saathi-cli/internal/shared"
	"github.com/saathi/saathi-cli/internal/storage"
)

func newHub(t *testing.T, username string, backend storage.Backend) *Hub {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	client := api.NewClient(srv.URL, time.Second, logger)
	return NewHub(username, backend, client, shared.NewArtifacts(), logger)
}

func TestHubCoversEveryTopic(t *testing.T) {
	hub := newHub(t, "alice", storage.NewMemoryBackend())

	for _, topic := range models.Topics {
		require.NotNil(t, hub.Controller(topic), "topic %s", topic)
	}
	assert.Nil(t, hub.Controller(models.Topic("bogus")))
}

func TestHubUserSwitchYieldsDisjointSessions(t *testing.T) {
	backend := storage.NewMemoryBackend()

	a := newHub(t, "alice", backend)
	a.Controller(models.TopicKB).Store().Append(models.Message{
		Sender: models.SenderUser,
		Text:   "alice's question",
	})

	b := newHub(t, "bob", backend)
	assert.Empty(t, b.Controller(models.TopicKB).Messages())
}

func TestHubClearAllEmptiesEveryTopic(t *testing.T) {
	backend := storage.NewMemoryBackend()
	hub := newHub(t, "alice", backend)

	for _, topic := range models.Topics {
		hub.Controller(topic).Store().Append(models.Message{
			Sender: models.SenderUser,
			Text:   "something",
		})
	}

	hub.ClearAll()
	for _, topic := range models.Topics {
		assert.Empty(t, hub.Controller(topic).Messages(), "topic %s", topic)
	}
}

func TestHubClearAllEmptiesInsights(t *testing.T) {
	backend := storage.NewMemoryBackend()
	hub := newHub(t, "alice", backend)

	hub.Insights().Store().Set([]models.Insight{{Title: "Top customers"}})
	require.NotEmpty(t, hub.Insights().Store().Insights())

	hub.ClearAll()
	assert.Empty(t, hub.Insights().Store().Insights())
	assert.Empty(t, newHub(t, "alice", backend).Insights().Store().Insights())
}
