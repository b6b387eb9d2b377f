package chat

import (
	"go.uber.org/zap"

	"github.com/saathi/saathi-cli/internal/api"
	"github.com/saathi/saathi-cli/internal/insights"
	"github.com/saathi/saathi-cli/internal/models"
	"github.com/saathi/saathi-cli/internal/session"
	"github.com/saathi/saathi-cli/internal/shared"
	"github.com/saathi/saathi-cli/internal/storage"
)

// Hub assembles the full controller set for one authenticated user. Every
// topic gets its own store, all namespaced by the username captured here, so
// building a hub for a different user yields disjoint sessions.
type Hub struct {
	username    string
	controllers map[models.Topic]*Controller
	insights    *insights.Controller
}

func NewHub(username string, backend storage.Backend, client *api.Client, artifacts *shared.Artifacts, logger *zap.Logger) *Hub {
	h := &Hub{
		username:    username,
		controllers: make(map[models.Topic]*Controller, len(models.Topics)),
	}
	for _, topic := range models.Topics {
		store := session.New(topic, username, backend, logger)
		h.controllers[topic] = NewController(topic, store, artifacts, client, logger)
	}
	h.insights = insights.NewController(insights.New(username, backend, logger), client, logger)
	return h
}

func (h *Hub) Username() string { return h.username }

func (h *Hub) Controller(topic models.Topic) *Controller {
	return h.controllers[topic]
}

// Insights returns the curated-insights controller for this user.
func (h *Hub) Insights() *insights.Controller { return h.insights }

// ClearAll empties every topic's session and the insights cache, the logout
// reaction: the next user must never observe this user's data.
func (h *Hub) ClearAll() {
	for _, c := range h.controllers {
		c.Clear()
	}
	h.insights.Store().Clear()
}
