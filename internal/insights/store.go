package insights

import (
	"sync"

	"go.uber.org/zap"

	"github.com/saathi/saathi-cli/internal/models"
	"github.com/saathi/saathi-cli/internal/storage"
)

// Store caches the curated analytic reports for one user, persisted under a
// username-namespaced key beside the chat sessions. Like those, persistence is
// a cache: load failures degrade to empty and save failures are swallowed.
type Store struct {
	mu       sync.RWMutex
	key      string
	backend  storage.Backend
	logger   *zap.Logger
	insights []models.Insight
}

// Key returns the storage key for a username.
func Key(username string) string {
	if username == "" {
		username = "guest"
	}
	return "curated-insights-" + username
}

func New(username string, backend storage.Backend, logger *zap.Logger) *Store {
	s := &Store{
		key:     Key(username),
		backend: backend,
		logger:  logger,
	}

	snap, ok, err := backend.Load(s.key)
	if err != nil {
		logger.Warn("Failed to restore insights, starting empty",
			zap.Error(err),
			zap.String("key", s.key))
		return s
	}
	if ok {
		s.insights = snap.Insights
	}

	return s
}

// Insights returns a copy of the cached reports.
func (s *Store) Insights() []models.Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Insight(nil), s.insights...)
}

func (s *Store) Set(list []models.Insight) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insights = append([]models.Insight(nil), list...)
	snap := models.Snapshot{Insights: s.insights}
	if err := s.backend.Save(s.key, &snap); err != nil {
		s.logger.Warn("Failed to persist insights",
			zap.Error(err),
			zap.String("key", s.key))
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insights = nil
	if err := s.backend.Delete(s.key); err != nil {
		s.logger.Warn("Failed to erase persisted insights",
			zap.Error(err),
			zap.String("key", s.key))
	}
}
