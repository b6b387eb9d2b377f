package session

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/saathi/saathi-cli/internal/models"
	"github.com/saathi/saathi-cli/internal/storage"
)

// Store holds one conversation session for a single (topic, username) pair.
// Identity is fixed at construction, so switching users means constructing a
// fresh store with a disjoint storage key; one user never observes another's
// history.
//
// The message list is append-only except for the single streaming placeholder,
// which is swapped through ReplaceAll until finalized. Every mutation rewrites
// the persisted snapshot; persistence failures are logged and swallowed, the
// in-memory session keeps working.
type Store struct {
	mu           sync.RWMutex
	topic        models.Topic
	key          string
	backend      storage.Backend
	logger       *zap.Logger
	messages     []models.Message
	pendingInput string
}

// Key returns the storage key for a (topic, username) pair.
func Key(topic models.Topic, username string) string {
	if username == "" {
		username = "guest"
	}
	return fmt.Sprintf("%s-chat-%s", topic, username)
}

// New constructs a store for the given identity and seeds it from any
// previously persisted snapshot. A missing or unreadable snapshot yields an
// empty session.
func New(topic models.Topic, username string, backend storage.Backend, logger *zap.Logger) *Store {
	s := &Store{
		topic:   topic,
		key:     Key(topic, username),
		backend: backend,
		logger:  logger,
	}

	snap, ok, err := backend.Load(s.key)
	if err != nil {
		logger.Warn("Failed to restore session, starting empty",
			zap.Error(err),
			zap.String("key", s.key))
		return s
	}
	if ok {
		s.messages = snap.Messages
		s.pendingInput = snap.PendingInput
	}

	return s
}

func (s *Store) Topic() models.Topic { return s.topic }

// Messages returns a copy of the message list in insertion order.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.Message(nil), s.messages...)
}

// Append inserts a message at the end of the conversation.
func (s *Store) Append(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	s.persistLocked()
}

// ReplaceAll swaps the whole message list, used to update or finalize the
// streaming placeholder without touching any other entry.
func (s *Store) ReplaceAll(msgs []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append([]models.Message(nil), msgs...)
	s.persistLocked()
}

func (s *Store) PendingInput() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pendingInput
}

func (s *Store) SetPendingInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendingInput = text
	s.persistLocked()
}

// Clear empties the conversation and pending input and erases the persisted
// snapshot. It is the reaction to logout or an explicit clear signal.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.pendingInput = ""
	if err := s.backend.Delete(s.key); err != nil {
		s.logger.Warn("Failed to erase persisted session",
			zap.Error(err),
			zap.String("key", s.key))
	}
}

// Rate attaches a 1-5 score to every assistant message whose associated
// question matches. If the user asked the same question twice, both answers
// are updated; rating is keyed by question text, not turn index.
func (s *Store) Rate(question string, rating int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for i := range s.messages {
		m := &s.messages[i]
		if m.Sender == models.SenderAssistant && m.AssociatedQuestion == question && m.Rating != rating {
			m.Rating = rating
			updated++
		}
	}
	if updated > 0 {
		s.persistLocked()
	}
	return updated
}

func (s *Store) persistLocked() {
	snap := models.Snapshot{
		Messages:     s.messages,
		PendingInput: s.pendingInput,
	}
	if err := s.backend.Save(s.key, &snap); err != nil {
		s.logger.Warn("Failed to persist session",
			zap.Error(err),
			zap.String("key", s.key))
	}
}
