package storage

import (
	"sync"

	"github.com/saathi/saathi-cli/internal/models"
)

// MemoryBackend keeps snapshots for the life of the process, the way
// session-scoped browser storage keeps them for the life of a tab.
type MemoryBackend struct {
	mu    sync.RWMutex
	snaps map[string]models.Snapshot
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		snaps: make(map[string]models.Snapshot),
	}
}

func (b *MemoryBackend) Load(key string) (*models.Snapshot, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap, exists := b.snaps[key]
	if !exists {
		return nil, false, nil
	}

	// Copy so callers can't mutate the stored snapshot through the slices.
	out := models.Snapshot{
		Messages:     append([]models.Message(nil), snap.Messages...),
		PendingInput: snap.PendingInput,
		Insights:     append([]models.Insight(nil), snap.Insights...),
	}
	return &out, true, nil
}

func (b *MemoryBackend) Save(key string, snap *models.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snaps[key] = models.Snapshot{
		Messages:     append([]models.Message(nil), snap.Messages...),
		PendingInput: snap.PendingInput,
		Insights:     append([]models.Insight(nil), snap.Insights...),
	}
	return nil
}

func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.snaps, key)
	return nil
}

func (b *MemoryBackend) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
