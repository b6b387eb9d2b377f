package storage

import "github.com/saathi/saathi-cli/internal/models"

// Backend is the key-value substrate session snapshots are written to. Keys
// are namespaced by topic and username by the session layer; a backend only
// sees opaque keys.
//
// Implementations must be safe for concurrent use. Load reports absence via
// the bool rather than an error, so callers can treat a missing snapshot as an
// empty session.
type Backend interface {
	Load(key string) (*models.Snapshot, bool, error)
	Save(key string, snap *models.Snapshot) error
	Delete(key string) error
	Close() error
}
