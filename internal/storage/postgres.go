package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/saathi/saathi-cli/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

// PostgresBackend persists session snapshots durably, one JSON row per
// namespaced key. Unlike MemoryBackend, history survives process restarts.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(config DatabaseConfig) (*PostgresBackend, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	backend := &PostgresBackend{db: db}

	// Initialize database schema
	if err := backend.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return backend, nil
}

func (b *PostgresBackend) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := b.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (b *PostgresBackend) Load(key string) (*models.Snapshot, bool, error) {
	var raw []byte
	err := b.db.QueryRow(
		`SELECT snapshot FROM session_snapshots WHERE key = $1`, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error loading snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt row is treated as absent; persistence is a cache, never
		// a source of truth.
		return nil, false, nil
	}

	return &snap, true, nil
}

func (b *PostgresBackend) Save(key string, snap *models.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}

	_, err = b.db.Exec(`
		INSERT INTO session_snapshots (key, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET snapshot = $2, updated_at = now()`,
		key, raw)
	if err != nil {
		return fmt.Errorf("error saving snapshot: %w", err)
	}

	return nil
}

func (b *PostgresBackend) Delete(key string) error {
	if _, err := b.db.Exec(`DELETE FROM session_snapshots WHERE key = $1`, key); err != nil {
		return fmt.Errorf("error deleting snapshot: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
