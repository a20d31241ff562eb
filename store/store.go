// Package store keeps engine snapshots in named save slots backed by SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrSlotNotFound = errors.New("store: slot not found")

// Store manages the save-slot database.
type Store struct {
	db *sql.DB
}

// Slot is one saved snapshot. Payload is the engine's Save output and is
// left empty by List.
type Slot struct {
	ID        string
	Name      string
	Tick      uint64
	CreatedAt time.Time
	Payload   []byte
}

// Open creates or opens the database at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if path != "" && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("store: cannot expand home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: cannot create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: cannot connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS slots (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			tick INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_slots_created ON slots(created_at DESC);
	`)
	return err
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save writes payload under name, replacing any slot of the same name. The
// replaced slot gets a new id.
func (s *Store) Save(name string, tick uint64, payload []byte) (Slot, error) {
	if name == "" {
		return Slot{}, errors.New("store: slot name must not be empty")
	}
	slot := Slot{
		ID:        uuid.NewString(),
		Name:      name,
		Tick:      tick,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
	_, err := s.db.Exec(
		`INSERT INTO slots (id, name, tick, created_at, payload) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   id = excluded.id, tick = excluded.tick,
		   created_at = excluded.created_at, payload = excluded.payload`,
		slot.ID, slot.Name, int64(slot.Tick), slot.CreatedAt.UnixNano(), slot.Payload,
	)
	if err != nil {
		return Slot{}, fmt.Errorf("store: cannot save slot %q: %w", name, err)
	}
	return slot, nil
}

// Load returns the slot whose name or id matches key.
func (s *Store) Load(key string) (*Slot, error) {
	var (
		slot    Slot
		tick    int64
		created int64
	)
	err := s.db.QueryRow(
		`SELECT id, name, tick, created_at, payload FROM slots WHERE name = ? OR id = ?`,
		key, key,
	).Scan(&slot.ID, &slot.Name, &tick, &created, &slot.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("store: cannot load slot: %w", err)
	}
	slot.Tick = uint64(tick)
	slot.CreatedAt = time.Unix(0, created).UTC()
	return &slot, nil
}

// List returns every slot, newest first, without payloads.
func (s *Store) List() ([]Slot, error) {
	rows, err := s.db.Query(`SELECT id, name, tick, created_at FROM slots ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("store: cannot query slots: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var (
			slot    Slot
			tick    int64
			created int64
		)
		if err := rows.Scan(&slot.ID, &slot.Name, &tick, &created); err != nil {
			return nil, fmt.Errorf("store: cannot scan row: %w", err)
		}
		slot.Tick = uint64(tick)
		slot.CreatedAt = time.Unix(0, created).UTC()
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: row iteration error: %w", err)
	}
	return slots, nil
}

// Delete removes the slot whose name or id matches key.
func (s *Store) Delete(key string) error {
	res, err := s.db.Exec(`DELETE FROM slots WHERE name = ? OR id = ?`, key, key)
	if err != nil {
		return fmt.Errorf("store: cannot delete slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, key)
	}
	return nil
}
