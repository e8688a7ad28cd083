package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

var ErrNoSnapshot = errors.New("backup: no snapshot stored")

const snapshotSchema = `CREATE TABLE IF NOT EXISTS crm_snapshots (
	id       SERIAL PRIMARY KEY,
	taken_at TIMESTAMPTZ NOT NULL,
	version  TEXT NOT NULL,
	payload  JSONB NOT NULL
)`

const snapshotInsert = `INSERT INTO crm_snapshots (taken_at, version, payload)
VALUES
(:taken_at, :version, :payload) RETURNING id` // note: RETURNING id hands back the serial

const snapshotLatest = `SELECT id, taken_at, version, payload FROM crm_snapshots ORDER BY id DESC LIMIT 1`

const snapshotList = `SELECT id, taken_at, version FROM crm_snapshots ORDER BY id DESC LIMIT $1`

// Snapshot is one archived export
type Snapshot struct {
	ID      int64           `db:"id"`
	TakenAt time.Time       `db:"taken_at"`
	Version string          `db:"version"`
	Payload json.RawMessage `db:"payload"`
}

// Document decodes the archived export
func (s *Snapshot) Document() (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(s.Payload, doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", s.ID, err)
	}
	return doc, nil
}

// SnapshotStore archives export documents in postgres
type SnapshotStore struct {
	db *sqlx.DB
}

// OpenSnapshotStore connects to postgres and makes sure the table exists
func OpenSnapshotStore(ctx context.Context, databaseURL string) (*SnapshotStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect snapshot database: %w", err)
	}

	s := NewSnapshotStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewSnapshotStore(db *sqlx.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("create crm_snapshots: %w", err)
	}
	return nil
}

// Save archives doc and returns the snapshot id
func (s *SnapshotStore) Save(ctx context.Context, doc *Document) (int64, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}

	rows, err := s.db.NamedQueryContext(ctx, snapshotInsert, map[string]interface{}{
		"taken_at": doc.ExportDate,
		"version":  doc.Version,
		"payload":  string(payload),
	})
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	// Let's make sure we don't leak the connection
	defer rows.Close()

	var id int64
	if !rows.Next() {
		return 0, errors.New("insert snapshot: no id returned")
	}
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, rows.Err()
}

// Latest returns the most recent snapshot with its payload
func (s *SnapshotStore) Latest(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.db.GetContext(ctx, snap, snapshotLatest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// List returns the newest snapshots without their payloads
func (s *SnapshotStore) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	snaps := []Snapshot{}
	if err := s.db.SelectContext(ctx, &snaps, snapshotList, limit); err != nil {
		return nil, err
	}
	return snaps, nil
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
