package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/socialens/pkg/socialens/internalerr"
	"github.com/cognicore/socialens/pkg/socialens/records"
	"github.com/cognicore/socialens/pkg/socialens/store"
)

// sqliteStore implements store.Store on SQLite.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

// Close closes the database connection.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	comments INTEGER NOT NULL,
	joined INTEGER NOT NULL,
	topics INTEGER NOT NULL,
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mapping (
	position INTEGER PRIMARY KEY,
	comment_id TEXT NOT NULL,
	video_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS mapping_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	saved_at TEXT NOT NULL,
	entries INTEGER NOT NULL
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveSnapshot implements store.Store. Existing ids are rejected.
func (s *sqliteStore) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("snapshot id required: %w", internalerr.ErrInvalidInput)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	info := snap.Info()

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM snapshots WHERE id = ?`, snap.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return fmt.Errorf("snapshot %s already exists: %w", snap.ID, internalerr.ErrInvalidInput)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO snapshots(id, created_at, comments, joined, topics, payload)
VALUES(?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.CreatedAt.UTC().Format(time.RFC3339Nano), info.Comments, info.Joined, info.Topics, string(payload))
	return err
}

// GetSnapshot implements store.Store.
func (s *sqliteStore) GetSnapshot(ctx context.Context, id string) (store.Snapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, fmt.Errorf("snapshot %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Snapshot{}, err
	}
	return decodeSnapshot(payload)
}

// LatestSnapshot implements store.Store.
func (s *sqliteStore) LatestSnapshot(ctx context.Context) (store.Snapshot, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, false, nil
	}
	if err != nil {
		return store.Snapshot{}, false, err
	}
	snap, err := decodeSnapshot(payload)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	return snap, true, nil
}

// ListSnapshots implements store.Store, newest first.
func (s *sqliteStore) ListSnapshots(ctx context.Context, limit int) ([]store.SnapshotInfo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_at, comments, joined, topics
FROM snapshots
ORDER BY id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.SnapshotInfo
	for rows.Next() {
		var info store.SnapshotInfo
		var created string
		if err := rows.Scan(&info.ID, &created, &info.Comments, &info.Joined, &info.Topics); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			info.CreatedAt = t
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func decodeSnapshot(payload string) (store.Snapshot, error) {
	var snap store.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// LoadMapping implements store.Store.
func (s *sqliteStore) LoadMapping(ctx context.Context) ([]records.Mapping, bool, error) {
	var entries int
	err := s.db.QueryRowContext(ctx, `SELECT entries FROM mapping_state WHERE id = 1`).Scan(&entries)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT comment_id, video_id FROM mapping ORDER BY position`)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	out := make([]records.Mapping, 0, entries)
	for rows.Next() {
		var cid, vid string
		if err := rows.Scan(&cid, &vid); err != nil {
			return nil, false, err
		}
		out = append(out, records.Mapping{CommentID: records.ID(cid), VideoID: records.ID(vid)})
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// SaveMapping implements store.Store. The previous mapping is replaced in
// one transaction.
func (s *sqliteStore) SaveMapping(ctx context.Context, m []records.Mapping) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mapping`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO mapping(position, comment_id, video_id) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range m {
		if _, err := stmt.ExecContext(ctx, i, string(e.CommentID), string(e.VideoID)); err != nil {
			return fmt.Errorf("insert mapping %d: %w", i, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO mapping_state(id, saved_at, entries) VALUES(1, ?, ?)
ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at, entries = excluded.entries`,
		time.Now().UTC().Format(time.RFC3339), len(m))
	if err != nil {
		return err
	}
	return tx.Commit()
}
