package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// timeFormat is fixed-width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		supersedes  TEXT,
		note        TEXT,
		concepts    INTEGER NOT NULL DEFAULT 0,
		edges       INTEGER NOT NULL DEFAULT 0,
		document    TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		deleted_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name, version);
	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_snapshots_deleted ON snapshots(deleted_at);

	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		snapshot    TEXT,
		model       TEXT,
		rounds      INTEGER NOT NULL,
		per_round   INTEGER NOT NULL,
		nodes_added INTEGER NOT NULL DEFAULT 0,
		edges_added INTEGER NOT NULL DEFAULT 0,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		error       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

	CREATE TABLE IF NOT EXISTS rounds (
		run_id         TEXT NOT NULL REFERENCES runs(id),
		round          INTEGER NOT NULL,
		requested      INTEGER NOT NULL,
		candidates     INTEGER NOT NULL,
		nodes_added    INTEGER NOT NULL,
		edges_added    INTEGER NOT NULL,
		skipped_nodes  INTEGER NOT NULL,
		skipped_edges  INTEGER NOT NULL,
		dropped_edges  INTEGER NOT NULL,
		error          TEXT,
		duration_ms    INTEGER NOT NULL,
		graph_concepts INTEGER NOT NULL,
		graph_edges    INTEGER NOT NULL,
		PRIMARY KEY (run_id, round)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Put(ctx context.Context, p PutParams) (*Snapshot, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, errors.New("snapshot name is required")
	}
	if p.Graph == nil {
		return nil, errors.New("snapshot graph is required")
	}
	doc, err := p.Graph.Marshal()
	if err != nil {
		return nil, err
	}
	st := p.Graph.Stats()

	now := time.Now().UTC()
	id := s.newID()

	var notePtr *string
	if p.Note != "" {
		notePtr = &p.Note
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Check for existing latest version
	var prevID string
	var prevVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT id, version FROM snapshots
		 WHERE name = ? AND deleted_at IS NULL
		 ORDER BY version DESC LIMIT 1`, p.Name).Scan(&prevID, &prevVersion)

	version := 1
	var supersedes *string
	if err == nil {
		version = prevVersion + 1
		supersedes = &prevID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, name, version, supersedes, note, concepts, edges, document, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Name, version, supersedes, notePtr, st.Concepts, st.Edges, string(doc),
		now.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:        id,
		Name:      p.Name,
		Version:   version,
		Note:      p.Note,
		Concepts:  st.Concepts,
		Edges:     st.Edges,
		Document:  doc,
		CreatedAt: now,
	}
	if supersedes != nil {
		snap.Supersedes = *supersedes
	}
	return snap, nil
}

const snapshotColumns = `id, name, version, supersedes, note, concepts, edges, document, created_at, deleted_at`

func (s *SQLiteStore) Get(ctx context.Context, p GetParams) ([]Snapshot, error) {
	var query string
	var args []interface{}

	if p.History {
		query = `SELECT ` + snapshotColumns + `
				 FROM snapshots WHERE name = ? AND deleted_at IS NULL
				 ORDER BY version DESC`
		args = []interface{}{p.Name}
	} else if p.Version > 0 {
		query = `SELECT ` + snapshotColumns + `
				 FROM snapshots WHERE name = ? AND version = ? AND deleted_at IS NULL
				 LIMIT 1`
		args = []interface{}{p.Name, p.Version}
	} else {
		query = `SELECT ` + snapshotColumns + `
				 FROM snapshots WHERE name = ? AND deleted_at IS NULL
				 ORDER BY version DESC LIMIT 1`
		args = []interface{}{p.Name}
	}

	snaps, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("snapshot %q: %w", p.Name, ErrNotFound)
	}
	return snaps, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]Snapshot, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	// Only the latest version of each name
	query := `
		SELECT s.id, s.name, s.version, s.supersedes, s.note, s.concepts, s.edges, s.document, s.created_at, s.deleted_at
		FROM snapshots s
		INNER JOIN (
			SELECT name, MAX(version) AS max_ver
			FROM snapshots WHERE deleted_at IS NULL
			GROUP BY name
		) latest ON s.name = latest.name AND s.version = latest.max_ver
		WHERE s.deleted_at IS NULL
		ORDER BY s.created_at DESC
		LIMIT ?`

	snaps, err := s.query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if !p.WithDocument {
		for i := range snaps {
			snaps[i].Document = nil
		}
	}
	return snaps, nil
}

func (s *SQLiteStore) Rm(ctx context.Context, p RmParams) error {
	if p.Hard {
		if p.AllVersions {
			res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, p.Name)
			if err != nil {
				return err
			}
			return requireAffected(res, p.Name)
		}
		id, err := s.latestID(ctx, p.Name)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
		return err
	}

	now := time.Now().UTC().Format(timeFormat)
	if p.AllVersions {
		res, err := s.db.ExecContext(ctx,
			`UPDATE snapshots SET deleted_at = ? WHERE name = ? AND deleted_at IS NULL`,
			now, p.Name)
		if err != nil {
			return err
		}
		return requireAffected(res, p.Name)
	}

	// Soft-delete latest version only
	id, err := s.latestID(ctx, p.Name)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE snapshots SET deleted_at = ? WHERE id = ?`, now, id)
	return err
}

func (s *SQLiteStore) latestID(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM snapshots WHERE name = ? AND deleted_at IS NULL ORDER BY version DESC LIMIT 1`,
		name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("snapshot %q: %w", name, ErrNotFound)
	}
	return id, err
}

func requireAffected(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("snapshot %q: %w", name, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var snap Snapshot
	var supersedes, note, deletedAt sql.NullString
	var document, createdAt string

	err := row.Scan(
		&snap.ID, &snap.Name, &snap.Version, &supersedes, &note,
		&snap.Concepts, &snap.Edges, &document, &createdAt, &deletedAt,
	)
	if err != nil {
		return snap, err
	}

	snap.Document = []byte(document)
	snap.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	if supersedes.Valid {
		snap.Supersedes = supersedes.String
	}
	if note.Valid {
		snap.Note = note.String
	}
	if deletedAt.Valid {
		t, _ := time.Parse(timeFormat, deletedAt.String)
		snap.DeletedAt = &t
	}
	return snap, nil
}
