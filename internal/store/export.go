package store

import (
	"context"
	"fmt"
)

// ExportAll returns every non-deleted snapshot version, optionally filtered
// by name, with documents included.
func (s *SQLiteStore) ExportAll(ctx context.Context, name string) ([]Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE deleted_at IS NULL`
	var args []interface{}
	if name != "" {
		query += ` AND name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY name, version`
	return s.query(ctx, query, args...)
}

// Import stores snapshots from an export as new versions. Documents are
// validated before anything is written for that snapshot.
func (s *SQLiteStore) Import(ctx context.Context, snaps []Snapshot) (int, error) {
	imported := 0
	for _, snap := range snaps {
		g, err := snap.Graph()
		if err != nil {
			return imported, fmt.Errorf("import %s v%d: %w", snap.Name, snap.Version, err)
		}
		if _, err := s.Put(ctx, PutParams{Name: snap.Name, Graph: g, Note: snap.Note}); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
