package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath          string          `json:"db_path"`
	DBSizeBytes     int64           `json:"db_size_bytes"`
	TotalSnapshots  int             `json:"total_snapshots"`
	ActiveSnapshots int             `json:"active_snapshots"`
	Runs            int             `json:"runs"`
	Rounds          int             `json:"rounds"`
	Names           []SnapshotStats `json:"names"`
}

// SnapshotStats holds per-name counts.
type SnapshotStats struct {
	Name     string `json:"name"`
	Versions int    `json:"versions"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&st.TotalSnapshots)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE deleted_at IS NULL`).Scan(&st.ActiveSnapshots)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&st.Runs)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rounds`).Scan(&st.Rounds)

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, COUNT(*) AS versions
		FROM snapshots WHERE deleted_at IS NULL
		GROUP BY name ORDER BY versions DESC, name`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ns SnapshotStats
		rows.Scan(&ns.Name, &ns.Versions)
		st.Names = append(st.Names, ns)
	}

	return st, rows.Err()
}
