package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rcliao/kg-course/internal/expand"
)

// RunJournal records the rounds of one run. It satisfies expand.Journal.
type RunJournal struct {
	store *SQLiteStore
	run   Run

	mu sync.Mutex
}

var _ expand.Journal = (*RunJournal)(nil)

// ID returns the run id.
func (j *RunJournal) ID() string { return j.run.ID }

// Run returns the run as currently known to the journal.
func (j *RunJournal) Run() Run {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.run
}

func (s *SQLiteStore) StartRun(ctx context.Context, p StartRunParams) (*RunJournal, error) {
	run := Run{
		ID:        s.newID(),
		Snapshot:  p.Snapshot,
		Model:     p.Model,
		Rounds:    p.Rounds,
		PerRound:  p.PerRound,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, snapshot, model, rounds, per_round, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, nullString(run.Snapshot), nullString(run.Model), run.Rounds, run.PerRound,
		run.StartedAt.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &RunJournal{store: s, run: run}, nil
}

// RecordRound stores r and adds its accepted counts to the run totals.
func (j *RunJournal) RecordRound(ctx context.Context, r expand.RoundReport) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	tx, err := j.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rounds (run_id, round, requested, candidates, nodes_added, edges_added,
		                     skipped_nodes, skipped_edges, dropped_edges, error, duration_ms,
		                     graph_concepts, graph_edges)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.run.ID, r.Round, r.Requested, r.Candidates, r.NodesAdded, r.EdgesAdded,
		r.SkippedNodes, r.SkippedEdges, r.DroppedEdges, nullString(r.Error), r.Duration.Milliseconds(),
		r.GraphConcepts, r.GraphEdges)
	if err != nil {
		return fmt.Errorf("insert round %d: %w", r.Round, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE runs SET nodes_added = nodes_added + ?, edges_added = edges_added + ? WHERE id = ?`,
		r.NodesAdded, r.EdgesAdded, j.run.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	j.run.NodesAdded += r.NodesAdded
	j.run.EdgesAdded += r.EdgesAdded
	return nil
}

// Finish marks the run finished. A non-nil runErr is kept as the run error.
func (j *RunJournal) Finish(ctx context.Context, runErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now().UTC()
	var msg string
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := j.store.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, error = ? WHERE id = ?`,
		now.Format(timeFormat), nullString(msg), j.run.ID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	j.run.FinishedAt = &now
	j.run.Error = msg
	return nil
}

func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, snapshot, model, rounds, per_round, nodes_added, edges_added,
		        started_at, finished_at, error
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a single run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, snapshot, model, rounds, per_round, nodes_added, edges_added,
		        started_at, finished_at, error
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) Rounds(ctx context.Context, runID string) ([]expand.RoundReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT round, requested, candidates, nodes_added, edges_added, skipped_nodes,
		        skipped_edges, dropped_edges, error, duration_ms, graph_concepts, graph_edges
		 FROM rounds WHERE run_id = ? ORDER BY round`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []expand.RoundReport
	for rows.Next() {
		var r expand.RoundReport
		var errMsg sql.NullString
		var ms int64
		err := rows.Scan(&r.Round, &r.Requested, &r.Candidates, &r.NodesAdded, &r.EdgesAdded,
			&r.SkippedNodes, &r.SkippedEdges, &r.DroppedEdges, &errMsg, &ms,
			&r.GraphConcepts, &r.GraphEdges)
		if err != nil {
			return nil, err
		}
		r.Error = errMsg.String
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var snapshot, model, finishedAt, errMsg sql.NullString
	var startedAt string

	err := row.Scan(&run.ID, &snapshot, &model, &run.Rounds, &run.PerRound,
		&run.NodesAdded, &run.EdgesAdded, &startedAt, &finishedAt, &errMsg)
	if err != nil {
		return run, err
	}
	run.Snapshot = snapshot.String
	run.Model = model.String
	run.Error = errMsg.String
	run.StartedAt, _ = time.Parse(timeFormat, startedAt)
	if finishedAt.Valid {
		t, _ := time.Parse(timeFormat, finishedAt.String)
		run.FinishedAt = &t
	}
	return run, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
