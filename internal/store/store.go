// Package store provides the run journal: versioned graph snapshots and the
// round-by-round history of expansion runs, kept in SQLite.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rcliao/kg-course/internal/expand"
	"github.com/rcliao/kg-course/internal/graph"
)

// ErrNotFound is returned when a named snapshot or run does not exist.
var ErrNotFound = errors.New("not found")

// Snapshot is one stored version of a serialized graph.
type Snapshot struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Version    int             `json:"version"`
	Supersedes string          `json:"supersedes,omitempty"`
	Note       string          `json:"note,omitempty"`
	Concepts   int             `json:"concepts"`
	Edges      int             `json:"edges"`
	Document   json.RawMessage `json:"document,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
}

// Graph decodes the stored document.
func (s Snapshot) Graph() (*graph.Graph, error) {
	return graph.Unmarshal(s.Document)
}

// Run is one expansion run.
type Run struct {
	ID         string     `json:"id"`
	Snapshot   string     `json:"snapshot,omitempty"`
	Model      string     `json:"model,omitempty"`
	Rounds     int        `json:"rounds"`
	PerRound   int        `json:"per_round"`
	NodesAdded int        `json:"nodes_added"`
	EdgesAdded int        `json:"edges_added"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// PutParams holds parameters for storing a snapshot.
type PutParams struct {
	Name  string
	Graph *graph.Graph
	Note  string
}

// GetParams holds parameters for retrieving a snapshot.
type GetParams struct {
	Name    string
	History bool
	Version int // 0 means latest
}

// ListParams holds parameters for listing snapshots.
type ListParams struct {
	Limit int
	// WithDocument includes the serialized graph in each result.
	WithDocument bool
}

// RmParams holds parameters for deleting a snapshot.
type RmParams struct {
	Name        string
	AllVersions bool
	Hard        bool
}

// StartRunParams describes a run about to begin.
type StartRunParams struct {
	Snapshot string
	Model    string
	Rounds   int
	PerRound int
}

// Store defines the journal interface.
type Store interface {
	// Put stores a new version of a named snapshot.
	Put(ctx context.Context, p PutParams) (*Snapshot, error)

	// Get retrieves a snapshot by name. Returns a slice (single element
	// normally, every version with History=true).
	Get(ctx context.Context, p GetParams) ([]Snapshot, error)

	// List lists the latest version of every snapshot name.
	List(ctx context.Context, p ListParams) ([]Snapshot, error)

	// Rm soft-deletes (or hard-deletes) a snapshot.
	Rm(ctx context.Context, p RmParams) error

	// StartRun opens a run and returns a journal for its rounds.
	StartRun(ctx context.Context, p StartRunParams) (*RunJournal, error)

	// Runs lists runs, newest first.
	Runs(ctx context.Context, limit int) ([]Run, error)

	// Rounds returns the reports recorded for a run, in round order.
	Rounds(ctx context.Context, runID string) ([]expand.RoundReport, error)

	// Close closes the store.
	Close() error
}
