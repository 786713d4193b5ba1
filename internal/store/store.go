// Package store keeps a SQLite history of collection runs: a summary row
// per run plus the feature table and relationships it produced.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jfmyers9/riffnet/internal/artist"
	_ "modernc.org/sqlite"
)

// Store persists run snapshots in SQLite
type Store struct {
	db *sql.DB
}

// Run summarizes one collection run
type Run struct {
	ID                 string
	Playlist           string
	StartedAt          time.Time
	FinishedAt         time.Time
	Tracks             int
	PlaylistArtists    int
	NonPlaylistArtists int
	Records            int
	Relationships      int
	Failed             int
	Duplicates         int
	Incomplete         int
}

// Open opens (or creates) the run database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			playlist TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			tracks INTEGER NOT NULL DEFAULT 0,
			playlist_artists INTEGER NOT NULL DEFAULT 0,
			non_playlist_artists INTEGER NOT NULL DEFAULT 0,
			records INTEGER NOT NULL DEFAULT 0,
			relationships INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			duplicates INTEGER NOT NULL DEFAULT 0,
			incomplete INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS artists (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			key TEXT NOT NULL,
			name TEXT NOT NULL,
			tour_status TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (run_id, key)
		);

		CREATE TABLE IF NOT EXISTS relationships (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			origin TEXT NOT NULL,
			target TEXT NOT NULL,
			type TEXT NOT NULL,
			weight REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
		CREATE INDEX IF NOT EXISTS idx_relationships_origin ON relationships(run_id, origin);
	`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores a run with its records and relationships in one
// transaction and returns the run id. Record and relationship counts are
// taken from the slices.
func (s *Store) SaveRun(ctx context.Context, run Run, records []artist.Record, rels []artist.Relationship) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.Records = len(records)
	run.Relationships = len(rels)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, playlist, started_at, finished_at, tracks, playlist_artists,
			non_playlist_artists, records, relationships, failed, duplicates, incomplete)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Playlist,
		run.StartedAt.Unix(),
		run.FinishedAt.Unix(),
		run.Tracks,
		run.PlaylistArtists,
		run.NonPlaylistArtists,
		run.Records,
		run.Relationships,
		run.Failed,
		run.Duplicates,
		run.Incomplete,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	artistStmt, err := tx.PrepareContext(ctx, "INSERT INTO artists (run_id, key, name, tour_status, data) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer artistStmt.Close()

	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("failed to encode record %s: %w", r.Key, err)
		}
		if _, err := artistStmt.ExecContext(ctx, run.ID, r.Key, r.Name, string(r.TourStatus), string(data)); err != nil {
			return "", fmt.Errorf("failed to insert record %s: %w", r.Key, err)
		}
	}

	relStmt, err := tx.PrepareContext(ctx, "INSERT INTO relationships (run_id, origin, target, type, weight) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer relStmt.Close()

	for _, rel := range rels {
		if _, err := relStmt.ExecContext(ctx, run.ID, rel.Origin, rel.Target, string(rel.Type), rel.Weight); err != nil {
			return "", fmt.Errorf("failed to insert relationship: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return run.ID, nil
}

// ListRuns returns the most recent runs first. A limit of 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, playlist, started_at, finished_at, tracks, playlist_artists,
			non_playlist_artists, records, relationships, failed, duplicates, incomplete
		FROM runs
		ORDER BY started_at DESC, rowid DESC
	`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64

		err := rows.Scan(
			&r.ID,
			&r.Playlist,
			&started,
			&finished,
			&r.Tracks,
			&r.PlaylistArtists,
			&r.NonPlaylistArtists,
			&r.Records,
			&r.Relationships,
			&r.Failed,
			&r.Duplicates,
			&r.Incomplete,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		r.StartedAt = time.Unix(started, 0)
		r.FinishedAt = time.Unix(finished, 0)
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// Records returns the feature table stored for a run, ordered by key
func (s *Store) Records(ctx context.Context, runID string) ([]artist.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM artists WHERE run_id = ? ORDER BY key", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []artist.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var r artist.Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// Prune deletes all but the newest keep runs together with their records
// and relationships, returning the number of runs removed
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	query := `
		DELETE FROM runs
		WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		)
	`

	result, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// Count returns the number of stored runs
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}
