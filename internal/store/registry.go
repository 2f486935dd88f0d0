package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Registry is the sqlite index over run directories. The directories stay
// the source of truth; the registry only makes lookups cheap.
type Registry struct {
	db *sql.DB
}

func OpenRegistry(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			stage      TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			params     TEXT,
			path       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage, created_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Registry{db: db}, nil
}

func (r *Registry) Close() error { return r.db.Close() }

func (r *Registry) Insert(meta RunMeta) error {
	params, err := json.Marshal(meta.Params)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(
		`INSERT INTO runs (id, stage, created_at, params, path) VALUES (?, ?, ?, ?, ?)`,
		meta.ID, meta.Stage, meta.Timestamp.UnixNano(), string(params), meta.Path,
	)
	return err
}

func (r *Registry) List() ([]RunMeta, error) {
	rows, err := r.db.Query(`SELECT id, stage, created_at, params, path FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunMeta
	for rows.Next() {
		meta, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

func (r *Registry) Latest(stage string) (*RunMeta, error) {
	row := r.db.QueryRow(
		`SELECT id, stage, created_at, params, path FROM runs WHERE stage = ? ORDER BY created_at DESC LIMIT 1`,
		stage,
	)
	meta, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no %s run recorded yet", stage)
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (r *Registry) Get(id string) (*RunMeta, error) {
	row := r.db.QueryRow(`SELECT id, stage, created_at, params, path FROM runs WHERE id = ?`, id)
	meta, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunMeta, error) {
	var meta RunMeta
	var createdAt int64
	var params string
	if err := s.Scan(&meta.ID, &meta.Stage, &createdAt, &params, &meta.Path); err != nil {
		return meta, err
	}
	meta.Timestamp = time.Unix(0, createdAt)
	if params != "" && params != "null" {
		if err := json.Unmarshal([]byte(params), &meta.Params); err != nil {
			return meta, fmt.Errorf("run %s params: %w", meta.ID, err)
		}
	}
	return meta, nil
}
