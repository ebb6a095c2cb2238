package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/morphovis/internal/apperr"
	"github.com/starford/morphovis/internal/models"
)

const morphologyColumns = `path, label, checksum, samples, apical, axons, basal, has_soma, run_id, analyzed_at`

// UpsertMorphology inserts or replaces a morphology row and all of its results
// within a transaction.
func (db *DB) UpsertMorphology(m models.Morphology, results []models.Result) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO morphologies (`+morphologyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			label       = excluded.label,
			checksum    = excluded.checksum,
			samples     = excluded.samples,
			apical      = excluded.apical,
			axons       = excluded.axons,
			basal       = excluded.basal,
			has_soma    = excluded.has_soma,
			run_id      = excluded.run_id,
			analyzed_at = excluded.analyzed_at
	`, m.Path, m.Label, m.Checksum, m.Samples, m.Apical, m.Axons, m.Basal, m.HasSoma, m.RunID, m.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("index: upsert morphology: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM analysis_results WHERE path = ?`, m.Path); err != nil {
		return fmt.Errorf("index: clear results: %w", err)
	}
	if len(results) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO analysis_results (path, variable, value, apical, axon, basal) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare result insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range results {
			if _, err := stmt.Exec(m.Path, r.Variable, r.Value, encodeValues(r.Apical), encodeValues(r.Axon), encodeValues(r.Basal)); err != nil {
				return fmt.Errorf("index: insert result %s: %w", r.Variable, err)
			}
		}
	}

	return tx.Commit()
}

// DeleteMorphology removes a morphology and, through the foreign key, its results.
func (db *DB) DeleteMorphology(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM morphologies WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete morphology: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a morphology, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM morphologies WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMorphology(s scanner) (models.Morphology, error) {
	var m models.Morphology
	err := s.Scan(&m.Path, &m.Label, &m.Checksum, &m.Samples, &m.Apical, &m.Axons, &m.Basal, &m.HasSoma, &m.RunID, &m.AnalyzedAt)
	return m, err
}

// GetMorphology returns one indexed morphology or apperr.ErrNotFound.
func (db *DB) GetMorphology(path string) (*models.Morphology, error) {
	row := db.conn.QueryRow(`SELECT `+morphologyColumns+` FROM morphologies WHERE path = ?`, path)
	m, err := scanMorphology(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: get morphology %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get morphology: %w", err)
	}
	return &m, nil
}

// Results returns every stored kernel value of a morphology ordered by variable.
func (db *DB) Results(path string) ([]models.Result, error) {
	rows, err := db.conn.Query(`
		SELECT variable, value, apical, axon, basal
		FROM analysis_results WHERE path = ? ORDER BY variable`, path)
	if err != nil {
		return nil, fmt.Errorf("index: results: %w", err)
	}
	defer rows.Close()

	var out []models.Result
	for rows.Next() {
		r := models.Result{Path: path}
		var apical, axon, basal string
		if err := rows.Scan(&r.Variable, &r.Value, &apical, &axon, &basal); err != nil {
			return nil, err
		}
		r.Apical = decodeValues(apical)
		r.Axon = decodeValues(axon)
		r.Basal = decodeValues(basal)
		out = append(out, r)
	}
	return out, rows.Err()
}

// sortClauses maps the accepted list sort keys to ORDER BY clauses.
var sortClauses = map[string]string{
	"":         "path ASC",
	"path":     "path ASC",
	"label":    "label ASC, path ASC",
	"samples":  "samples DESC, path ASC",
	"analyzed": "analyzed_at DESC, path ASC",
}

// ListMorphologies returns one page of morphologies and the total count.
func (db *DB) ListMorphologies(limit, offset int, sort string) ([]models.Morphology, int, error) {
	order, ok := sortClauses[sort]
	if !ok {
		return nil, 0, fmt.Errorf("index: list: sort %q: %w", sort, apperr.ErrInvalidInput)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM morphologies`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count morphologies: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+morphologyColumns+` FROM morphologies ORDER BY `+order+` LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list morphologies: %w", err)
	}
	defer rows.Close()

	var out []models.Morphology
	for rows.Next() {
		m, err := scanMorphology(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// Rank returns the morphologies with the largest (or smallest) value of variable.
func (db *DB) Rank(variable string, limit int, ascending bool) ([]models.Ranked, error) {
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	rows, err := db.conn.Query(`
		SELECT r.path, m.label, r.value
		FROM analysis_results r JOIN morphologies m ON m.path = r.path
		WHERE r.variable = ?
		ORDER BY r.value `+dir+`, r.path ASC
		LIMIT ?`, variable, limit)
	if err != nil {
		return nil, fmt.Errorf("index: rank: %w", err)
	}
	defer rows.Close()

	var out []models.Ranked
	for rows.Next() {
		var r models.Ranked
		if err := rows.Scan(&r.Path, &r.Label, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed morphology.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM morphologies`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// InsertRun records a finished analysis run.
func (db *DB) InsertRun(r models.Run) error {
	_, err := db.conn.Exec(`
		INSERT INTO runs (id, trigger, started_at, finished_at, analyzed, removed, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Trigger, r.StartedAt, r.FinishedAt, r.Analyzed, r.Removed, r.Failed)
	if err != nil {
		return fmt.Errorf("index: insert run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]models.Run, error) {
	rows, err := db.conn.Query(`
		SELECT id, trigger, started_at, finished_at, analyzed, removed, failed
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: runs: %w", err)
	}
	defer rows.Close()

	var out []models.Run
	for rows.Next() {
		var r models.Run
		if err := rows.Scan(&r.ID, &r.Trigger, &r.StartedAt, &r.FinishedAt, &r.Analyzed, &r.Removed, &r.Failed); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func encodeValues(v []float64) string {
	if len(v) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func decodeValues(s string) []float64 {
	var out []float64
	if err := json.Unmarshal([]byte(s), &out); err != nil || len(out) == 0 {
		return nil
	}
	return out
}
