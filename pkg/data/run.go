package data

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	insertRunSQL = `INSERT INTO run (id, source, rows, features, filled, explain_error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	insertRunLabelSQL = `INSERT INTO run_label (run_id, label, count) VALUES (?, ?, ?)`

	insertRunFeatureSQL = `INSERT INTO run_feature (run_id, rank, feature, value) VALUES (?, ?, ?, ?)`

	selectRunsSQL = `SELECT id, source, rows, features, filled, explain_error, duration_ms, created_at
		FROM run
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	selectRunSQL = `SELECT id, source, rows, features, filled, explain_error, duration_ms, created_at
		FROM run
		WHERE id = ?
	`

	selectRunLabelsSQL = `SELECT label, count FROM run_label WHERE run_id = ? ORDER BY count DESC, label`

	selectRunFeaturesSQL = `SELECT feature, value FROM run_feature WHERE run_id = ? ORDER BY rank`

	selectLabelCountsSQL = `SELECT label, SUM(count) FROM run_label GROUP BY label ORDER BY 2 DESC, label`

	deleteRunsSQL = `DELETE FROM run`

	timeLayout = time.RFC3339Nano
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is the persisted summary of one pipeline run.
type Run struct {
	ID           string         `json:"id" yaml:"id"`
	Source       string         `json:"source" yaml:"source"`
	Rows         int            `json:"rows" yaml:"rows"`
	Features     int            `json:"features" yaml:"features"`
	Filled       []string       `json:"filled,omitempty" yaml:"filled,omitempty"`
	ExplainError string         `json:"explain_error,omitempty" yaml:"explainError,omitempty"`
	DurationMS   int64          `json:"duration_ms" yaml:"durationMs"`
	CreatedAt    time.Time      `json:"created_at" yaml:"createdAt"`
	Labels       []*LabelCount  `json:"labels,omitempty" yaml:"labels,omitempty"`
	TopFeatures  []*FeatureRank `json:"top_features,omitempty" yaml:"topFeatures,omitempty"`
}

// LabelCount is the number of rows predicted with a label.
type LabelCount struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// FeatureRank is a feature with its mean absolute attribution.
type FeatureRank struct {
	Feature string  `json:"feature" yaml:"feature"`
	Value   float64 `json:"value" yaml:"value"`
}

// SaveRun persists a run with its label counts and top features.
func SaveRun(db *sql.DB, r *Run) error {
	if db == nil {
		return errDBNotInitialized
	}
	if r == nil || r.ID == "" {
		return errors.New("run with id required")
	}

	filled, err := encodeNames(r.Filled)
	if err != nil {
		return fmt.Errorf("encoding filled features: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(insertRunSQL, r.ID, r.Source, r.Rows, r.Features,
		filled, r.ExplainError, r.DurationMS,
		r.CreatedAt.UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("inserting run %s: %w", r.ID, err)
	}

	for _, l := range r.Labels {
		if _, err := tx.Exec(insertRunLabelSQL, r.ID, l.Label, l.Count); err != nil {
			return fmt.Errorf("inserting label %s: %w", l.Label, err)
		}
	}

	for i, fr := range r.TopFeatures {
		if _, err := tx.Exec(insertRunFeatureSQL, r.ID, i, fr.Feature, fr.Value); err != nil {
			return fmt.Errorf("inserting feature %s: %w", fr.Feature, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", r.ID, err)
	}
	return nil
}

// GetRuns returns the most recent runs, newest first.
func GetRuns(db *sql.DB, limit int) ([]*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit: %d", limit)
	}

	rows, err := db.Query(selectRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	list := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for _, r := range list {
		if r.Labels, err = getRunLabels(db, r.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// GetRun returns a single run with its labels and top features.
func GetRun(db *sql.DB, id string) (*Run, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}

	r, err := scanRun(db.QueryRow(selectRunSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}

	if r.Labels, err = getRunLabels(db, id); err != nil {
		return nil, err
	}

	rows, err := db.Query(selectRunFeaturesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying features for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		fr := &FeatureRank{}
		if err := rows.Scan(&fr.Feature, &fr.Value); err != nil {
			return nil, fmt.Errorf("scanning feature: %w", err)
		}
		r.TopFeatures = append(r.TopFeatures, fr)
	}
	return r, rows.Err()
}

// GetLabelCounts returns prediction counts per label across all runs.
func GetLabelCounts(db *sql.DB) ([]*LabelCount, error) {
	if db == nil {
		return nil, errDBNotInitialized
	}
	return queryLabels(db, selectLabelCountsSQL)
}

// DeleteRuns removes all run history and returns the number of runs deleted.
func DeleteRuns(db *sql.DB) (int64, error) {
	if db == nil {
		return 0, errDBNotInitialized
	}

	res, err := db.Exec(deleteRunsSQL)
	if err != nil {
		return 0, fmt.Errorf("deleting runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted runs: %w", err)
	}
	return n, nil
}

func getRunLabels(db *sql.DB, id string) ([]*LabelCount, error) {
	return queryLabels(db, selectRunLabelsSQL, id)
}

func queryLabels(db *sql.DB, query string, args ...any) ([]*LabelCount, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying labels: %w", err)
	}
	defer rows.Close()

	list := make([]*LabelCount, 0)
	for rows.Next() {
		l := &LabelCount{}
		if err := rows.Scan(&l.Label, &l.Count); err != nil {
			return nil, fmt.Errorf("scanning label: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	r := &Run{}
	var filled, created string
	err := s.Scan(&r.ID, &r.Source, &r.Rows, &r.Features, &filled,
		&r.ExplainError, &r.DurationMS, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	if r.Filled, err = decodeNames(filled); err != nil {
		return nil, fmt.Errorf("decoding filled features of run %s: %w", r.ID, err)
	}

	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parsing run time %q: %w", created, err)
	}
	r.CreatedAt = t
	return r, nil
}

// encodeNames stores feature names as a JSON array; names are CSV headers and
// may contain any character.
func encodeNames(names []string) (string, error) {
	if len(names) == 0 {
		return "", nil
	}
	b, err := json.Marshal(names)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeNames(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(s), &names); err != nil {
		return nil, err
	}
	return names, nil
}
