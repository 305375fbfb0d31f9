package querystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateRunning inserts a new query in the Running state and returns its id.
// This write is critical: failure here must surface to the caller as a
// storage error (the engine maps it to a 500).
func (db *DB) CreateRunning(ctx context.Context, params Params) (string, error) {
	id := uuid.New().String()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO queries (id, keyword, country, window_days, baseline_days, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, params.Keyword, params.Country, params.WindowDays, params.BaselineDays, StatusRunning, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("creating running query: %w", err)
	}
	return id, nil
}

// PersistResult writes the TrendResult, every SeriesPoint, and every
// CountryPoint in a single transaction: either all rows land or none do.
// This write is also critical — its caller treats failure as a storage
// error, though per the engine's protocol that error is logged rather than
// surfaced once scoring has already succeeded.
func (db *DB) PersistResult(ctx context.Context, queryID string, result ResultInput) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning persist transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	explanations, err := json.Marshal(result.Explanations)
	if err != nil {
		return fmt.Errorf("encoding explanations: %w", err)
	}
	sources, err := json.Marshal(result.SourcesUsed)
	if err != nil {
		return fmt.Errorf("encoding sources_used: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO results (query_id, trend_score, growth_signal, slope_signal, peak_signal, explanations, sources_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, queryID, result.TrendScore, result.GrowthSignal, result.SlopeSignal, result.PeakSignal, explanations, sources, time.Now().UTC()); err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}

	seriesStmt, err := tx.PrepareContext(ctx, `INSERT INTO series_points (query_id, date, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing series insert: %w", err)
	}
	defer seriesStmt.Close()
	for _, p := range result.Series {
		if _, err := seriesStmt.ExecContext(ctx, queryID, p.Date, p.Value); err != nil {
			return fmt.Errorf("inserting series point %s: %w", p.Date, err)
		}
	}

	countryStmt, err := tx.PrepareContext(ctx, `INSERT INTO country_points (query_id, country, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing country point insert: %w", err)
	}
	defer countryStmt.Close()
	for _, p := range result.ByCountry {
		if _, err := countryStmt.ExecContext(ctx, queryID, p.Country, p.Value); err != nil {
			return fmt.Errorf("inserting country point %s: %w", p.Country, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing persist transaction: %w", err)
	}
	return nil
}

// MarkDone transitions a query to Done, setting finished_at. Best-effort:
// callers log failures rather than surfacing them.
func (db *DB) MarkDone(ctx context.Context, queryID string) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE queries SET status = ?, finished_at = ? WHERE id = ?
	`, StatusDone, time.Now().UTC(), queryID)
	if err != nil {
		return fmt.Errorf("marking query %s done: %w", queryID, err)
	}
	return nil
}

// MarkError transitions a query to Error with the given message. Best-effort:
// callers log failures rather than surfacing them.
func (db *DB) MarkError(ctx context.Context, queryID, message string) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE queries SET status = ?, error_message = ?, finished_at = ? WHERE id = ?
	`, StatusError, message, time.Now().UTC(), queryID)
	if err != nil {
		return fmt.Errorf("marking query %s error: %w", queryID, err)
	}
	return nil
}

// GetQuery fetches a query record by id, mainly for tests and diagnostics.
func (db *DB) GetQuery(ctx context.Context, queryID string) (Query, error) {
	var q Query
	var errMsg sql.NullString
	var finishedAt sql.NullTime
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, keyword, country, window_days, baseline_days, status, error_message, created_at, finished_at
		FROM queries WHERE id = ?
	`, queryID)
	if err := row.Scan(&q.ID, &q.Keyword, &q.Country, &q.WindowDays, &q.BaselineDays, &q.Status, &errMsg, &q.CreatedAt, &finishedAt); err != nil {
		return Query{}, fmt.Errorf("fetching query %s: %w", queryID, err)
	}
	q.ErrorMessage = errMsg.String
	if finishedAt.Valid {
		t := finishedAt.Time
		q.FinishedAt = &t
	}
	return q, nil
}

// HasResult reports whether queryID has a persisted TrendResult.
func (db *DB) HasResult(ctx context.Context, queryID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM results WHERE query_id = ?`, queryID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking result for query %s: %w", queryID, err)
	}
	return count > 0, nil
}
