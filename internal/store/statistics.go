package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/spinql/internal/stats"
)

// WriteStatistics records stats under runID, preserving their order.
// Uses ON CONFLICT(run_id, seq) DO NOTHING, so writing the same run twice is
// idempotent.
func (s *Store) WriteStatistics(ctx context.Context, runID string, values []stats.Statistics) error {
	if runID == "" {
		return fmt.Errorf("write statistics: run ID is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write statistics: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO statistics
		(run_id, seq, label, context, duration_ns, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write statistics: prepare: %w", err)
	}
	defer stmt.Close()

	for i, st := range values {
		_, err := stmt.ExecContext(ctx,
			runID,
			i+1,
			st.Label,
			st.Context,
			int64(st.Duration),
			formatTime(st.StartedAt),
		)
		if err != nil {
			return fmt.Errorf("write statistics: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write statistics: commit: %w", err)
	}
	return nil
}

// ReadStatistics returns the statistics recorded under runID in write order.
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ReadStatistics(ctx context.Context, runID string) ([]stats.Statistics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, context, duration_ns, started_at
		FROM statistics
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query statistics: %w", err)
	}
	defer rows.Close()

	out := []stats.Statistics{}
	for rows.Next() {
		var (
			st        stats.Statistics
			duration  int64
			startedAt string
		)
		if err := rows.Scan(&st.Label, &st.Context, &duration, &startedAt); err != nil {
			return nil, fmt.Errorf("scan statistics: %w", err)
		}
		st.Duration = time.Duration(duration)
		if st.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statistics: %w", err)
	}
	return out, nil
}

// TotalDurations sums recorded durations per label across every run.
func (s *Store) TotalDurations(ctx context.Context) (map[string]time.Duration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, SUM(duration_ns) FROM statistics GROUP BY label
	`)
	if err != nil {
		return nil, fmt.Errorf("query durations: %w", err)
	}
	defer rows.Close()

	totals := map[string]time.Duration{}
	for rows.Next() {
		var (
			label string
			total int64
		)
		if err := rows.Scan(&label, &total); err != nil {
			return nil, fmt.Errorf("scan durations: %w", err)
		}
		totals[label] = time.Duration(total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate durations: %w", err)
	}
	return totals, nil
}
