package repositories

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/tracklake/internal/models"
)

// StagingRepository persists raw track records in the tracks_staging table
// between bulk copy and merge.
type StagingRepository struct {
	db     *sql.DB
	driver string
}

// NewStagingRepository creates a StagingRepository over the given connection.
func NewStagingRepository(db *sql.DB, driver string) *StagingRepository {
	return &StagingRepository{db: db, driver: driver}
}

// CopyResult summarizes one bulk copy: rows copied and malformed lines skipped.
type CopyResult struct {
	Copied  int
	Skipped int
}

// CopyFrom streams a landed JSONL object into the staging table, tagging each
// row with its source file path and load timestamp.
//
// Malformed lines are skipped and counted; well-formed rows proceed. The copy
// runs in one transaction so a partially copied file never lingers in staging.
func (r *StagingRepository) CopyFrom(ctx context.Context, body []byte, sourceFilePath string, loadedAt time.Time) (CopyResult, error) {
	var result CopyResult

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin copy transaction: %w", err)
	}
	defer tx.Rollback()

	query := rebind(r.driver, `
		INSERT INTO tracks_staging (raw_track_data, source_file_path, loaded_at)
		VALUES (?, ?, ?)
	`)

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			result.Skipped++
			continue
		}
		if _, err := tx.ExecContext(ctx, query, string(line), sourceFilePath, loadedAt); err != nil {
			return CopyResult{}, fmt.Errorf("failed to copy staging row: %w", err)
		}
		result.Copied++
	}
	if err := scanner.Err(); err != nil {
		return CopyResult{}, fmt.Errorf("failed to scan landed object: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return CopyResult{}, fmt.Errorf("failed to commit copy: %w", err)
	}

	return result, nil
}

// Records retrieves all staged rows in load order for normalization.
func (r *StagingRepository) Records(ctx context.Context) ([]models.StagedRecord, error) {
	query := `
		SELECT id, raw_track_data, source_file_path, loaded_at
		FROM tracks_staging
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query staging rows: %w", err)
	}
	defer rows.Close()

	var records []models.StagedRecord
	for rows.Next() {
		var (
			record models.StagedRecord
			raw    string
		)
		if err := rows.Scan(&record.Sequence, &raw, &record.SourceFilePath, &record.LoadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan staging row: %w", err)
		}
		record.RawTrackData = []byte(raw)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Count returns the number of rows currently staged.
func (r *StagingRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracks_staging").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count staging rows: %w", err)
	}
	return count, nil
}

// Truncate clears the staging table after a successful merge. Re-running the
// merge against the emptied table is a no-op.
func (r *StagingRepository) Truncate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM tracks_staging"); err != nil {
		return fmt.Errorf("failed to truncate staging table: %w", err)
	}
	return nil
}
