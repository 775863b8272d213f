package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/tracklake/internal/models"
	"github.com/desertthunder/tracklake/internal/shared"
)

// DimensionRepository persists the track_dim SCD Type 2 table.
type DimensionRepository struct {
	db     *sql.DB
	driver string
}

// NewDimensionRepository creates a DimensionRepository over the given connection.
func NewDimensionRepository(db *sql.DB, driver string) *DimensionRepository {
	return &DimensionRepository{db: db, driver: driver}
}

const dimensionColumns = `
	track_sk, track_id, track_name, duration_ms, is_explicit, popularity, preview_url,
	album_id, album_name, album_release_date, album_type,
	primary_artist_id, primary_artist_name, artist_ids, artist_names,
	row_hash, effective_start, effective_end, is_current, version, updated_at
`

// CurrentRecords retrieves the is_current subset of the dimension table keyed
// by business key. This is the merge engine's view of "last known version".
func (r *DimensionRepository) CurrentRecords(ctx context.Context) (map[string]models.DimensionRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM track_dim WHERE is_current = ?`, dimensionColumns)

	rows, err := r.db.QueryContext(ctx, rebind(r.driver, query), true)
	if err != nil {
		return nil, fmt.Errorf("failed to query current records: %w", err)
	}
	defer rows.Close()

	current := make(map[string]models.DimensionRecord)
	for rows.Next() {
		record, err := scanDimensionRecord(rows)
		if err != nil {
			return nil, err
		}
		current[record.TrackID] = *record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return current, nil
}

// MaxVersions retrieves max(version) per business key over every row,
// expired ones included. Version continuation is always derived from this,
// never from an ephemeral counter, so a cycle that died between expire and
// insert resumes at the right number.
func (r *DimensionRepository) MaxVersions(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT track_id, MAX(version) FROM track_dim GROUP BY track_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query max versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[string]int)
	for rows.Next() {
		var (
			trackID string
			version int
		)
		if err := rows.Scan(&trackID, &version); err != nil {
			return nil, fmt.Errorf("failed to scan version row: %w", err)
		}
		versions[trackID] = version
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return versions, nil
}

// ApplyPlan executes a merge plan inside a single transaction: all
// expirations, then all insertions, one commit boundary. No reader observes a
// business key expired without its successor. Failures wrap
// [shared.ErrMergeFailed] and roll the whole plan back.
func (r *DimensionRepository) ApplyPlan(ctx context.Context, plan models.MergePlan, now time.Time) error {
	if plan.Empty() {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrMergeFailed, err)
	}
	defer tx.Rollback()

	expire := rebind(r.driver, `
		UPDATE track_dim
		SET effective_end = ?, is_current = ?, updated_at = ?
		WHERE track_sk = ?
	`)

	for _, exp := range plan.Expirations {
		result, err := tx.ExecContext(ctx, expire, exp.EffectiveEnd, false, now, exp.SurrogateKey)
		if err != nil {
			return fmt.Errorf("%w: failed to expire track %s: %v", shared.ErrMergeFailed, exp.TrackID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrMergeFailed, err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: current record for track %s vanished mid-merge", shared.ErrMergeFailed, exp.TrackID)
		}
	}

	insert := rebind(r.driver, `
		INSERT INTO track_dim (
			track_id, track_name, duration_ms, is_explicit, popularity, preview_url,
			album_id, album_name, album_release_date, album_type,
			primary_artist_id, primary_artist_name, artist_ids, artist_names,
			row_hash, effective_start, effective_end, is_current, version, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	for _, ins := range plan.Insertions {
		record := ins.NewRecord(now)

		artistIDs, err := json.Marshal(record.ArtistIDs)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal artist ids: %v", shared.ErrMergeFailed, err)
		}
		artistNames, err := json.Marshal(record.ArtistNames)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal artist names: %v", shared.ErrMergeFailed, err)
		}

		_, err = tx.ExecContext(ctx, insert,
			record.TrackID,
			record.TrackName,
			record.DurationMS,
			record.IsExplicit,
			record.Popularity,
			record.PreviewURL,
			record.AlbumID,
			record.AlbumName,
			record.AlbumReleaseDate,
			record.AlbumType,
			record.PrimaryArtistID,
			record.PrimaryArtistName,
			string(artistIDs),
			string(artistNames),
			record.RowHash,
			record.EffectiveStart,
			nil,
			true,
			record.Version,
			record.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("%w: failed to insert version %d of track %s: %v", shared.ErrMergeFailed, record.Version, record.TrackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit merge: %v", shared.ErrMergeFailed, err)
	}

	return nil
}

// History retrieves every version of a business key ordered by version.
func (r *DimensionRepository) History(ctx context.Context, trackID string) ([]models.DimensionRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM track_dim WHERE track_id = ? ORDER BY version ASC`, dimensionColumns)

	rows, err := r.db.QueryContext(ctx, rebind(r.driver, query), trackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", trackID, err)
	}
	defer rows.Close()

	var records []models.DimensionRecord
	for rows.Next() {
		record, err := scanDimensionRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Counts returns total and current row counts for operator diagnostics.
func (r *DimensionRepository) Counts(ctx context.Context) (total, current int, err error) {
	if err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_dim").Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("failed to count dimension rows: %w", err)
	}
	query := rebind(r.driver, "SELECT COUNT(*) FROM track_dim WHERE is_current = ?")
	if err = r.db.QueryRowContext(ctx, query, true).Scan(&current); err != nil {
		return 0, 0, fmt.Errorf("failed to count current rows: %w", err)
	}
	return total, current, nil
}

// scanDimensionRecord scans one dimension row from [sql.Rows].
func scanDimensionRecord(rows *sql.Rows) (*models.DimensionRecord, error) {
	var (
		record       models.DimensionRecord
		artistIDs    string
		artistNames  string
		effectiveEnd sql.NullTime
	)

	err := rows.Scan(
		&record.SurrogateKey,
		&record.TrackID,
		&record.TrackName,
		&record.DurationMS,
		&record.IsExplicit,
		&record.Popularity,
		&record.PreviewURL,
		&record.AlbumID,
		&record.AlbumName,
		&record.AlbumReleaseDate,
		&record.AlbumType,
		&record.PrimaryArtistID,
		&record.PrimaryArtistName,
		&artistIDs,
		&artistNames,
		&record.RowHash,
		&record.EffectiveStart,
		&effectiveEnd,
		&record.IsCurrent,
		&record.Version,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan dimension row: %w", err)
	}

	if effectiveEnd.Valid {
		end := effectiveEnd.Time
		record.EffectiveEnd = &end
	}

	if err := json.Unmarshal([]byte(artistIDs), &record.ArtistIDs); err != nil {
		return nil, fmt.Errorf("failed to decode artist ids: %w", err)
	}
	if err := json.Unmarshal([]byte(artistNames), &record.ArtistNames); err != nil {
		return nil, fmt.Errorf("failed to decode artist names: %w", err)
	}

	return &record, nil
}
